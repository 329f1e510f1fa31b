package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// QualificationCriteria holds the user-defined target attributes a profile
// is scored against. Immutable for the duration of a run.
type QualificationCriteria struct {
	TargetJobTitles    []string `json:"target_job_titles" yaml:"targetJobTitles" mapstructure:"target_job_titles"`
	TargetIndustries   []string `json:"target_industries" yaml:"targetIndustries" mapstructure:"target_industries"`
	TargetLocations    []string `json:"target_locations" yaml:"targetLocations" mapstructure:"target_locations"`
	MinExperienceYears int      `json:"min_experience_years" yaml:"minExperienceYears" mapstructure:"min_experience_years"`
	TargetCompanySizes []string `json:"target_company_sizes" yaml:"targetCompanySizes" mapstructure:"target_company_sizes"`
	RequiredSkills     []string `json:"required_skills" yaml:"requiredSkills" mapstructure:"required_skills"`
}

// Validate checks the criteria are internally consistent.
func (c QualificationCriteria) Validate() error {
	var errs []string

	if c.MinExperienceYears < 0 {
		errs = append(errs, "min_experience_years must be >= 0")
	}
	for _, band := range c.TargetCompanySizes {
		if CompanySizeBandIndex(band) < 0 {
			errs = append(errs, fmt.Sprintf("unknown company size band %q", band))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("model: criteria validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WeightTolerance is the allowed deviation of the weight sum from 1.0.
const WeightTolerance = 0.01

// ScoringWeights controls how much each criterion contributes to the total
// score. Each weight is a fraction in [0,1]; the sum must be 1.0 within
// WeightTolerance.
type ScoringWeights struct {
	JobTitle    float64 `json:"job_title_weight" yaml:"jobTitleWeight" mapstructure:"job_title_weight"`
	Industry    float64 `json:"industry_weight" yaml:"industryWeight" mapstructure:"industry_weight"`
	Location    float64 `json:"location_weight" yaml:"locationWeight" mapstructure:"location_weight"`
	Experience  float64 `json:"experience_weight" yaml:"experienceWeight" mapstructure:"experience_weight"`
	CompanySize float64 `json:"company_size_weight" yaml:"companySizeWeight" mapstructure:"company_size_weight"`
	Skills      float64 `json:"skills_weight" yaml:"skillsWeight" mapstructure:"skills_weight"`
}

// DefaultScoringWeights returns the default weight distribution (sum = 1.0).
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		JobTitle:    0.25,
		Industry:    0.20,
		Location:    0.15,
		Experience:  0.20,
		CompanySize: 0.10,
		Skills:      0.10,
	}
}

// Sum returns the total of all six weights.
func (w ScoringWeights) Sum() float64 {
	return w.JobTitle + w.Industry + w.Location + w.Experience + w.CompanySize + w.Skills
}

// Validate checks each weight is in [0,1] and the sum is 1.0 within tolerance.
func (w ScoringWeights) Validate() error {
	var errs []string

	named := []struct {
		name string
		v    float64
	}{
		{"job_title_weight", w.JobTitle},
		{"industry_weight", w.Industry},
		{"location_weight", w.Location},
		{"experience_weight", w.Experience},
		{"company_size_weight", w.CompanySize},
		{"skills_weight", w.Skills},
	}
	for _, nw := range named {
		if nw.v < 0 || nw.v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %.3f", nw.name, nw.v))
		}
	}

	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1.0 (±%.2f), got %.3f", WeightTolerance, sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("model: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EmptyCriterionPolicy controls how a criterion with an empty target set is
// treated by the scoring engine.
type EmptyCriterionPolicy string

const (
	// EmptyCriterionSkip excludes the criterion's weight and renormalizes
	// the remaining weights proportionally. Default.
	EmptyCriterionSkip EmptyCriterionPolicy = "skip"
	// EmptyCriterionZero keeps the weight but scores the criterion as 0.
	EmptyCriterionZero EmptyCriterionPolicy = "zero"
)

// Validate checks the policy is one of the recognized values. The empty
// string is accepted and treated as EmptyCriterionSkip.
func (p EmptyCriterionPolicy) Validate() error {
	switch p {
	case "", EmptyCriterionSkip, EmptyCriterionZero:
		return nil
	default:
		return eris.Errorf("model: unknown empty criterion policy %q", string(p))
	}
}
