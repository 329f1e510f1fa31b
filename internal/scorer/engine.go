// Package scorer implements weighted multi-criteria qualification scoring
// of profiles and the aggregation of scored leads into a final ranked list.
package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Engine scores profiles against fixed criteria and weights. It is pure:
// no state is carried between calls and the same profile always yields the
// same ScoredLead.
type Engine struct {
	criteria model.QualificationCriteria
	weights  model.ScoringWeights
	policy   model.EmptyCriterionPolicy
}

// New creates a scoring engine. Invalid weights or criteria are a
// configuration error and abort before any profile is scored.
func New(criteria model.QualificationCriteria, weights model.ScoringWeights, policy model.EmptyCriterionPolicy) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = model.EmptyCriterionSkip
	}
	return &Engine{criteria: criteria, weights: weights, policy: policy}, nil
}

// criterion sub-score with its contribution metadata. Criteria whose target
// set is empty are inactive; how their weight is treated depends on the
// empty-criterion policy.
type subScore struct {
	weight float64
	score  float64
	active bool
	reason string
}

// Score computes the weighted total score and per-criterion breakdown for a
// single profile. Missing profile fields score as non-matches, never errors.
func (e *Engine) Score(profile model.RawProfile) model.ScoredLead {
	title := e.scoreJobTitle(profile)
	industry := e.scoreIndustry(profile)
	location := e.scoreLocation(profile)
	experience := e.scoreExperience(profile)
	size := e.scoreCompanySize(profile)
	skills, matchedSkills := e.scoreSkills(profile)

	// Fixed criterion order keeps reasons reproducible.
	subs := []subScore{title, industry, location, experience, size, skills}

	var weightSum, total float64
	for _, s := range subs {
		if !s.active && e.policy == model.EmptyCriterionSkip {
			continue
		}
		weightSum += s.weight
		if s.active {
			total += s.weight * s.score
		}
	}
	if e.policy == model.EmptyCriterionSkip && weightSum > 0 {
		total /= weightSum
	}
	total *= 100

	var reasons []string
	for _, s := range subs {
		if s.active && s.score > 0 && s.reason != "" {
			reasons = append(reasons, s.reason)
		}
	}

	return model.ScoredLead{
		Profile:    profile,
		TotalScore: math.Round(total*100) / 100,
		Breakdown: model.ScoreBreakdown{
			JobTitle:      title.score,
			Industry:      industry.score,
			Location:      location.score,
			Experience:    experience.score,
			CompanySize:   size.score,
			Skills:        skills.score,
			MatchedSkills: matchedSkills,
		},
		QualificationReasons: reasons,
		ScoredAt:             time.Now().UTC(),
	}
}

func (e *Engine) scoreJobTitle(profile model.RawProfile) subScore {
	s := subScore{weight: e.weights.JobTitle, active: len(e.criteria.TargetJobTitles) > 0}
	if !s.active || profile.CurrentPosition == "" {
		return s
	}

	position := strings.ToLower(strings.TrimSpace(profile.CurrentPosition))
	for _, target := range e.criteria.TargetJobTitles {
		if strings.EqualFold(strings.TrimSpace(target), position) {
			s.score = 1.0
			s.reason = "Perfect job title match: " + target
			return s
		}
	}
	for _, target := range e.criteria.TargetJobTitles {
		t := strings.ToLower(strings.TrimSpace(target))
		if t == "" {
			continue
		}
		if strings.Contains(position, t) || strings.Contains(t, position) || sharesToken(position, t) {
			s.score = 0.6
			s.reason = "Partial job title match: " + target
			return s
		}
	}
	return s
}

func (e *Engine) scoreIndustry(profile model.RawProfile) subScore {
	s := subScore{weight: e.weights.Industry, active: len(e.criteria.TargetIndustries) > 0}
	if !s.active || profile.Industry == "" {
		return s
	}

	for _, target := range e.criteria.TargetIndustries {
		if strings.EqualFold(strings.TrimSpace(target), strings.TrimSpace(profile.Industry)) {
			s.score = 1.0
			s.reason = "Target industry match: " + target
			return s
		}
	}
	return s
}

func (e *Engine) scoreLocation(profile model.RawProfile) subScore {
	s := subScore{weight: e.weights.Location, active: len(e.criteria.TargetLocations) > 0}
	if !s.active || profile.Location == "" {
		return s
	}

	location := strings.ToLower(strings.TrimSpace(profile.Location))
	for _, target := range e.criteria.TargetLocations {
		t := strings.ToLower(strings.TrimSpace(target))
		if t == "" {
			continue
		}
		// Substring match covers both city targets ("San Francisco" in
		// "San Francisco Bay Area") and "Remote" style targets.
		if strings.Contains(location, t) || strings.Contains(t, location) {
			s.score = 1.0
			s.reason = "Excellent location match: " + target
			return s
		}
	}
	for _, target := range e.criteria.TargetLocations {
		// Shared region token, e.g. the same state or country segment.
		if sharesToken(location, strings.ToLower(target)) {
			s.score = 0.5
			s.reason = "Partial region match: " + target
			return s
		}
	}
	return s
}

func (e *Engine) scoreExperience(profile model.RawProfile) subScore {
	s := subScore{weight: e.weights.Experience, active: true}

	minYears := e.criteria.MinExperienceYears
	if minYears <= 0 {
		s.score = 1.0
		return s
	}

	years := profile.ExperienceYears
	if years <= 0 {
		return s
	}

	if years >= minYears {
		// Base credit for meeting the bar, plus a bonus that grows with
		// every two extra years.
		bonus := 0.05 * float64((years-minYears)/2)
		s.score = math.Min(1.0, 0.8+bonus)
		s.reason = fmt.Sprintf("Excellent experience level: %d years (meets %d+ requirement)", years, minYears)
		if bonus > 0 {
			s.reason += " with bonus"
		}
		return s
	}

	s.score = float64(years) / float64(minYears) * 0.8
	s.reason = fmt.Sprintf("Some experience: %d years (below %d requirement)", years, minYears)
	return s
}

func (e *Engine) scoreCompanySize(profile model.RawProfile) subScore {
	s := subScore{weight: e.weights.CompanySize, active: len(e.criteria.TargetCompanySizes) > 0}
	if !s.active {
		return s
	}

	idx := model.CompanySizeBandIndex(profile.CompanySize)
	if idx < 0 {
		return s
	}

	bestDistance := -1
	for _, target := range e.criteria.TargetCompanySizes {
		tIdx := model.CompanySizeBandIndex(target)
		if tIdx < 0 {
			continue
		}
		d := tIdx - idx
		if d < 0 {
			d = -d
		}
		if bestDistance < 0 || d < bestDistance {
			bestDistance = d
		}
	}

	switch bestDistance {
	case 0:
		s.score = 1.0
		s.reason = "Company size match: " + profile.CompanySize
	case 1:
		s.score = 0.5
		s.reason = "Adjacent company size: " + profile.CompanySize
	}
	return s
}

func (e *Engine) scoreSkills(profile model.RawProfile) (subScore, []string) {
	s := subScore{weight: e.weights.Skills, active: len(e.criteria.RequiredSkills) > 0}
	if !s.active || len(profile.Skills) == 0 {
		return s, nil
	}

	// Matched subset keeps the original required-skills order.
	var matched []string
	for _, required := range e.criteria.RequiredSkills {
		r := strings.ToLower(strings.TrimSpace(required))
		for _, skill := range profile.Skills {
			ps := strings.ToLower(strings.TrimSpace(skill))
			if ps == r || strings.Contains(ps, r) {
				matched = append(matched, required)
				break
			}
		}
	}

	if len(matched) == 0 {
		return s, nil
	}

	s.score = float64(len(matched)) / math.Max(1, float64(len(e.criteria.RequiredSkills)))
	s.reason = fmt.Sprintf("Has %d required skills: %s", len(matched), strings.Join(matched, ", "))
	return s, matched
}

// stopTokens are connector words that never count as a shared token.
var stopTokens = map[string]struct{}{
	"of": {}, "at": {}, "in": {}, "to": {}, "and": {}, "the": {}, "for": {},
}

// sharesToken reports whether the two lowercase strings share a meaningful
// word, splitting on spaces, commas, slashes, and hyphens. Two-character
// tokens are kept so state codes like "ca" and "ny" still match.
func sharesToken(a, b string) bool {
	for _, ta := range tokenize(a) {
		for _, tb := range tokenize(b) {
			if ta == tb {
				return true
			}
		}
	}
	return false
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == '-'
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopTokens[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
