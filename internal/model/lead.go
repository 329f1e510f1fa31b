package model

import (
	"time"
)

// ScoreBreakdown holds the per-criterion sub-scores (each in [0,1]) behind a
// lead's total score, for output transparency.
type ScoreBreakdown struct {
	JobTitle    float64 `json:"job_title_score"`
	Industry    float64 `json:"industry_score"`
	Location    float64 `json:"location_score"`
	Experience  float64 `json:"experience_score"`
	CompanySize float64 `json:"company_size_score"`
	Skills      float64 `json:"skills_score"`

	// MatchedSkills lists the required skills the profile has, in the
	// original required-skills order.
	MatchedSkills []string `json:"matched_skills,omitempty"`
}

// ScoredLead is a profile with its qualification score attached. Created by
// the scoring engine and never mutated afterward.
type ScoredLead struct {
	Profile RawProfile `json:"profile"`

	TotalScore           float64        `json:"total_score"`
	Breakdown            ScoreBreakdown `json:"breakdown"`
	QualificationReasons []string       `json:"qualification_reasons"`
	ScoredAt             time.Time      `json:"scored_at"`
}
