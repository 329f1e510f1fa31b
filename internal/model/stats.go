package model

import (
	"time"
)

// RunStats summarizes a single batch run. Accumulated by the pipeline's
// collector while the run is in flight and frozen at completion.
type RunStats struct {
	TotalRequested int           `json:"total_requested"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Qualified      int           `json:"qualified"`
	AverageScore   float64       `json:"average_score"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// SuccessRate returns succeeded as a percentage of total requested.
func (s RunStats) SuccessRate() float64 {
	if s.TotalRequested == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.TotalRequested) * 100
}

// QualificationRate returns qualified as a percentage of succeeded fetches.
func (s RunStats) QualificationRate() float64 {
	if s.Succeeded == 0 {
		return 0
	}
	return float64(s.Qualified) / float64(s.Succeeded) * 100
}

// RunStatus represents the state of an archived qualification run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is an archived qualification run: the input document digest, the
// qualified leads, and the run statistics.
type Run struct {
	ID        string       `json:"id"`
	Status    RunStatus    `json:"status"`
	Input     BatchInput   `json:"input"`
	Leads     []ScoredLead `json:"leads,omitempty"`
	Stats     RunStats     `json:"stats"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
