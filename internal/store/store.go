// Package store persists qualification runs so past batches can be listed
// and re-examined. Two backends are provided: SQLite for single-machine use
// and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// RunFilter specifies criteria for listing archived runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run archive.
type Store interface {
	CreateRun(ctx context.Context, input model.BatchInput) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, leads []model.ScoredLead, stats model.RunStats) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
