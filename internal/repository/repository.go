// Package repository provides database abstraction for the ptrack service.
package repository

import (
	"context"

	"github.com/ptrackio/ptrack/pkg/model"
)

// PartitionRunRepository defines the interface for persisting and querying
// completed teardown analyses. GormPartitionRunRepository is its only
// implementation; it also satisfies internal/analysisdriver.Recorder.
type PartitionRunRepository interface {
	// SaveRun persists a completed teardown analysis.
	SaveRun(ctx context.Context, run *model.PartitionRun) error

	// GetRunByID retrieves a run by its UUID.
	GetRunByID(ctx context.Context, runID string) (*model.PartitionRun, error)

	// ListRecentRuns retrieves the most recent runs, newest first, for the
	// status page.
	ListRecentRuns(ctx context.Context, limit int) ([]*model.PartitionRun, error)
}
