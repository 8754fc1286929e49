package service

import (
	"context"

	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/store"
	"github.com/goodjin/migratehero/internal/workerapi"
)

// Tracker defines the operations the HTTP layer needs from the tracking service.
// Used for dependency injection and mocking in tests.
type Tracker interface {
	// View returns the reconciled view of a job, watching it first if needed.
	View(ctx context.Context, jobID string) (domain.JobView, error)
	// Watch starts the push subscription and poller of a job. Idempotent.
	Watch(ctx context.Context, jobID string) error
	// Unwatch stops tracking a job and releases its adapters. Idempotent.
	Unwatch(jobID string) error
	// SelectFolder selects the folder whose items are fetched.
	SelectFolder(ctx context.Context, jobID, folder string) error
	// Items returns the selected folder and its latest migrated items.
	Items(jobID string) (string, []domain.MigratedItem, error)
	// Subscribe streams view changes of a watched job.
	Subscribe(jobID string) (<-chan store.Change, func(), error)
	// Control issues a control action and returns the view after it was applied.
	Control(ctx context.Context, jobID string, action workerapi.Action) (domain.JobView, error)
	// Close stops every watched job.
	Close()
}
