package repository

import (
	"context"

	"github.com/goodjin/migratehero/internal/domain"
)

// SnapshotRepository defines read-only access to the worker's progress data.
// It satisfies poller.Source.
type SnapshotRepository interface {
	FetchJob(ctx context.Context, jobID string) (domain.ProgressEvent, error)
	FetchFolders(ctx context.Context, jobID string) ([]domain.FolderUpdate, error)
	FetchItems(ctx context.Context, jobID, folder string) ([]domain.MigratedItem, error)
}

var _ SnapshotRepository = (*PostgresSnapshotRepository)(nil)
