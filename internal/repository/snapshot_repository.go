package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goodjin/migratehero/internal/domain"
)

// ItemsLimit caps the item records returned for one folder, newest first.
const ItemsLimit = 1000

// PostgresSnapshotRepository reads job snapshots straight from the worker's
// progress tables on a read replica. It never writes.
type PostgresSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotRepository creates a new PostgresSnapshotRepository.
func NewPostgresSnapshotRepository(pool *pgxpool.Pool) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{pool: pool}
}

// taskID converts the opaque job id into the worker's numeric key. Ids that
// are not numeric cannot exist in the worker's tables.
func taskID(jobID string) (int64, error) {
	id, err := strconv.ParseInt(jobID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	return id, nil
}

// FetchJob returns the task row as a poll event. The recency marker is the
// database clock at query time.
func (r *PostgresSnapshotRepository) FetchJob(ctx context.Context, jobID string) (domain.ProgressEvent, error) {
	id, err := taskID(jobID)
	if err != nil {
		return domain.ProgressEvent{}, err
	}

	var (
		status                        string
		sourceEmail, sourceURL        string
		targetEmail, targetHost       string
		totalFolders, migratedFolders int64
		emails, calendar, contacts    domain.Counter
		currentFolder                 *string
		errMsg, failedEndpoint        string
		failedRequest, failedResponse string
		createdAt                     time.Time
		startedAt, completedAt        *time.Time
		queriedAt                     time.Time
	)
	err = r.pool.QueryRow(ctx, `
		SELECT status, source_email, source_ews_url, target_email, target_imap_host,
			COALESCE(total_folders, 0), COALESCE(migrated_folders, 0),
			COALESCE(total_emails, 0), COALESCE(migrated_emails, 0), COALESCE(failed_emails, 0),
			COALESCE(total_calendar_events, 0), COALESCE(migrated_calendar_events, 0), COALESCE(failed_calendar_events, 0),
			COALESCE(total_contacts, 0), COALESCE(migrated_contacts, 0), COALESCE(failed_contacts, 0),
			current_folder,
			COALESCE(error_message, ''), COALESCE(failed_endpoint, ''),
			COALESCE(failed_request, ''), COALESCE(failed_response, ''),
			created_at, started_at, completed_at, clock_timestamp()
		FROM mvp_migration_task
		WHERE id = $1
	`, id).Scan(&status, &sourceEmail, &sourceURL, &targetEmail, &targetHost,
		&totalFolders, &migratedFolders,
		&emails.Total, &emails.Migrated, &emails.Failed,
		&calendar.Total, &calendar.Migrated, &calendar.Failed,
		&contacts.Total, &contacts.Migrated, &contacts.Failed,
		&currentFolder,
		&errMsg, &failedEndpoint, &failedRequest, &failedResponse,
		&createdAt, &startedAt, &completedAt, &queriedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressEvent{}, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ProgressEvent{}, fmt.Errorf("query task: %w", err)
	}

	ev := domain.ProgressEvent{
		JobID:  jobID,
		Marker: domain.MarkerAt(queriedAt),
		Source: domain.SourcePoll,
		Status: domain.JobStatus(strings.ToUpper(status)),
		Counters: map[domain.Category]domain.Counter{
			domain.CategoryEmails:         emails,
			domain.CategoryCalendarEvents: calendar,
			domain.CategoryContacts:       contacts,
		},
		TotalFolders:    &totalFolders,
		MigratedFolders: &migratedFolders,
		CurrentFolder:   currentFolder,
		SourceAccount:   &domain.Endpoint{Email: sourceEmail, Server: sourceURL},
		TargetAccount:   &domain.Endpoint{Email: targetEmail, Server: targetHost},
		CreatedAt:       &createdAt,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
	}
	if errMsg != "" {
		ev.Error = &domain.ErrorContext{
			Message:        errMsg,
			FailedEndpoint: failedEndpoint,
			FailedRequest:  failedRequest,
			FailedResponse: failedResponse,
		}
	}
	return ev, nil
}

// FetchFolders returns the folder rows of the job.
func (r *PostgresSnapshotRepository) FetchFolders(ctx context.Context, jobID string) ([]domain.FolderUpdate, error) {
	id, err := taskID(jobID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, folder_name, COALESCE(display_name, ''), COALESCE(folder_path, ''), status,
			COALESCE(total_emails, 0), COALESCE(migrated_emails, 0), COALESCE(failed_emails, 0),
			started_at, completed_at
		FROM mvp_folder_progress
		WHERE task_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var folders []domain.FolderUpdate
	for rows.Next() {
		var (
			folderID int64
			status   string
			c        domain.Counter
			f        domain.FolderUpdate
		)
		if err := rows.Scan(&folderID, &f.Name, &f.DisplayName, &f.Path, &status,
			&c.Total, &c.Migrated, &c.Failed, &f.StartedAt, &f.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		f.ID = strconv.FormatInt(folderID, 10)
		f.Status = domain.FolderStatus(strings.ToLower(status))
		f.Counter = &c
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// FetchItems returns the newest item records of one folder.
func (r *PostgresSnapshotRepository) FetchItems(ctx context.Context, jobID, folder string) ([]domain.MigratedItem, error) {
	id, err := taskID(jobID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(source_email_id, ''), COALESCE(folder_name, ''), COALESCE(subject, ''),
			COALESCE(from_address, ''), sent_date, COALESCE(size_bytes, 0), COALESCE(success, FALSE),
			error_message, migrated_at
		FROM mvp_migrated_email
		WHERE task_id = $1 AND folder_name = $2
		ORDER BY migrated_at DESC NULLS LAST, id DESC
		LIMIT $3
	`, id, folder, ItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.MigratedItem, 0)
	for rows.Next() {
		var item domain.MigratedItem
		if err := rows.Scan(&item.SourceID, &item.FolderName, &item.Subject, &item.From,
			&item.SentAt, &item.SizeBytes, &item.Success, &item.ErrorMessage, &item.MigratedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
