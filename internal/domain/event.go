package domain

import "time"

// EventSource identifies the channel a progress event arrived through.
type EventSource string

const (
	SourcePush    EventSource = "push"
	SourcePoll    EventSource = "poll"
	SourceControl EventSource = "control"
)

// ProgressEvent is a recency-stamped, possibly partial snapshot of a job.
// Zero values and nil pointers mean "not reported".
type ProgressEvent struct {
	JobID  string      `json:"job_id"`
	Marker int64       `json:"marker"`
	Source EventSource `json:"source"`

	Status   JobStatus            `json:"status,omitempty"`
	Phase    Phase                `json:"phase,omitempty"`
	Counters map[Category]Counter `json:"counters,omitempty"`
	Folders  []FolderUpdate       `json:"folders,omitempty"`

	// Job-level folder aggregates as reported; ignored once folders are known.
	TotalFolders    *int64 `json:"total_folders,omitempty"`
	MigratedFolders *int64 `json:"migrated_folders,omitempty"`

	Error         *ErrorContext `json:"error,omitempty"`
	CurrentFolder *string       `json:"current_folder,omitempty"`
	SourceAccount *Endpoint     `json:"source_account,omitempty"`
	TargetAccount *Endpoint     `json:"target_account,omitempty"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// FolderUpdate is a partial snapshot of one folder.
type FolderUpdate struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Path        string       `json:"path,omitempty"`
	Status      FolderStatus `json:"status,omitempty"`
	Counter     *Counter     `json:"counter,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// MarkerAt converts a wall-clock time into a recency marker (unix milliseconds).
func MarkerAt(t time.Time) int64 {
	return t.UnixMilli()
}

// MarkerTime converts a recency marker back into a time.
func MarkerTime(marker int64) time.Time {
	return time.UnixMilli(marker)
}
