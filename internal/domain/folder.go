package domain

import "time"

// FolderStatus represents the migration status of a single mail folder.
type FolderStatus string

const (
	FolderStatusPending    FolderStatus = "pending"
	FolderStatusInProgress FolderStatus = "in_progress"
	FolderStatusCompleted  FolderStatus = "completed"
	FolderStatusFailed     FolderStatus = "failed"
)

// ValidFolderStatuses contains all known folder statuses.
var ValidFolderStatuses = []FolderStatus{
	FolderStatusPending,
	FolderStatusInProgress,
	FolderStatusCompleted,
	FolderStatusFailed,
}

// IsValidFolderStatus checks if a folder status is valid.
func IsValidFolderStatus(status string) bool {
	for _, s := range ValidFolderStatuses {
		if string(s) == status {
			return true
		}
	}
	return false
}

// FolderView is the reconciled state of one folder of a job.
type FolderView struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	DisplayName     string       `json:"display_name,omitempty"`
	Path            string       `json:"path,omitempty"`
	Status          FolderStatus `json:"status"`
	Counter         Counter      `json:"counter"`
	ProgressPercent int          `json:"progress_percent"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

func (f *FolderView) clone() FolderView {
	out := *f
	out.StartedAt = cloneTime(f.StartedAt)
	out.CompletedAt = cloneTime(f.CompletedAt)
	return out
}

// MigratedItem is one transferred unit reported by the remote worker. Display only.
type MigratedItem struct {
	SourceID     string     `json:"source_id"`
	FolderName   string     `json:"folder_name"`
	Subject      string     `json:"subject,omitempty"`
	From         string     `json:"from,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	SizeBytes    int64      `json:"size_bytes"`
	Success      bool       `json:"success"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	MigratedAt   *time.Time `json:"migrated_at,omitempty"`
}
