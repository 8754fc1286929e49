package domain

import (
	"math"
	"time"
)

// JobStatus represents the status of a migration job as reported by the remote worker.
type JobStatus string

const (
	JobStatusDraft               JobStatus = "DRAFT"
	JobStatusScheduled           JobStatus = "SCHEDULED"
	JobStatusRunning             JobStatus = "RUNNING"
	JobStatusPaused              JobStatus = "PAUSED"
	JobStatusCompleted           JobStatus = "COMPLETED"
	JobStatusCompletedWithErrors JobStatus = "COMPLETED_WITH_ERRORS"
	JobStatusFailed              JobStatus = "FAILED"
	JobStatusCancelled           JobStatus = "CANCELLED"
)

// ValidJobStatuses contains all known job statuses.
var ValidJobStatuses = []JobStatus{
	JobStatusDraft,
	JobStatusScheduled,
	JobStatusRunning,
	JobStatusPaused,
	JobStatusCompleted,
	JobStatusCompletedWithErrors,
	JobStatusFailed,
	JobStatusCancelled,
}

// IsValidJobStatus checks if a status is one of the known job statuses.
func IsValidJobStatus(status string) bool {
	for _, s := range ValidJobStatuses {
		if string(s) == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further progress is expected for the job.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCompletedWithErrors, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsFailure reports whether the status communicates a failure to the observer.
func (s JobStatus) IsFailure() bool {
	return s == JobStatusFailed || s == JobStatusCompletedWithErrors
}

// Phase is the coarse stage of the job's transfer strategy.
type Phase string

const (
	PhaseInitialSync     Phase = "INITIAL_SYNC"
	PhaseIncrementalSync Phase = "INCREMENTAL_SYNC"
	PhaseGoLive          Phase = "GO_LIVE"
)

// Rank returns the position of the phase in its progression, or -1 when unknown.
func (p Phase) Rank() int {
	switch p {
	case PhaseInitialSync:
		return 0
	case PhaseIncrementalSync:
		return 1
	case PhaseGoLive:
		return 2
	}
	return -1
}

// Category is a tracked kind of migrated item.
type Category string

const (
	CategoryEmails         Category = "emails"
	CategoryContacts       Category = "contacts"
	CategoryCalendarEvents Category = "calendarEvents"
)

// TrackedCategories lists the categories aggregated into overall progress.
var TrackedCategories = []Category{CategoryEmails, CategoryContacts, CategoryCalendarEvents}

// IsValidCategory checks if a category is tracked.
func IsValidCategory(category string) bool {
	for _, c := range TrackedCategories {
		if string(c) == category {
			return true
		}
	}
	return false
}

// Counter is a (total, migrated, failed) triple. Migrated+Failed never exceeds Total.
type Counter struct {
	Total    int64 `json:"total"`
	Migrated int64 `json:"migrated"`
	Failed   int64 `json:"failed"`
}

// Processed returns the number of items that reached an outcome.
func (c Counter) Processed() int64 {
	return c.Migrated + c.Failed
}

// Percent returns the processed share of the counter in [0,100].
func (c Counter) Percent() int {
	return Percent(c.Processed(), c.Total)
}

// Percent computes round(100*processed/total) clamped to [0,100]; 0 when total is 0.
func Percent(processed, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(processed) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ErrorContext describes the last failure reported by the remote worker.
type ErrorContext struct {
	Message        string `json:"message"`
	FailedEndpoint string `json:"failed_endpoint,omitempty"`
	FailedRequest  string `json:"failed_request,omitempty"`
	FailedResponse string `json:"failed_response,omitempty"`
}

// Endpoint is an opaque account descriptor for one side of the migration.
type Endpoint struct {
	Email  string `json:"email"`
	Server string `json:"server,omitempty"`
}

// JobView is the reconciled, observer-facing state of one migration job.
type JobView struct {
	ID              string                 `json:"id"`
	Source          Endpoint               `json:"source"`
	Target          Endpoint               `json:"target"`
	Status          JobStatus              `json:"status"`
	Phase           Phase                  `json:"phase"`
	Counters        map[Category]Counter   `json:"counters"`
	ProgressPercent int                    `json:"progress_percent"`
	TotalFolders    int64                  `json:"total_folders"`
	MigratedFolders int64                  `json:"migrated_folders"`
	Folders         map[string]*FolderView `json:"folders,omitempty"`
	CurrentFolder   string                 `json:"current_folder,omitempty"`
	Error           *ErrorContext          `json:"error,omitempty"`
	Throughput      float64                `json:"items_per_second"`
	ETASeconds      int64                  `json:"estimated_seconds_remaining"`
	Marker          int64                  `json:"marker"`
	LastFetchFailed bool                   `json:"last_fetch_failed"`
	LastFetchError  string                 `json:"last_fetch_error,omitempty"`
	CreatedAt       *time.Time             `json:"created_at,omitempty"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`

	// Rate sample used for throughput; not part of the read model.
	SampleMarker    int64 `json:"-"`
	SampleProcessed int64 `json:"-"`
}

// NewJobView returns the initial view for a job that has not reported anything yet.
func NewJobView(id string) JobView {
	return JobView{
		ID:       id,
		Status:   JobStatusDraft,
		Counters: make(map[Category]Counter, len(TrackedCategories)),
		Folders:  make(map[string]*FolderView),
	}
}

// Counter returns the counter for a category, zero when unreported.
func (j JobView) Counter(c Category) Counter {
	return j.Counters[c]
}

// Processed sums migrated and failed items across tracked categories.
func (j JobView) Processed() int64 {
	var n int64
	for _, c := range TrackedCategories {
		n += j.Counters[c].Processed()
	}
	return n
}

// Total sums totals across tracked categories.
func (j JobView) Total() int64 {
	var n int64
	for _, c := range TrackedCategories {
		n += j.Counters[c].Total
	}
	return n
}

// Clone returns a deep copy so that callers never share mutable state with the store.
func (j JobView) Clone() JobView {
	out := j
	out.Counters = make(map[Category]Counter, len(j.Counters))
	for k, v := range j.Counters {
		out.Counters[k] = v
	}
	out.Folders = make(map[string]*FolderView, len(j.Folders))
	for k, f := range j.Folders {
		fc := f.clone()
		out.Folders[k] = &fc
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	out.CreatedAt = cloneTime(j.CreatedAt)
	out.StartedAt = cloneTime(j.StartedAt)
	out.CompletedAt = cloneTime(j.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
