// Package reconciler merges progress events arriving from independent channels
// into one authoritative job view.
//
// Merge is a pure function: it never mutates its input and is safe to call
// repeatedly and out of order. Re-applying an event, or applying an event older
// than the current view, leaves the view unchanged.
package reconciler

import (
	"math"

	"github.com/samber/lo"

	"github.com/goodjin/migratehero/internal/domain"
)

// throughputSmoothing is the EWMA weight given to the newest rate sample.
const throughputSmoothing = 0.3

// Outcome describes what Merge did with an event.
type Outcome struct {
	// Stale is set when the event was older than the view and discarded.
	Stale bool
	// Transitioned is set when the job status changed.
	Transitioned bool
	PrevStatus   domain.JobStatus
	// RejectedTransition holds the state machine error for a dropped status.
	RejectedTransition error
	// RejectedFolders holds the errors for dropped folder statuses.
	RejectedFolders []error
}

// Applied reports whether the event was merged into the view.
func (o Outcome) Applied() bool {
	return !o.Stale
}

// Merge applies ev on top of current and returns the new view.
func Merge(current domain.JobView, ev domain.ProgressEvent) (domain.JobView, Outcome) {
	out := Outcome{PrevStatus: current.Status}
	if ev.Marker < current.Marker {
		out.Stale = true
		return current, out
	}

	next := current.Clone()
	next.Marker = ev.Marker

	mergeStatus(&next, current.Status, ev, &out)
	mergeMetadata(&next, ev)

	if ev.Phase.Rank() > next.Phase.Rank() {
		next.Phase = ev.Phase
	}

	for c, in := range ev.Counters {
		next.Counters[c] = maxCounter(next.Counters[c], in)
	}

	out.RejectedFolders = mergeFolders(&next, ev.Folders)
	aggregateFolders(&next, ev)

	next.ProgressPercent = domain.Percent(next.Processed(), next.Total())
	updateThroughput(&next, ev.Marker)

	return next, out
}

func mergeStatus(next *domain.JobView, prev domain.JobStatus, ev domain.ProgressEvent, out *Outcome) {
	if ev.Status != "" && ev.Status != prev {
		if err := domain.ValidateTransition(prev, ev.Status); err != nil {
			out.RejectedTransition = err
		} else {
			next.Status = ev.Status
			out.Transitioned = true
		}
	}

	switch {
	case out.Transitioned && next.Status.IsFailure():
		next.Error = copyError(ev.Error)
	case out.Transitioned:
		next.Error = nil
	case next.Status.IsFailure() && next.Error == nil:
		// First report of the failure detail may trail the status notice.
		next.Error = copyError(ev.Error)
	}

	if !out.Transitioned {
		return
	}
	at := domain.MarkerTime(ev.Marker)
	if next.Status == domain.JobStatusRunning && next.StartedAt == nil {
		next.StartedAt = &at
	}
	if next.Status.IsTerminal() {
		next.CompletedAt = &at
		next.ETASeconds = 0
	}
	if next.Status == domain.JobStatusRunning {
		next.CompletedAt = nil
	}
}

func mergeMetadata(next *domain.JobView, ev domain.ProgressEvent) {
	if ev.SourceAccount != nil {
		next.Source = *ev.SourceAccount
	}
	if ev.TargetAccount != nil {
		next.Target = *ev.TargetAccount
	}
	if ev.CurrentFolder != nil {
		next.CurrentFolder = *ev.CurrentFolder
	}
	if ev.CreatedAt != nil && next.CreatedAt == nil {
		t := *ev.CreatedAt
		next.CreatedAt = &t
	}
	// Remote timestamps win over the local marker time once known.
	if ev.StartedAt != nil && next.Status != domain.JobStatusDraft && next.Status != domain.JobStatusScheduled {
		t := *ev.StartedAt
		next.StartedAt = &t
	}
	if ev.CompletedAt != nil && next.Status.IsTerminal() {
		t := *ev.CompletedAt
		next.CompletedAt = &t
	}
}

func mergeFolders(next *domain.JobView, updates []domain.FolderUpdate) []error {
	var rejected []error
	for _, u := range updates {
		if u.ID == "" {
			continue
		}
		f, ok := next.Folders[u.ID]
		if !ok {
			f = &domain.FolderView{ID: u.ID, Status: domain.FolderStatusPending}
			next.Folders[u.ID] = f
		}
		if u.Name != "" {
			f.Name = u.Name
		}
		if u.DisplayName != "" {
			f.DisplayName = u.DisplayName
		}
		if u.Path != "" {
			f.Path = u.Path
		}
		if u.Status != "" {
			if err := domain.ValidateFolderTransition(f.Status, u.Status); err != nil {
				rejected = append(rejected, err)
			} else {
				f.Status = u.Status
			}
		}
		if u.Counter != nil {
			f.Counter = maxCounter(f.Counter, *u.Counter)
		}
		if u.StartedAt != nil && f.StartedAt == nil {
			t := *u.StartedAt
			f.StartedAt = &t
		}
		if u.CompletedAt != nil && (f.Status == domain.FolderStatusCompleted || f.Status == domain.FolderStatusFailed) {
			t := *u.CompletedAt
			f.CompletedAt = &t
		}
		f.ProgressPercent = f.Counter.Percent()
	}
	return rejected
}

// aggregateFolders derives the folder-completion counters from the folder map.
// Job-level values are only used while no folder is known; previously exposed
// values act as a floor so the aggregate never regresses.
func aggregateFolders(next *domain.JobView, ev domain.ProgressEvent) {
	if len(next.Folders) == 0 {
		if ev.TotalFolders != nil && *ev.TotalFolders > next.TotalFolders {
			next.TotalFolders = *ev.TotalFolders
		}
		if ev.MigratedFolders != nil && *ev.MigratedFolders > next.MigratedFolders {
			next.MigratedFolders = *ev.MigratedFolders
		}
	} else {
		folders := lo.Values(next.Folders)
		completed := int64(lo.CountBy(folders, func(f *domain.FolderView) bool {
			return f.Status == domain.FolderStatusCompleted
		}))
		next.TotalFolders = max(next.TotalFolders, int64(len(folders)))
		next.MigratedFolders = max(next.MigratedFolders, completed)
	}
	next.TotalFolders = max(next.TotalFolders, next.MigratedFolders)
}

// updateThroughput keeps an exponentially weighted items/second rate while the
// job runs and derives the remaining-time estimate from it.
func updateThroughput(next *domain.JobView, marker int64) {
	if next.Status != domain.JobStatusRunning {
		return
	}
	processed := next.Processed()
	if next.SampleMarker == 0 {
		next.SampleMarker, next.SampleProcessed = marker, processed
		return
	}
	if marker <= next.SampleMarker || processed <= next.SampleProcessed {
		return
	}

	seconds := float64(marker-next.SampleMarker) / 1000
	rate := float64(processed-next.SampleProcessed) / seconds
	if next.Throughput == 0 {
		next.Throughput = rate
	} else {
		next.Throughput = throughputSmoothing*rate + (1-throughputSmoothing)*next.Throughput
	}
	next.SampleMarker, next.SampleProcessed = marker, processed

	remaining := next.Total() - processed
	if remaining <= 0 || next.Throughput <= 0 {
		next.ETASeconds = 0
		return
	}
	next.ETASeconds = int64(math.Ceil(float64(remaining) / next.Throughput))
}

func maxCounter(a, b domain.Counter) domain.Counter {
	c := domain.Counter{
		Total:    max(a.Total, b.Total),
		Migrated: max(a.Migrated, b.Migrated),
		Failed:   max(a.Failed, b.Failed),
	}
	c.Total = max(c.Total, c.Migrated+c.Failed)
	return c
}

func copyError(e *domain.ErrorContext) *domain.ErrorContext {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
