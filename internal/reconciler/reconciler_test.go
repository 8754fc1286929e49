package reconciler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodjin/migratehero/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func emails(total, migrated, failed int64) map[domain.Category]domain.Counter {
	return map[domain.Category]domain.Counter{
		domain.CategoryEmails: {Total: total, Migrated: migrated, Failed: failed},
	}
}

func TestMerge_PushThenStalePoll(t *testing.T) {
	view := domain.NewJobView("job-1")
	view.Counters = emails(100, 0, 0)

	view, out := Merge(view, domain.ProgressEvent{
		JobID: "job-1", Marker: 2000, Source: domain.SourcePush,
		Status: domain.JobStatusRunning, Counters: emails(100, 40, 0),
	})
	require.True(t, out.Applied())
	assert.True(t, out.Transitioned)

	view, out = Merge(view, domain.ProgressEvent{
		JobID: "job-1", Marker: 1000, Source: domain.SourcePoll,
		Status: domain.JobStatusRunning, Counters: emails(100, 10, 0),
	})
	assert.True(t, out.Stale)
	assert.Equal(t, int64(40), view.Counter(domain.CategoryEmails).Migrated)
	assert.Equal(t, domain.JobStatusRunning, view.Status)
	assert.Equal(t, 40, view.ProgressPercent)
}

func TestMerge_InvalidStatusKeepsCounters(t *testing.T) {
	view := domain.NewJobView("job-1")
	view.Status = domain.JobStatusRunning
	view.Counters = emails(100, 10, 0)

	view, out := Merge(view, domain.ProgressEvent{
		JobID: "job-1", Marker: 10,
		Status: domain.JobStatusDraft, Counters: emails(100, 30, 2),
	})

	require.Error(t, out.RejectedTransition)
	assert.ErrorIs(t, out.RejectedTransition, domain.ErrInvalidTransition)
	assert.False(t, out.Transitioned)
	assert.Equal(t, domain.JobStatusRunning, view.Status)
	assert.Equal(t, domain.Counter{Total: 100, Migrated: 30, Failed: 2}, view.Counter(domain.CategoryEmails))
	assert.Equal(t, 32, view.ProgressPercent)
}

func TestMerge_RetryClearsError(t *testing.T) {
	view := domain.NewJobView("job-1")
	view.Status = domain.JobStatusFailed
	view.Error = &domain.ErrorContext{Message: "mailbox quota exceeded", FailedEndpoint: "/v1.0/me/messages"}
	view.Marker = 100

	view, out := Merge(view, domain.ProgressEvent{
		JobID: "job-1", Marker: 200, Source: domain.SourceControl, Status: domain.JobStatusRunning,
	})

	assert.True(t, out.Transitioned)
	assert.Equal(t, domain.JobStatusRunning, view.Status)
	assert.Nil(t, view.Error)
}

func TestMerge_ErrorContext(t *testing.T) {
	t.Run("replaced on transition into failure", func(t *testing.T) {
		view := domain.NewJobView("job-1")
		view.Status = domain.JobStatusRunning

		view, _ = Merge(view, domain.ProgressEvent{
			Marker: 1, Status: domain.JobStatusFailed,
			Error: &domain.ErrorContext{Message: "token expired"},
		})
		require.NotNil(t, view.Error)
		assert.Equal(t, "token expired", view.Error.Message)
	})

	t.Run("not replaced while already failed", func(t *testing.T) {
		view := domain.NewJobView("job-1")
		view.Status = domain.JobStatusFailed
		view.Error = &domain.ErrorContext{Message: "first"}

		view, _ = Merge(view, domain.ProgressEvent{
			Marker: 1, Status: domain.JobStatusFailed,
			Error: &domain.ErrorContext{Message: "second"},
		})
		assert.Equal(t, "first", view.Error.Message)
	})

	t.Run("filled when status notice arrived first", func(t *testing.T) {
		view := domain.NewJobView("job-1")
		view.Status = domain.JobStatusRunning

		view, _ = Merge(view, domain.ProgressEvent{Marker: 1, Status: domain.JobStatusFailed})
		assert.Nil(t, view.Error)

		view, _ = Merge(view, domain.ProgressEvent{
			Marker: 2, Status: domain.JobStatusFailed,
			Error: &domain.ErrorContext{Message: "detail"},
		})
		require.NotNil(t, view.Error)
		assert.Equal(t, "detail", view.Error.Message)
	})

	t.Run("ignored outside failure", func(t *testing.T) {
		view := domain.NewJobView("job-1")
		view.Status = domain.JobStatusRunning

		view, _ = Merge(view, domain.ProgressEvent{
			Marker: 1, Error: &domain.ErrorContext{Message: "noise"},
		})
		assert.Nil(t, view.Error)
	})
}

func TestMerge_FolderAggregate(t *testing.T) {
	view := domain.NewJobView("job-1")
	view.Status = domain.JobStatusRunning

	view, _ = Merge(view, domain.ProgressEvent{
		Marker: 1,
		Folders: []domain.FolderUpdate{
			{ID: "A", Name: "Inbox", Status: domain.FolderStatusCompleted, Counter: &domain.Counter{Total: 10, Migrated: 10}},
			{ID: "B", Name: "Sent", Status: domain.FolderStatusInProgress, Counter: &domain.Counter{Total: 5, Migrated: 3}},
		},
	})
	assert.Equal(t, int64(2), view.TotalFolders)
	assert.Equal(t, int64(1), view.MigratedFolders)

	view, _ = Merge(view, domain.ProgressEvent{
		Marker:          2,
		TotalFolders:    int64Ptr(7),
		MigratedFolders: int64Ptr(0),
		Folders: []domain.FolderUpdate{
			{ID: "A", Counter: &domain.Counter{Total: 10, Migrated: 5}},
		},
	})
	assert.Equal(t, int64(2), view.TotalFolders)
	assert.Equal(t, int64(1), view.MigratedFolders)
	assert.Equal(t, int64(10), view.Folders["A"].Counter.Migrated)
	assert.Equal(t, 100, view.Folders["A"].ProgressPercent)
	assert.Equal(t, 60, view.Folders["B"].ProgressPercent)
}

func TestMerge_JobLevelFolderCountsBeforeEnumeration(t *testing.T) {
	view := domain.NewJobView("job-1")

	view, _ = Merge(view, domain.ProgressEvent{Marker: 1, TotalFolders: int64Ptr(4), MigratedFolders: int64Ptr(1)})
	assert.Equal(t, int64(4), view.TotalFolders)
	assert.Equal(t, int64(1), view.MigratedFolders)

	view, _ = Merge(view, domain.ProgressEvent{Marker: 2, TotalFolders: int64Ptr(3)})
	assert.Equal(t, int64(4), view.TotalFolders)
}

func TestMerge_FolderTransitions(t *testing.T) {
	view := domain.NewJobView("job-1")
	view.Folders["A"] = &domain.FolderView{ID: "A", Status: domain.FolderStatusCompleted}

	view, out := Merge(view, domain.ProgressEvent{
		Marker:  1,
		Folders: []domain.FolderUpdate{{ID: "A", Status: domain.FolderStatusInProgress}},
	})
	require.Len(t, out.RejectedFolders, 1)
	assert.Equal(t, domain.FolderStatusCompleted, view.Folders["A"].Status)
}

func TestMerge_RetriedFolderCompletes(t *testing.T) {
	failedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doneAt := failedAt.Add(time.Hour)
	view := domain.NewJobView("job-1")
	view.Status = domain.JobStatusRunning

	view, _ = Merge(view, domain.ProgressEvent{
		Marker: 1,
		Folders: []domain.FolderUpdate{
			{ID: "A", Name: "Inbox", Status: domain.FolderStatusFailed, Counter: &domain.Counter{Total: 10, Migrated: 4, Failed: 6}, CompletedAt: &failedAt},
		},
	})
	require.NotNil(t, view.Folders["A"].CompletedAt)
	assert.Equal(t, failedAt, *view.Folders["A"].CompletedAt)
	assert.Equal(t, int64(0), view.MigratedFolders)

	// The retry's in_progress sample is never observed.
	for marker := int64(2); marker <= 5; marker++ {
		var out Outcome
		view, out = Merge(view, domain.ProgressEvent{
			Marker: marker,
			Folders: []domain.FolderUpdate{
				{ID: "A", Status: domain.FolderStatusCompleted, Counter: &domain.Counter{Total: 10, Migrated: 10}, CompletedAt: &doneAt},
			},
		})
		assert.Empty(t, out.RejectedFolders)
	}
	assert.Equal(t, domain.FolderStatusCompleted, view.Folders["A"].Status)
	assert.Equal(t, doneAt, *view.Folders["A"].CompletedAt)
	assert.Equal(t, int64(1), view.TotalFolders)
	assert.Equal(t, int64(1), view.MigratedFolders)
}

func TestMerge_PhaseMonotonic(t *testing.T) {
	view := domain.NewJobView("job-1")
	view, _ = Merge(view, domain.ProgressEvent{Marker: 1, Phase: domain.PhaseIncrementalSync})
	view, _ = Merge(view, domain.ProgressEvent{Marker: 2, Phase: domain.PhaseInitialSync})
	assert.Equal(t, domain.PhaseIncrementalSync, view.Phase)

	view, _ = Merge(view, domain.ProgressEvent{Marker: 3, Phase: domain.PhaseGoLive})
	assert.Equal(t, domain.PhaseGoLive, view.Phase)
}

func TestMerge_CounterInvariant(t *testing.T) {
	view := domain.NewJobView("job-1")
	view, _ = Merge(view, domain.ProgressEvent{Marker: 1, Counters: emails(10, 0, 0)})
	view, _ = Merge(view, domain.ProgressEvent{Marker: 2, Counters: emails(5, 9, 3)})

	c := view.Counter(domain.CategoryEmails)
	assert.Equal(t, domain.Counter{Total: 12, Migrated: 9, Failed: 3}, c)
	assert.LessOrEqual(t, c.Processed(), c.Total)
	assert.Equal(t, 100, view.ProgressPercent)
}

func TestMerge_ZeroTotals(t *testing.T) {
	view, _ := Merge(domain.NewJobView("job-1"), domain.ProgressEvent{
		Marker: 1, Status: domain.JobStatusRunning,
	})
	assert.Equal(t, 0, view.ProgressPercent)
}

func TestMerge_Idempotent(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := domain.ProgressEvent{
		JobID: "job-1", Marker: 5000, Status: domain.JobStatusRunning, Phase: domain.PhaseInitialSync,
		Counters:  emails(50, 20, 1),
		StartedAt: &started,
		Folders: []domain.FolderUpdate{
			{ID: "A", Status: domain.FolderStatusInProgress, Counter: &domain.Counter{Total: 50, Migrated: 20, Failed: 1}},
		},
	}

	once, _ := Merge(domain.NewJobView("job-1"), ev)
	twice, out := Merge(once, ev)

	assert.True(t, out.Applied())
	assert.False(t, out.Transitioned)
	assert.Equal(t, once, twice)
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	view := domain.NewJobView("job-1")
	view.Counters = emails(10, 1, 0)

	_, _ = Merge(view, domain.ProgressEvent{Marker: 1, Counters: emails(10, 5, 0)})
	assert.Equal(t, int64(1), view.Counter(domain.CategoryEmails).Migrated)
}

func TestMerge_Throughput(t *testing.T) {
	view := domain.NewJobView("job-1")
	view, _ = Merge(view, domain.ProgressEvent{Marker: 1000, Status: domain.JobStatusRunning, Counters: emails(100, 0, 0)})
	view, _ = Merge(view, domain.ProgressEvent{Marker: 3000, Counters: emails(100, 20, 0)})

	assert.InDelta(t, 10.0, view.Throughput, 0.001)
	assert.Equal(t, int64(8), view.ETASeconds)

	view, _ = Merge(view, domain.ProgressEvent{Marker: 4000, Status: domain.JobStatusPaused, Counters: emails(100, 30, 0)})
	assert.InDelta(t, 10.0, view.Throughput, 0.001)
}

func TestMerge_TimestampsFromTransitions(t *testing.T) {
	view := domain.NewJobView("job-1")
	view, _ = Merge(view, domain.ProgressEvent{Marker: 1000, Status: domain.JobStatusRunning})
	require.NotNil(t, view.StartedAt)
	assert.Equal(t, int64(1000), view.StartedAt.UnixMilli())
	assert.Nil(t, view.CompletedAt)

	view, _ = Merge(view, domain.ProgressEvent{Marker: 9000, Status: domain.JobStatusCompleted})
	require.NotNil(t, view.CompletedAt)
	assert.Equal(t, int64(9000), view.CompletedAt.UnixMilli())
}

// randomEvent builds a partial event with arbitrary status, phase and counters.
func randomEvent(r *rand.Rand, marker int64) domain.ProgressEvent {
	ev := domain.ProgressEvent{JobID: "job-1", Marker: marker}
	if r.Intn(2) == 0 {
		ev.Status = domain.ValidJobStatuses[r.Intn(len(domain.ValidJobStatuses))]
	}
	if r.Intn(3) == 0 {
		phases := []domain.Phase{domain.PhaseInitialSync, domain.PhaseIncrementalSync, domain.PhaseGoLive}
		ev.Phase = phases[r.Intn(len(phases))]
	}
	ev.Counters = map[domain.Category]domain.Counter{}
	for _, c := range domain.TrackedCategories {
		if r.Intn(2) == 0 {
			m, f := r.Int63n(100), r.Int63n(20)
			ev.Counters[c] = domain.Counter{Total: m + f + r.Int63n(100), Migrated: m, Failed: f}
		}
	}
	return ev
}

func TestMerge_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		view := domain.NewJobView("job-1")
		for step := 0; step < 30; step++ {
			ev := randomEvent(r, r.Int63n(50))
			next, out := Merge(view, ev)

			if out.Stale {
				assert.Equal(t, view, next, "stale event changed view")
				continue
			}
			for _, c := range domain.TrackedCategories {
				before, after := view.Counter(c), next.Counter(c)
				assert.GreaterOrEqual(t, after.Total, before.Total)
				assert.GreaterOrEqual(t, after.Migrated, before.Migrated)
				assert.GreaterOrEqual(t, after.Failed, before.Failed)
				assert.LessOrEqual(t, after.Processed(), after.Total)
			}
			assert.GreaterOrEqual(t, next.Phase.Rank(), view.Phase.Rank())
			assert.GreaterOrEqual(t, next.ProgressPercent, 0)
			assert.LessOrEqual(t, next.ProgressPercent, 100)
			if next.Total() == 0 {
				assert.Equal(t, 0, next.ProgressPercent)
			}
			if next.Status != view.Status {
				assert.True(t, domain.CanTransition(view.Status, next.Status))
			}

			again, _ := Merge(next, ev)
			assert.Equal(t, next, again, "re-applying event changed view")

			view = next
		}
	}
}
