// Package store holds the reconciled view of every watched job.
package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/reconciler"
)

// ErrUnknownJob is returned for operations on a job that is not tracked.
var ErrUnknownJob = errors.New("unknown job")

// DefaultSubscriberBuffer is used when New is given a non-positive buffer.
const DefaultSubscriberBuffer = 16

// Change is delivered to subscribers after every applied merge.
type Change struct {
	View       domain.JobView
	PrevStatus domain.JobStatus
	Outcome    reconciler.Outcome
}

// StatusChanged reports whether the merge moved the job to a new status.
func (c Change) StatusChanged() bool {
	return c.Outcome.Transitioned
}

type entry struct {
	view     domain.JobView
	selected string
	items    []domain.MigratedItem
	subs     map[uuid.UUID]chan Change
}

// Store keeps one view per job. It is safe for concurrent use; the view of a
// job is only ever replaced through Apply.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	buffer int
}

// New creates an empty store whose subscriptions buffer up to buffer changes.
func New(buffer int) *Store {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Store{
		jobs:   make(map[string]*entry),
		buffer: buffer,
	}
}

// Track starts holding a view for jobID. It reports false if the job was already tracked.
func (s *Store) Track(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; ok {
		return false
	}
	s.jobs[jobID] = &entry{
		view: domain.NewJobView(jobID),
		subs: make(map[uuid.UUID]chan Change),
	}
	return true
}

// Untrack drops the view for jobID and closes its subscriptions. Safe to call repeatedly.
func (s *Store) Untrack(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return
	}
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	delete(s.jobs, jobID)
}

// Tracked returns the ids of all tracked jobs.
func (s *Store) Tracked() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Get returns a copy of the current view of jobID.
func (s *Store) Get(jobID string) (domain.JobView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return domain.JobView{}, ErrUnknownJob
	}
	return e.view.Clone(), nil
}

// Apply merges ev into the job's view and notifies subscribers when it was applied.
func (s *Store) Apply(ev domain.ProgressEvent) (reconciler.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[ev.JobID]
	if !ok {
		return reconciler.Outcome{}, ErrUnknownJob
	}

	next, out := reconciler.Merge(e.view, ev)
	if out.Stale {
		return out, nil
	}
	e.view = next

	change := Change{View: next.Clone(), PrevStatus: out.PrevStatus, Outcome: out}
	for _, ch := range e.subs {
		deliver(ch, change)
	}
	return out, nil
}

// deliver never blocks: when the buffer is full the oldest change is dropped
// so that the latest one is always observable.
func deliver(ch chan Change, c Change) {
	select {
	case ch <- c:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- c:
	default:
	}
}

// MarkFetch records the outcome of the latest poll fetch. A nil err clears the flag.
func (s *Store) MarkFetch(jobID string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return ErrUnknownJob
	}
	e.view.LastFetchFailed = err != nil
	e.view.LastFetchError = ""
	if err != nil {
		e.view.LastFetchError = err.Error()
	}
	return nil
}

// Subscribe returns a channel of changes for jobID and a function that cancels
// the subscription. The channel is closed on cancel or when the job is untracked.
func (s *Store) Subscribe(jobID string) (<-chan Change, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return nil, nil, ErrUnknownJob
	}

	id := uuid.New()
	ch := make(chan Change, s.buffer)
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if e, ok := s.jobs[jobID]; ok {
				if c, ok := e.subs[id]; ok {
					close(c)
					delete(e.subs, id)
				}
			}
		})
	}
	return ch, cancel, nil
}

// SelectFolder marks folder as selected for item detail and clears the items
// of the previous selection. An empty folder clears the selection.
func (s *Store) SelectFolder(jobID, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return ErrUnknownJob
	}
	if e.selected != folder {
		e.selected = folder
		e.items = nil
	}
	return nil
}

// SelectedFolder returns the folder currently selected for jobID.
func (s *Store) SelectedFolder(jobID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return "", ErrUnknownJob
	}
	return e.selected, nil
}

// SetItems stores the items fetched for folder. Items for a folder that is no
// longer selected are discarded.
func (s *Store) SetItems(jobID, folder string, items []domain.MigratedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return ErrUnknownJob
	}
	if e.selected == "" || e.selected != folder {
		return nil
	}
	e.items = append([]domain.MigratedItem(nil), items...)
	return nil
}

// Items returns the items of the selected folder.
func (s *Store) Items(jobID string) (string, []domain.MigratedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return "", nil, ErrUnknownJob
	}
	return e.selected, append([]domain.MigratedItem(nil), e.items...), nil
}
