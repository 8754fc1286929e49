package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goodjin/migratehero/internal/dispatcher"
	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/metrics"
	"github.com/goodjin/migratehero/internal/poller"
	"github.com/goodjin/migratehero/internal/pushsub"
	"github.com/goodjin/migratehero/internal/store"
	"github.com/goodjin/migratehero/internal/validator"
	"github.com/goodjin/migratehero/internal/workerapi"
)

const (
	// DefaultQueueSize is the capacity of the merge queue shared by all jobs.
	DefaultQueueSize = 256

	// ProbeTimeout bounds the initial snapshot fetched when a job is first watched.
	ProbeTimeout = 10 * time.Second
)

var (
	// ErrClosed is returned after the service was closed.
	ErrClosed = errors.New("tracking service is shutting down")
	// ErrJobNotFound is returned when the worker does not know the job.
	ErrJobNotFound = errors.New("job not found")
	// ErrSourceUnavailable is returned when the first snapshot of a job cannot be fetched.
	ErrSourceUnavailable = errors.New("snapshot source unavailable")
)

// Config holds the per-job adapter settings.
type Config struct {
	Poll      poller.Config
	Push      pushsub.Config
	QueueSize int
}

// Controller is the worker capability needed besides snapshots.
type Controller = dispatcher.Controller

// TrackingService watches jobs: it runs the push subscriber and the poller of
// every watched job and applies their events to the store one at a time.
type TrackingService struct {
	store      *store.Store
	source     poller.Source
	transport  pushsub.Transport
	dispatcher *dispatcher.Dispatcher
	validator  *validator.Validator
	cfg        Config

	events   chan queuedEvent
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	watches   map[string]*watch
}

type queuedEvent struct {
	ev   domain.ProgressEvent
	done chan error // nil for adapter events
}

type watch struct {
	poller *poller.Poller
	sub    *pushsub.Subscriber
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTrackingService creates the service and starts its merge goroutine.
// transport may be nil, in which case jobs are tracked by polling only.
func NewTrackingService(
	st *store.Store,
	source poller.Source,
	ctrl Controller,
	transport pushsub.Transport,
	v *validator.Validator,
	cfg Config,
) *TrackingService {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	s := &TrackingService{
		store:     st,
		source:    source,
		transport: transport,
		validator: v,
		cfg:       cfg,
		events:    make(chan queuedEvent, cfg.QueueSize),
		stopChan:  make(chan struct{}),
		watches:   make(map[string]*watch),
	}
	s.dispatcher = dispatcher.New(ctrl, s.status, s.submit)

	s.wg.Add(1)
	go s.merger()
	return s
}

func (s *TrackingService) merger() {
	defer s.wg.Done()

	for {
		select {
		case q := <-s.events:
			err := s.merge(q.ev)
			if q.done != nil {
				q.done <- err
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *TrackingService) merge(ev domain.ProgressEvent) error {
	log := logger.WithJobID(ev.JobID).With(slog.String("source", string(ev.Source)))

	if err := s.validator.ValidateEvent(&ev); err != nil {
		metrics.ObserveEvent(string(ev.Source), "invalid")
		log.Error("dropping invalid event", slog.String("error", err.Error()))
		return fmt.Errorf("invalid event: %w", err)
	}

	out, err := s.store.Apply(ev)
	if err != nil {
		// The job was unwatched while the event was queued.
		log.Debug("dropping event for untracked job")
		return err
	}
	if out.Stale {
		metrics.ObserveEvent(string(ev.Source), "stale")
		log.Debug("discarded stale event", slog.Int64("marker", ev.Marker))
		return nil
	}
	metrics.ObserveEvent(string(ev.Source), "applied")

	if out.RejectedTransition != nil {
		metrics.ObserveInvalidTransition("job")
		log.Warn("rejected status transition", slog.String("error", out.RejectedTransition.Error()))
	}
	for _, rej := range out.RejectedFolders {
		metrics.ObserveInvalidTransition("folder")
		log.Warn("rejected folder transition", slog.String("error", rej.Error()))
	}
	if out.Transitioned {
		metrics.ObserveTransition(string(ev.Status))
		log.Info("job status changed",
			slog.String("from", string(out.PrevStatus)),
			slog.String("to", string(ev.Status)),
		)
		if !ev.Status.IsTerminal() {
			s.wakePoller(ev.JobID)
		}
	}
	return nil
}

func (s *TrackingService) wakePoller(jobID string) {
	s.mu.RLock()
	w, ok := s.watches[jobID]
	s.mu.RUnlock()
	if ok {
		w.poller.Wake()
	}
}

// enqueue is used by the adapters; it blocks until the event is queued or the
// service stops.
func (s *TrackingService) enqueue(ev domain.ProgressEvent) {
	select {
	case s.events <- queuedEvent{ev: ev}:
	case <-s.stopChan:
	}
}

// submit queues ev and waits until it was merged.
func (s *TrackingService) submit(ctx context.Context, ev domain.ProgressEvent) error {
	done := make(chan error, 1)
	select {
	case s.events <- queuedEvent{ev: ev, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopChan:
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopChan:
		return ErrClosed
	}
}

func (s *TrackingService) status(jobID string) (domain.JobStatus, error) {
	v, err := s.store.Get(jobID)
	if err != nil {
		return "", err
	}
	return v.Status, nil
}

func (s *TrackingService) watching(jobID string) (*watch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.watches[jobID]
	return w, ok
}

// Watch starts tracking jobID. The job's current snapshot is fetched and
// merged before Watch returns so that the first view is populated.
func (s *TrackingService) Watch(ctx context.Context, jobID string) error {
	if err := s.validator.ValidateJobID(jobID); err != nil {
		return err
	}
	if _, ok := s.watching(jobID); ok {
		return nil
	}

	pctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	ev, err := s.source.FetchJob(pctx, jobID)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("%w: fetch job %s: %w", ErrSourceUnavailable, jobID, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.watches[jobID]; ok {
		s.mu.Unlock()
		return nil
	}
	if !s.store.Track(jobID) {
		// Left over from a watch whose adapters are still winding down.
		logger.FromContext(ctx).Debug("reusing tracked view", slog.String("job_id", jobID))
	}
	w := s.start(jobID)
	s.watches[jobID] = w
	s.mu.Unlock()

	metrics.WatchedJobs.Inc()
	logger.FromContext(ctx).Info("watching job", slog.String("job_id", jobID))

	if err := s.submit(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		logger.FromContext(ctx).Warn("initial snapshot not applied",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *TrackingService) start(jobID string) *watch {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	w := &watch{cancel: cancel, done: make(chan struct{})}
	w.poller = poller.New(jobID, s.source, s.cfg.Poll, poller.Hooks{
		ShouldPoll: func() bool {
			status, err := s.status(jobID)
			return err == nil && !status.IsTerminal()
		},
		SelectedFolder: func() string {
			folder, _ := s.store.SelectedFolder(jobID)
			return folder
		},
		OnEvent: s.enqueue,
		OnItems: func(folder string, items []domain.MigratedItem) {
			_ = s.store.SetItems(jobID, folder, items)
		},
		OnFetch: func(err error) {
			_ = s.store.MarkFetch(jobID, err)
		},
	})
	g.Go(func() error { return w.poller.Run(gctx) })

	if s.transport != nil {
		w.sub = pushsub.NewSubscriber(s.transport, jobID, s.cfg.Push, s.enqueue)
		g.Go(func() error { return w.sub.Run(gctx) })
	}

	go func() {
		defer close(w.done)
		if err := g.Wait(); err != nil {
			logger.WithJobID(jobID).Error("job adapters stopped", slog.String("error", err.Error()))
		}
	}()
	return w
}

// Unwatch stops tracking jobID. Unknown jobs are ignored.
func (s *TrackingService) Unwatch(jobID string) error {
	s.mu.Lock()
	w, ok := s.watches[jobID]
	if ok {
		delete(s.watches, jobID)
		// Untracked together with the watch so that a concurrent Watch starts
		// from a fresh entry that the old adapters' shutdown cannot remove.
		s.store.Untrack(jobID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	s.stop(jobID, w)
	return nil
}

func (s *TrackingService) stop(jobID string, w *watch) {
	if w.sub != nil {
		w.sub.Close()
	}
	w.cancel()
	<-w.done
	metrics.WatchedJobs.Dec()
	logger.WithJobID(jobID).Info("stopped watching job")
}

// View returns the reconciled view of jobID, watching it first if needed.
func (s *TrackingService) View(ctx context.Context, jobID string) (domain.JobView, error) {
	if err := s.Watch(ctx, jobID); err != nil {
		return domain.JobView{}, err
	}
	return s.store.Get(jobID)
}

// SelectFolder selects the folder whose items are fetched and requests an
// immediate fetch. An empty folder clears the selection.
func (s *TrackingService) SelectFolder(ctx context.Context, jobID, folder string) error {
	w, ok := s.watching(jobID)
	if !ok {
		return store.ErrUnknownJob
	}
	if err := s.store.SelectFolder(jobID, folder); err != nil {
		return err
	}
	if folder != "" && !w.poller.Trigger() {
		logger.FromContext(ctx).Debug("on-demand fetch deferred to the next poll",
			slog.String("job_id", jobID),
			slog.String("folder", folder),
		)
	}
	return nil
}

func (s *TrackingService) Items(jobID string) (string, []domain.MigratedItem, error) {
	return s.store.Items(jobID)
}

func (s *TrackingService) Subscribe(jobID string) (<-chan store.Change, func(), error) {
	return s.store.Subscribe(jobID)
}

// Control issues action for jobID and returns the view after the resulting
// control event was merged.
func (s *TrackingService) Control(ctx context.Context, jobID string, action workerapi.Action) (domain.JobView, error) {
	if err := s.Watch(ctx, jobID); err != nil {
		return domain.JobView{}, err
	}
	if err := s.dispatcher.Do(ctx, jobID, action); err != nil {
		return domain.JobView{}, err
	}
	return s.store.Get(jobID)
}

// Close stops every watched job and the merge goroutine.
func (s *TrackingService) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		watches := s.watches
		s.watches = make(map[string]*watch)
		for jobID := range watches {
			s.store.Untrack(jobID)
		}
		s.mu.Unlock()

		for jobID, w := range watches {
			s.stop(jobID, w)
		}
		close(s.stopChan)
		s.wg.Wait()
	})
}
