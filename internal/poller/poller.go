// Package poller periodically fetches the authoritative state of a job from
// the remote worker.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/metrics"
)

// Source serves job, folder and item snapshots.
type Source interface {
	FetchJob(ctx context.Context, jobID string) (domain.ProgressEvent, error)
	FetchFolders(ctx context.Context, jobID string) ([]domain.FolderUpdate, error)
	FetchItems(ctx context.Context, jobID, folder string) ([]domain.MigratedItem, error)
}

// Config holds the poll cadence for one job.
type Config struct {
	Interval time.Duration
	// Timeout bounds a whole fetch cycle; exceeding it is a fetch failure.
	Timeout time.Duration
	// TriggerRate limits on-demand item fetches per second.
	TriggerRate  float64
	TriggerBurst int
}

// Hooks connect the poller to its owner. ShouldPoll and OnEvent are required.
type Hooks struct {
	// ShouldPoll is checked before every scheduled fetch.
	ShouldPoll func() bool
	// SelectedFolder returns the folder whose items are wanted, or "".
	SelectedFolder func() string
	OnEvent        func(domain.ProgressEvent)
	OnItems        func(folder string, items []domain.MigratedItem)
	// OnFetch receives the outcome of every fetch cycle; nil means success.
	OnFetch func(err error)
}

// Poller drives scheduled and on-demand fetches for one job. Fetches run on
// the Run goroutine only, so at most one is outstanding at any time.
type Poller struct {
	jobID   string
	source  Source
	cfg     Config
	hooks   Hooks
	trigger chan struct{}
	wake    chan struct{}
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a poller for jobID.
func New(jobID string, source Source, cfg Config, hooks Hooks) *Poller {
	if cfg.TriggerRate <= 0 {
		cfg.TriggerRate = 1
	}
	if cfg.TriggerBurst <= 0 {
		cfg.TriggerBurst = 1
	}
	if hooks.SelectedFolder == nil {
		hooks.SelectedFolder = func() string { return "" }
	}
	if hooks.OnItems == nil {
		hooks.OnItems = func(string, []domain.MigratedItem) {}
	}
	if hooks.OnFetch == nil {
		hooks.OnFetch = func(error) {}
	}
	return &Poller{
		jobID:   jobID,
		source:  source,
		cfg:     cfg,
		hooks:   hooks,
		trigger: make(chan struct{}, 1),
		wake:    make(chan struct{}, 1),
		limiter: rate.NewLimiter(rate.Limit(cfg.TriggerRate), cfg.TriggerBurst),
		log:     logger.WithJobID(jobID).With(slog.String("component", "poller")),
	}
}

// Trigger requests an on-demand fetch of the selected folder's items. It
// never blocks; requests beyond the rate limit or while one is pending are
// dropped and reported as false.
func (p *Poller) Trigger() bool {
	if !p.limiter.Allow() {
		return false
	}
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Wake resumes scheduled fetches after ShouldPoll turned false, e.g. when a
// failed job is retried. It is a no-op while polling is active.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run fetches immediately and then every interval until ctx is cancelled.
// Once ShouldPoll reports false no further fetch is scheduled; on-demand
// triggers are still served until teardown.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	scheduled := timer.C

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-scheduled:
			if !p.hooks.ShouldPoll() {
				p.log.Debug("job is terminal, polling stopped")
				scheduled = nil
				continue
			}
			p.poll(ctx)
			timer.Reset(p.cfg.Interval)
		case <-p.wake:
			if scheduled == nil {
				p.log.Debug("polling resumed")
				timer.Reset(0)
				scheduled = timer.C
			}
		case <-p.trigger:
			p.fetchSelectedItems(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	fctx, cancel := p.fetchContext(ctx)
	defer cancel()

	err := p.fetchSnapshot(fctx)
	if err == nil {
		err = p.fetchItems(fctx)
	}
	p.report(ctx, err)
}

func (p *Poller) fetchSelectedItems(ctx context.Context) {
	if p.hooks.SelectedFolder() == "" {
		return
	}
	fctx, cancel := p.fetchContext(ctx)
	defer cancel()
	p.report(ctx, p.fetchItems(fctx))
}

func (p *Poller) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.Timeout)
}

func (p *Poller) fetchSnapshot(ctx context.Context) error {
	timer := metrics.NewTimer()
	ev, err := p.source.FetchJob(ctx, p.jobID)
	metrics.ObserveFetch("job", timer.Elapsed(), err)
	if err != nil {
		return fmt.Errorf("fetch job: %w", err)
	}

	timer = metrics.NewTimer()
	folders, err := p.source.FetchFolders(ctx, p.jobID)
	metrics.ObserveFetch("folders", timer.Elapsed(), err)
	if err != nil {
		// The job snapshot is still worth merging.
		p.hooks.OnEvent(ev)
		return fmt.Errorf("fetch folders: %w", err)
	}
	ev.Folders = append(ev.Folders, folders...)
	p.hooks.OnEvent(ev)
	return nil
}

func (p *Poller) fetchItems(ctx context.Context) error {
	folder := p.hooks.SelectedFolder()
	if folder == "" {
		return nil
	}
	timer := metrics.NewTimer()
	items, err := p.source.FetchItems(ctx, p.jobID, folder)
	metrics.ObserveFetch("items", timer.Elapsed(), err)
	if err != nil {
		return fmt.Errorf("fetch items of %s: %w", folder, err)
	}
	p.hooks.OnItems(folder, items)
	return nil
}

// report publishes the fetch outcome. Failures caused by teardown are not
// fetch failures and are swallowed.
func (p *Poller) report(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("fetch timed out after %s: %w", p.cfg.Timeout, err)
		}
		p.log.Warn("fetch failed", slog.String("error", err.Error()))
	}
	p.hooks.OnFetch(err)
}
