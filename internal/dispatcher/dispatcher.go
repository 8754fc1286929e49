// Package dispatcher issues control operations against the remote worker and
// feeds their expected outcome back through the regular merge path.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/metrics"
	"github.com/goodjin/migratehero/internal/workerapi"
)

// ErrRetryNotAllowed is returned by Retry for jobs that are not FAILED.
var ErrRetryNotAllowed = errors.New("retry is only allowed for failed jobs")

// ErrUnknownAction is returned by Do for actions the worker does not understand.
var ErrUnknownAction = errors.New("unknown control action")

// Controller sends control requests to the worker.
type Controller interface {
	Control(ctx context.Context, jobID string, action workerapi.Action) error
}

// StatusFunc returns the locally reconciled status of a job.
type StatusFunc func(jobID string) (domain.JobStatus, error)

// SubmitFunc hands a synthetic event to the merge path.
type SubmitFunc func(ctx context.Context, ev domain.ProgressEvent) error

var targets = map[workerapi.Action]domain.JobStatus{
	workerapi.ActionStart:  domain.JobStatusRunning,
	workerapi.ActionPause:  domain.JobStatusPaused,
	workerapi.ActionResume: domain.JobStatusRunning,
	workerapi.ActionCancel: domain.JobStatusCancelled,
	workerapi.ActionRetry:  domain.JobStatusRunning,
}

// TargetStatus returns the status a successful action moves the job to.
func TargetStatus(action workerapi.Action) (domain.JobStatus, bool) {
	s, ok := targets[action]
	return s, ok
}

// Dispatcher translates control operations into worker requests.
type Dispatcher struct {
	ctrl   Controller
	status StatusFunc
	submit SubmitFunc
	now    func() time.Time
}

// New creates a dispatcher.
func New(ctrl Controller, status StatusFunc, submit SubmitFunc) *Dispatcher {
	return &Dispatcher{
		ctrl:   ctrl,
		status: status,
		submit: submit,
		now:    time.Now,
	}
}

func (d *Dispatcher) Start(ctx context.Context, jobID string) error {
	return d.Do(ctx, jobID, workerapi.ActionStart)
}

func (d *Dispatcher) Pause(ctx context.Context, jobID string) error {
	return d.Do(ctx, jobID, workerapi.ActionPause)
}

func (d *Dispatcher) Resume(ctx context.Context, jobID string) error {
	return d.Do(ctx, jobID, workerapi.ActionResume)
}

func (d *Dispatcher) Cancel(ctx context.Context, jobID string) error {
	return d.Do(ctx, jobID, workerapi.ActionCancel)
}

// Retry restarts a failed job. Which folders resume is decided by the worker.
func (d *Dispatcher) Retry(ctx context.Context, jobID string) error {
	return d.Do(ctx, jobID, workerapi.ActionRetry)
}

// Do performs action on jobID. On success a control event carrying only the
// target status is submitted; on failure the worker's error is returned and
// no state changes.
func (d *Dispatcher) Do(ctx context.Context, jobID string, action workerapi.Action) error {
	target, ok := targets[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	log := logger.FromContext(ctx).With(slog.String("job_id", jobID), slog.String("action", string(action)))

	if action == workerapi.ActionRetry {
		current, err := d.status(jobID)
		if err != nil {
			return fmt.Errorf("retry job %s: %w", jobID, err)
		}
		if current != domain.JobStatusFailed {
			log.Warn("retry rejected locally", slog.String("status", string(current)))
			return fmt.Errorf("retry job %s in status %s: %w", jobID, current, ErrRetryNotAllowed)
		}
	}

	timer := metrics.NewTimer()
	err := d.ctrl.Control(ctx, jobID, action)
	metrics.ObserveControl(string(action), timer.Elapsed(), err)
	if err != nil {
		log.Warn("control request failed", slog.String("error", err.Error()))
		return fmt.Errorf("%s job %s: %w", action, jobID, err)
	}

	ev := domain.ProgressEvent{
		JobID:  jobID,
		Marker: domain.MarkerAt(d.now()),
		Source: domain.SourceControl,
		Status: target,
	}
	if err := d.submit(ctx, ev); err != nil {
		return fmt.Errorf("apply %s result for job %s: %w", action, jobID, err)
	}
	log.Info("control request accepted", slog.String("target_status", string(target)))
	return nil
}
