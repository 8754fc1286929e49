// Package pushsub subscribes to the per-job progress topics published by the
// remote worker and turns inbound messages into progress events.
//
// The subscription does not replay messages missed while disconnected; the
// poller is what makes the view converge.
package pushsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/metrics"
	"github.com/goodjin/migratehero/internal/payload"
	"github.com/goodjin/migratehero/internal/validator"
)

// Kind distinguishes the two topics of a job.
type Kind string

const (
	KindProgress Kind = "progress"
	KindStatus   Kind = "status"
)

// ProgressTopic returns the STOMP destination carrying progress snapshots.
func ProgressTopic(jobID string) string {
	return "/topic/migration/" + jobID + "/progress"
}

// StatusTopic returns the STOMP destination carrying status-change notices.
func StatusTopic(jobID string) string {
	return "/topic/migration/" + jobID + "/status"
}

// ErrClosed is returned by Conn.Next after Close.
var ErrClosed = errors.New("subscription closed")

// Message is one raw push message.
type Message struct {
	Kind Kind
	Body []byte
}

// Conn is an established subscription to both topics of one job.
type Conn interface {
	// Next blocks until a message arrives. Any error means the connection is
	// unusable and must be closed.
	Next(ctx context.Context) (Message, error)
	Close() error
}

// Transport opens job-scoped subscriptions.
type Transport interface {
	Name() string
	Dial(ctx context.Context, jobID string) (Conn, error)
}

// Config controls reconnect pacing.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Subscriber keeps a subscription for one job alive until closed.
type Subscriber struct {
	transport Transport
	jobID     string
	cfg       Config
	handler   func(domain.ProgressEvent)
	validator *validator.Validator
	now       func() time.Time
	log       *slog.Logger

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// NewSubscriber creates a subscriber invoking handler for every valid event of jobID.
func NewSubscriber(transport Transport, jobID string, cfg Config, handler func(domain.ProgressEvent)) *Subscriber {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	return &Subscriber{
		transport: transport,
		jobID:     jobID,
		cfg:       cfg,
		handler:   handler,
		validator: validator.NewValidator(),
		now:       time.Now,
		log: logger.WithJobID(jobID).With(
			slog.String("component", "pushsub"),
			slog.String("transport", transport.Name()),
		),
	}
}

// Run connects and consumes messages, reconnecting with exponential backoff
// after any connection loss, until ctx is cancelled or Close is called.
func (s *Subscriber) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval
	b.MaxElapsedTime = 0
	bctx := backoff.WithContext(b, ctx)

	operation := func() error {
		conn, err := s.transport.Dial(ctx, s.jobID)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("dial: %w", err)
		}
		bctx.Reset()
		s.log.Info("push subscription established")

		metrics.PushUp(s.transport.Name())
		err = s.consume(ctx, conn)
		metrics.PushDown(s.transport.Name())
		_ = conn.Close()

		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("connection lost: %w", err)
	}

	notify := func(err error, wait time.Duration) {
		metrics.PushReconnectsTotal.WithLabelValues(s.transport.Name()).Inc()
		s.log.Warn("push subscription unavailable, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	}

	err := backoff.RetryNotify(operation, bctx, notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Subscriber) consume(ctx context.Context, conn Conn) error {
	for {
		msg, err := conn.Next(ctx)
		if err != nil {
			return err
		}
		s.dispatch(msg)
	}
}

func (s *Subscriber) dispatch(msg Message) {
	transport := s.transport.Name()

	ev, err := payload.ParseProgress(msg.Body, domain.SourcePush, s.jobID, domain.MarkerAt(s.now()))
	if err == nil && ev.JobID != s.jobID {
		err = fmt.Errorf("message for job %s on subscription of %s", ev.JobID, s.jobID)
	}
	if err == nil {
		err = s.validator.ValidateEvent(&ev)
	}
	if err != nil {
		metrics.PushMessagesTotal.WithLabelValues(transport, "malformed").Inc()
		s.log.Warn("dropping push message",
			slog.String("kind", string(msg.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	if msg.Kind == KindStatus {
		// Status notices only carry status, phase and failure detail.
		ev = domain.ProgressEvent{
			JobID:  ev.JobID,
			Marker: ev.Marker,
			Source: ev.Source,
			Status: ev.Status,
			Phase:  ev.Phase,
			Error:  ev.Error,
		}
	}
	metrics.PushMessagesTotal.WithLabelValues(transport, "decoded").Inc()
	s.handler(ev)
}

// Close tears the subscription down. It is idempotent and may be called
// before Run or while a connection attempt is in flight.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}
