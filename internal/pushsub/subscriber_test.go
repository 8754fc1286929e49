package pushsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodjin/migratehero/internal/domain"
)

type fakeConn struct {
	msgs   chan Message
	fail   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs:   make(chan Message, 8),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Next(ctx context.Context) (Message, error) {
	select {
	case m := <-c.msgs:
		return m, nil
	case err := <-c.fail:
		return Message{}, err
	case <-c.closed:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fakeTransport hands out the queued conns in order; a nil entry fails the dial.
type fakeTransport struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
	dialC chan int
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) Dial(ctx context.Context, jobID string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.dialC != nil {
		t.dialC <- t.dials
	}
	if len(t.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := t.conns[0]
	t.conns = t.conns[1:]
	if c == nil {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	got    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 16)}
}

func (r *recorder) handle(ev domain.ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []domain.ProgressEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProgressEvent(nil), r.events...)
}

var fastConfig = Config{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func startSubscriber(t *testing.T, tr Transport, rec *recorder) (*Subscriber, chan error) {
	t.Helper()
	sub := NewSubscriber(tr, "42", fastConfig, rec.handle)
	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()
	t.Cleanup(func() {
		sub.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("subscriber did not stop")
		}
	})
	return sub, done
}

func TestSubscriber_DeliversProgress(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	startSubscriber(t, &fakeTransport{conns: []*fakeConn{conn}}, rec)

	conn.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"42","status":"RUNNING","totalEmails":10,"migratedEmails":3,"timestamp":1000}`)}

	events := rec.wait(t, 1)
	require.Len(t, events, 1)
	assert.Equal(t, domain.SourcePush, events[0].Source)
	assert.Equal(t, int64(1000), events[0].Marker)
	assert.Equal(t, int64(3), events[0].Counters[domain.CategoryEmails].Migrated)
}

func TestSubscriber_StatusNoticeCarriesStatusOnly(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	startSubscriber(t, &fakeTransport{conns: []*fakeConn{conn}}, rec)

	conn.msgs <- Message{Kind: KindStatus, Body: []byte(`{"jobId":42,"status":"FAILED","errorMessage":"auth","totalEmails":10}`)}

	events := rec.wait(t, 1)
	assert.Equal(t, domain.JobStatusFailed, events[0].Status)
	require.NotNil(t, events[0].Error)
	assert.Equal(t, "auth", events[0].Error.Message)
	assert.Nil(t, events[0].Counters)
}

func TestSubscriber_MarkerDefaultsToReceiveTime(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	sub := NewSubscriber(&fakeTransport{conns: []*fakeConn{conn}}, "42", fastConfig, rec.handle)
	received := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sub.now = func() time.Time { return received }
	go func() { _ = sub.Run(context.Background()) }()
	defer sub.Close()

	conn.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"42","status":"RUNNING"}`)}

	events := rec.wait(t, 1)
	assert.Equal(t, received.UnixMilli(), events[0].Marker)
}

func TestSubscriber_DropsMalformedAndForeignMessages(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	startSubscriber(t, &fakeTransport{conns: []*fakeConn{conn}}, rec)

	conn.msgs <- Message{Kind: KindProgress, Body: []byte(`not json`)}
	conn.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"43","status":"RUNNING"}`)}
	conn.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"42","status":"EXPLODED"}`)}
	conn.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"42","status":"PAUSED"}`)}

	events := rec.wait(t, 1)
	require.Len(t, events, 1)
	assert.Equal(t, domain.JobStatusPaused, events[0].Status)
}

func TestSubscriber_ReconnectsAfterLoss(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	tr := &fakeTransport{conns: []*fakeConn{first, nil, nil, second}}
	rec := newRecorder()
	startSubscriber(t, tr, rec)

	first.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"42","status":"RUNNING"}`)}
	rec.wait(t, 1)

	first.fail <- errors.New("broken pipe")
	second.msgs <- Message{Kind: KindProgress, Body: []byte(`{"jobId":"42","status":"PAUSED"}`)}

	events := rec.wait(t, 1)
	assert.Equal(t, domain.JobStatusPaused, events[len(events)-1].Status)
	assert.Equal(t, 4, tr.dialCount())
}

func TestSubscriber_CloseStopsRun(t *testing.T) {
	conn := newFakeConn()
	sub := NewSubscriber(&fakeTransport{conns: []*fakeConn{conn}}, "42", fastConfig, func(domain.ProgressEvent) {})
	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()

	// Let the subscriber reach Next.
	time.Sleep(20 * time.Millisecond)
	sub.Close()
	sub.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	select {
	case <-conn.closed:
	default:
		t.Error("connection was not closed")
	}
}

func TestSubscriber_CloseBeforeRun(t *testing.T) {
	tr := &fakeTransport{}
	sub := NewSubscriber(tr, "42", fastConfig, func(domain.ProgressEvent) {})
	sub.Close()

	assert.NoError(t, sub.Run(context.Background()))
	assert.Equal(t, 0, tr.dialCount())
}

func TestSubscriber_ContextCancelWhileDialing(t *testing.T) {
	tr := &fakeTransport{dialC: make(chan int, 64)}
	sub := NewSubscriber(tr, "42", fastConfig, func(domain.ProgressEvent) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	<-tr.dialC
	<-tr.dialC
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "/topic/migration/42/progress", ProgressTopic("42"))
	assert.Equal(t, "/topic/migration/42/status", StatusTopic("42"))
}
