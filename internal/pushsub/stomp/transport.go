// Package stomp implements the push transport for workers that publish
// progress through a STOMP 1.2 broker exposed over WebSocket.
package stomp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/goodjin/migratehero/internal/pushsub"
)

// Config describes the broker endpoint.
type Config struct {
	// URL is the WebSocket endpoint, e.g. ws://worker:8080/ws/websocket.
	URL   string
	Token string
	// HeartBeat is the interval at which the broker is asked to send
	// heart-beats. Zero disables them.
	HeartBeat        time.Duration
	HandshakeTimeout time.Duration
}

// Transport dials one WebSocket connection per job subscription.
type Transport struct {
	cfg    Config
	host   string
	dialer *websocket.Dialer
}

// New validates cfg and returns a transport.
func New(cfg Config) (*Transport, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid push url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid push url %q: scheme must be ws or wss", cfg.URL)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Transport{
		cfg:  cfg,
		host: u.Hostname(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}, nil
}

// Name implements pushsub.Transport.
func (t *Transport) Name() string { return "stomp" }

// Dial connects, performs the STOMP handshake and subscribes to both topics of jobID.
func (t *Transport) Dial(ctx context.Context, jobID string) (pushsub.Conn, error) {
	header := http.Header{}
	if t.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+t.cfg.Token)
	}
	ws, _, err := t.dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &conn{ws: ws, subs: make(map[string]pushsub.Kind, 2)}
	if err := c.handshake(ctx, t.host, t.cfg.HeartBeat, t.cfg.HandshakeTimeout); err != nil {
		_ = ws.Close()
		return nil, err
	}
	topics := []struct {
		kind        pushsub.Kind
		destination string
	}{
		{pushsub.KindProgress, pushsub.ProgressTopic(jobID)},
		{pushsub.KindStatus, pushsub.StatusTopic(jobID)},
	}
	for _, topic := range topics {
		id := uuid.NewString()
		if err := c.send(NewFrame(CmdSubscribe, "id", id, "destination", topic.destination, "ack", "auto")); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("subscribe %s: %w", topic.destination, err)
		}
		c.subs[id] = topic.kind
	}
	return c, nil
}

type conn struct {
	ws          *websocket.Conn
	subs        map[string]pushsub.Kind
	readTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func (c *conn) send(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, f.Encode())
}

func (c *conn) handshake(ctx context.Context, host string, heartBeat, timeout time.Duration) error {
	c.closed = make(chan struct{})

	want := heartBeat.Milliseconds()
	err := c.send(NewFrame(CmdConnect,
		"accept-version", "1.2",
		"host", host,
		"heart-beat", "0,"+strconv.FormatInt(want, 10),
	))
	if err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetReadDeadline(deadline)
	defer func() { _ = c.ws.SetReadDeadline(time.Time{}) }()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		f, err := Decode(data)
		if err != nil {
			return err
		}
		switch f.Command {
		case "":
			continue
		case CmdConnected:
			c.readTimeout = negotiateReadTimeout(f.Get("heart-beat"), want)
			return nil
		case CmdError:
			return brokerError(f)
		default:
			return fmt.Errorf("unexpected %s frame during handshake", f.Command)
		}
	}
}

// negotiateReadTimeout returns how long to wait for any inbound data before
// declaring the connection dead, or zero when the broker sends no heart-beats.
func negotiateReadTimeout(serverHeartBeat string, wantMillis int64) time.Duration {
	sx, _, ok := strings.Cut(serverHeartBeat, ",")
	if !ok || wantMillis <= 0 {
		return 0
	}
	server, err := strconv.ParseInt(strings.TrimSpace(sx), 10, 64)
	if err != nil || server <= 0 {
		return 0
	}
	interval := time.Duration(max(server, wantMillis)) * time.Millisecond
	return 3 * interval
}

func brokerError(f Frame) error {
	msg := f.Get("message")
	if msg == "" {
		msg = strings.TrimSpace(string(f.Body))
	}
	return fmt.Errorf("broker error: %s", msg)
}

// Next implements pushsub.Conn.
func (c *conn) Next(ctx context.Context) (pushsub.Message, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()

	for {
		if c.readTimeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return pushsub.Message{}, pushsub.ErrClosed
			default:
			}
			if ctx.Err() != nil {
				return pushsub.Message{}, ctx.Err()
			}
			return pushsub.Message{}, fmt.Errorf("read: %w", err)
		}
		f, err := Decode(data)
		if err != nil {
			return pushsub.Message{}, err
		}
		switch f.Command {
		case CmdMessage:
			kind, ok := c.subs[f.Get("subscription")]
			if !ok {
				continue
			}
			return pushsub.Message{Kind: kind, Body: f.Body}, nil
		case CmdError:
			return pushsub.Message{}, brokerError(f)
		}
	}
}

// Close unsubscribes and disconnects on a best-effort basis.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		for id := range c.subs {
			_ = c.send(NewFrame(CmdUnsubscribe, "id", id))
		}
		_ = c.send(NewFrame(CmdDisconnect))
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
