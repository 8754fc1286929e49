// Package redis implements the push transport for workers that publish
// progress to Redis pub/sub channels.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/goodjin/migratehero/internal/pushsub"
)

// ProgressChannel is the channel carrying progress snapshots of jobID.
func ProgressChannel(jobID string) string {
	return "migration:" + jobID + ":progress"
}

// StatusChannel is the channel carrying status-change notices of jobID.
func StatusChannel(jobID string) string {
	return "migration:" + jobID + ":status"
}

// Transport subscribes through a shared Redis client. Each Dial opens a
// dedicated pub/sub connection.
type Transport struct {
	client goredis.UniversalClient
}

// New returns a transport using client. The caller owns the client.
func New(client goredis.UniversalClient) *Transport {
	return &Transport{client: client}
}

// Name implements pushsub.Transport.
func (t *Transport) Name() string { return "redis" }

// Dial subscribes to both channels of jobID and waits for the confirmation.
func (t *Transport) Dial(ctx context.Context, jobID string) (pushsub.Conn, error) {
	ps := t.client.Subscribe(ctx, ProgressChannel(jobID), StatusChannel(jobID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	return &conn{
		ps: ps,
		kinds: map[string]pushsub.Kind{
			ProgressChannel(jobID): pushsub.KindProgress,
			StatusChannel(jobID):   pushsub.KindStatus,
		},
		closed: make(chan struct{}),
	}, nil
}

type conn struct {
	ps     *goredis.PubSub
	kinds  map[string]pushsub.Kind
	once   sync.Once
	closed chan struct{}
}

// Next implements pushsub.Conn.
func (c *conn) Next(ctx context.Context) (pushsub.Message, error) {
	for {
		msg, err := c.ps.ReceiveMessage(ctx)
		if err != nil {
			select {
			case <-c.closed:
				return pushsub.Message{}, pushsub.ErrClosed
			default:
			}
			if ctx.Err() != nil {
				return pushsub.Message{}, ctx.Err()
			}
			if errors.Is(err, goredis.ErrClosed) {
				return pushsub.Message{}, pushsub.ErrClosed
			}
			return pushsub.Message{}, fmt.Errorf("redis receive: %w", err)
		}
		kind, ok := c.kinds[msg.Channel]
		if !ok {
			continue
		}
		return pushsub.Message{Kind: kind, Body: []byte(msg.Payload)}, nil
	}
}

// Close unsubscribes and releases the pub/sub connection.
func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.ps.Close()
	})
	return err
}
