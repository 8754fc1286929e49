package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/goodjin/migratehero/internal/pushsub"
	"github.com/goodjin/migratehero/internal/pushsub/redis"
)

// setupRedis starts a Redis container and returns a client connected to it.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestChannels(t *testing.T) {
	assert.Equal(t, "migration:42:progress", redis.ProgressChannel("42"))
	assert.Equal(t, "migration:42:status", redis.StatusChannel("42"))
}

func TestTransport_ReceivesBothChannels(t *testing.T) {
	client := setupRedis(t)
	tr := redis.New(client)
	assert.Equal(t, "redis", tr.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := tr.Dial(ctx, "42")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, client.Publish(ctx, "migration:43:progress", `{"jobId":43}`).Err())
	require.NoError(t, client.Publish(ctx, redis.ProgressChannel("42"), `{"jobId":42,"migratedEmails":5}`).Err())
	require.NoError(t, client.Publish(ctx, redis.StatusChannel("42"), `{"jobId":42,"status":"PAUSED"}`).Err())

	msg, err := conn.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, pushsub.KindProgress, msg.Kind)
	assert.JSONEq(t, `{"jobId":42,"migratedEmails":5}`, string(msg.Body))

	msg, err = conn.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, pushsub.KindStatus, msg.Kind)
}

func TestTransport_CloseUnblocksNext(t *testing.T) {
	client := setupRedis(t)
	conn, err := redis.New(client).Dial(context.Background(), "42")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Next(context.Background())
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, pushsub.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestTransport_NextHonoursContext(t *testing.T) {
	client := setupRedis(t)
	conn, err := redis.New(client).Dial(context.Background(), "42")
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = conn.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
