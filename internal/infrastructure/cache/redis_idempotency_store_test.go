//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return redis.NewClient(&redis.Options{Addr: endpoint})
}

func TestRedisIdempotencyStore_Lifecycle(t *testing.T) {
	client := startRedis(t)
	s := NewRedisIdempotencyStore(client, "test:")
	defer s.Close()
	ctx := context.Background()

	r, err := s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, r.Acquired)

	r, err = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, r.InFlight())

	require.NoError(t, s.Complete(ctx, "k", StoredResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"ok":1}`), Fingerprint: "abc"}, time.Hour))
	r, err = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, r.Response)
	assert.Equal(t, `{"ok":1}`, string(r.Response.Body))
	assert.Equal(t, "abc", r.Response.Fingerprint)

	ttl, err := client.TTL(ctx, "test:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)

	require.NoError(t, s.Release(ctx, "k"))
	r, err = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, r.Acquired)
}
