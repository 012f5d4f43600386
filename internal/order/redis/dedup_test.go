package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestFirstDeliveryPassesOnce(t *testing.T) {
	client, _ := setupTestRedis(t)
	d := NewDedup(client)
	ctx := context.Background()

	first, err := d.FirstDelivery(ctx, "evt_123")
	assert.NoError(t, err)
	assert.True(t, first)

	second, err := d.FirstDelivery(ctx, "evt_123")
	assert.NoError(t, err)
	assert.False(t, second)
}

func TestFirstDeliveryDistinctEvents(t *testing.T) {
	client, _ := setupTestRedis(t)
	d := NewDedup(client)
	ctx := context.Background()

	a, err := d.FirstDelivery(ctx, "evt_a")
	assert.NoError(t, err)
	b, err := d.FirstDelivery(ctx, "evt_b")
	assert.NoError(t, err)

	assert.True(t, a)
	assert.True(t, b)
}

func TestFirstDeliveryFailsOpenOnRedisOutage(t *testing.T) {
	client, mr := setupTestRedis(t)
	d := NewDedup(client)

	mr.Close()

	seen, err := d.FirstDelivery(context.Background(), "evt_down")
	assert.Error(t, err)
	// On outage the caller must fall through to the DB idempotency guard.
	assert.True(t, seen)
}
