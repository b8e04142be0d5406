package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/testutil"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*Redis, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testutil.RedisAddress(t)})
	t.Cleanup(func() { client.Close() })

	prefix := "promote:test:" + t.Name() + ":"
	opts = append([]RedisOption{WithPrefix(prefix), WithPollInterval(5 * time.Millisecond)}, opts...)
	return NewRedis(client, opts...), client
}

func TestRedis_TTLBounds(t *testing.T) {
	// No connection is made until a lock is taken.
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { client.Close() })

	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, DefaultTTL},
		{-time.Second, DefaultTTL},
		{time.Nanosecond, MinTTL},
		{999 * time.Microsecond, MinTTL},
		{time.Millisecond, time.Millisecond},
		{time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.ttl.String(), func(t *testing.T) {
			l := NewRedis(client, WithTTL(tt.ttl))
			assert.Equal(t, tt.want, l.ttl)
			assert.Positive(t, l.ttl/3, "renewal interval")
			assert.Positive(t, l.ttl.Milliseconds(), "lease in milliseconds")
		})
	}
}

func TestRedis_MutualExclusion(t *testing.T) {
	l, _ := newTestRedis(t)
	exerciseExclusion(t, l)
}

func TestRedis_HonoursContext(t *testing.T) {
	l, _ := newTestRedis(t)

	unlock, err := l.Lock(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	again, err := l.Lock(context.Background(), "p")
	require.NoError(t, err)
	again()
}

func TestRedis_UnlockDeletesKey(t *testing.T) {
	l, client := newTestRedis(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "p")
	require.NoError(t, err)

	n, err := client.Exists(ctx, l.key("p")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unlock()
	n, err = client.Exists(ctx, l.key("p")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_LeaseRenewedWhileHeld(t *testing.T) {
	l, client := newTestRedis(t, WithTTL(300*time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "p")
	require.NoError(t, err)
	defer unlock()

	// Outlive several TTLs; the renewer keeps the key alive.
	time.Sleep(time.Second)
	n, err := client.Exists(ctx, l.key("p")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedis_ForeignOwnerIsNotReleased(t *testing.T) {
	l, client := newTestRedis(t)
	ctx := context.Background()

	// Someone else holds the key.
	require.NoError(t, client.Set(ctx, l.key("p"), "other-owner", time.Minute).Err())

	ok, err := l.eval(ctx, releaseLua, l.key("p"), "me")
	require.NoError(t, err)
	assert.False(t, ok)

	owner, err := client.Get(ctx, l.key("p")).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-owner", owner)
}
