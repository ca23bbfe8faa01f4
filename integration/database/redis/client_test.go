package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvcache/integration/database/redis"
)

// unreachable points at a port nothing listens on.
const unreachable = "redis://127.0.0.1:1/0"

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("malformed URL", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "http://localhost:6379"})
		assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
	})
}

func TestConnect_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  unreachable,
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestConnect_RespectsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := redis.Connect(ctx, redis.Config{
		ConnectionURL: unreachable,
		RetryAttempts: 100,
		RetryInterval: time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealthcheck_Unreachable(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	err := redis.Healthcheck(client)(context.Background())
	assert.ErrorIs(t, err, redis.ErrHealthcheckFailed)
}

func TestStorage_ReportsFailures(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	s := redis.NewStorage(client, redis.WithOperationTimeout(200*time.Millisecond))

	assert.False(t, s.Put("a", []byte("1")))
	assert.False(t, s.PutIfAbsent("a", []byte("1")))
	assert.False(t, s.Set("a", []byte("1")))
	assert.False(t, s.Delete("a"))
	_, ok := s.Get("a")
	assert.False(t, ok)

	assert.Equal(t, int64(5), s.Stats().Errors)
}

func TestStorage_RejectsOversizedEntryWithoutRoundTrip(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	s := redis.NewStorage(client, redis.WithCapacity(8))
	assert.False(t, s.Put("key", []byte("123456")))
	assert.False(t, s.PutIfAbsent("key", []byte("123456")))
	assert.False(t, s.Set("key", []byte("123456")))

	st := s.Stats()
	assert.Equal(t, int64(3), st.Rejections)
	assert.Zero(t, st.Errors)
}
