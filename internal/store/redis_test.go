package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, clock *fakeClock) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, WithClock(clock.Now), WithKeyPrefix("test:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T, clock *fakeClock) Store {
		s, _ := newTestRedisStore(t, clock)
		return s
	})
}

func TestRedisStoreKeyCarriesTTLWithGrace(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, mr := newTestRedisStore(t, clock)

	require.NoError(t, s.Insert(ctx, newRecord(clock, "ttl111", `{}`)))

	require.True(t, mr.Exists("test:ttl111"))
	assert.Equal(t, 5*time.Minute+10*time.Minute, mr.TTL("test:ttl111"))
}

func TestRedisStoreKeyEvictedAfterGrace(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, mr := newTestRedisStore(t, clock)

	require.NoError(t, s.Insert(ctx, newRecord(clock, "gone11", `{}`)))
	mr.FastForward(16 * time.Minute)
	clock.Advance(16 * time.Minute)

	_, err := s.Take(ctx, "gone11")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRejectsAlreadyExpiredRecord(t *testing.T) {
	clock := newFakeClock()
	s, _ := newTestRedisStore(t, clock)

	rec := newRecord(clock, "late11", `{}`)
	rec.ExpiresAt = clock.Now().Add(-time.Second)
	assert.ErrorIs(t, s.Insert(context.Background(), rec), ErrExpired)
}

func TestNewRedisStoreFailsWithoutServer(t *testing.T) {
	_, err := NewRedisStore(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	assert.Error(t, err)
}
