package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stusave.app/internal/crypto"
	"stusave.app/internal/models"
	"stusave.app/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(time.Hour, store.WithClock(c.Now))
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, crypto.MustGenerator(crypto.DefaultAlphabet, crypto.DefaultLength),
		Config{TTL: 5 * time.Minute, MaxAttempts: 5}, WithClock(c.Now))
	return svc, c
}

func TestRegisterThenRedeemOnce(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	payload := json.RawMessage(`{"spendings":[],"budget":500}`)
	id, expiresAt, err := svc.Register(ctx, payload)
	require.NoError(t, err)
	assert.True(t, svc.ValidID(id))
	assert.Equal(t, c.Now().Add(5*time.Minute), expiresAt)

	got, err := svc.Redeem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(payload), string(got))

	_, err = svc.Redeem(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedeemAfterTTLIsExpired(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	id, _, err := svc.Register(ctx, json.RawMessage(`{"budget":1,"spendings":[]}`))
	require.NoError(t, err)

	c.Advance(5*time.Minute + time.Millisecond)

	_, err = svc.Redeem(ctx, id)
	assert.ErrorIs(t, err, store.ErrExpired)
	assert.False(t, errors.Is(err, store.ErrNotFound))
}

func TestRoundTripPreservesNestedAndUnicode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	payload := json.RawMessage(`{"name":"Zoë 学生 🎓","spendings":[{"id":"1","amount":12.5,"tags":[]},{"id":"2","nested":{"a":[[],{}]}}],"budget":0,"lendBorrow":[]}`)
	id, _, err := svc.Register(ctx, payload)
	require.NoError(t, err)

	got, err := svc.Redeem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(payload), string(got))
}

func TestRegisterRejectsInvalidJSON(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Register(context.Background(), json.RawMessage(`{"budget":`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestRedeemUnknownNeverMutates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, _, err := svc.Register(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.Redeem(ctx, "nope00")
		assert.ErrorIs(t, err, store.ErrNotFound)
	}

	_, err = svc.Redeem(ctx, id)
	assert.NoError(t, err)
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, _, err := svc.Register(ctx, json.RawMessage(`{"budget":5,"spendings":[]}`))
	require.NoError(t, err)

	const n = 50
	var wins, misses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Redeem(ctx, id); err == nil {
				wins.Add(1)
			} else if errors.Is(err, store.ErrNotFound) {
				misses.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, n-1, misses.Load())
}

// collidingStore reports ErrIDTaken for the first `collisions` inserts.
type collidingStore struct {
	store.Store
	collisions int
	inserts    int
	failWith   error
}

func (s *collidingStore) Insert(ctx context.Context, r *models.Record) error {
	s.inserts++
	if s.failWith != nil {
		return s.failWith
	}
	if s.inserts <= s.collisions {
		return store.ErrIDTaken
	}
	return s.Store.Insert(ctx, r)
}

func TestRegisterRetriesOnCollision(t *testing.T) {
	mem := store.NewMemoryStore(time.Hour)
	defer mem.Close()
	st := &collidingStore{Store: mem, collisions: 2}

	svc := NewService(st, crypto.MustGenerator(crypto.DefaultAlphabet, 6), Config{TTL: time.Minute, MaxAttempts: 3})
	_, _, err := svc.Register(context.Background(), json.RawMessage(`1`))
	require.NoError(t, err)
	assert.Equal(t, 3, st.inserts)
}

func TestRegisterGivesUpAfterMaxAttempts(t *testing.T) {
	mem := store.NewMemoryStore(time.Hour)
	defer mem.Close()
	st := &collidingStore{Store: mem, collisions: 100}

	svc := NewService(st, crypto.MustGenerator(crypto.DefaultAlphabet, 6), Config{TTL: time.Minute, MaxAttempts: 4})
	_, _, err := svc.Register(context.Background(), json.RawMessage(`1`))
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
	assert.Equal(t, 4, st.inserts)
}

func TestRegisterWrapsStorageFailure(t *testing.T) {
	mem := store.NewMemoryStore(time.Hour)
	defer mem.Close()
	boom := errors.New("disk on fire")
	st := &collidingStore{Store: mem, failWith: boom}

	svc := NewService(st, crypto.MustGenerator(crypto.DefaultAlphabet, 6), Config{TTL: time.Minute, MaxAttempts: 4})
	_, _, err := svc.Register(context.Background(), json.RawMessage(`1`))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, st.inserts)
}
