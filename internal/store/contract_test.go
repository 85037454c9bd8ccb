package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stusave.app/internal/models"
)

// fakeClock is a manually advanced clock shared by store and test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRecord(clock *fakeClock, id, payload string) *models.Record {
	return &models.Record{
		ID:        id,
		Payload:   json.RawMessage(payload),
		CreatedAt: clock.Now(),
		ExpiresAt: clock.Now().Add(5 * time.Minute),
	}
}

// runStoreContract checks the behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T, clock *fakeClock) Store) {
	ctx := context.Background()

	t.Run("take returns payload once", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		require.NoError(t, s.Insert(ctx, newRecord(clock, "ab12cd", `{"spendings":[],"budget":500}`)))

		got, err := s.Take(ctx, "ab12cd")
		require.NoError(t, err)
		assert.JSONEq(t, `{"spendings":[],"budget":500}`, string(got.Payload))

		_, err = s.Take(ctx, "ab12cd")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown id is not found and stays not found", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		for i := 0; i < 3; i++ {
			_, err := s.Take(ctx, "zzzzzz")
			assert.ErrorIs(t, err, ErrNotFound)
		}
		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("expired record reports expired then not found", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		require.NoError(t, s.Insert(ctx, newRecord(clock, "old111", `{}`)))
		clock.Advance(5*time.Minute + time.Second)

		_, err := s.Take(ctx, "old111")
		assert.ErrorIs(t, err, ErrExpired)

		_, err = s.Take(ctx, "old111")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("record is live until exactly its expiry", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		require.NoError(t, s.Insert(ctx, newRecord(clock, "edge11", `1`)))
		clock.Advance(5 * time.Minute)

		_, err := s.Take(ctx, "edge11")
		assert.NoError(t, err)
	})

	t.Run("live id cannot be inserted twice", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		require.NoError(t, s.Insert(ctx, newRecord(clock, "dup111", `"first"`)))
		err := s.Insert(ctx, newRecord(clock, "dup111", `"second"`))
		assert.ErrorIs(t, err, ErrIDTaken)

		got, err := s.Take(ctx, "dup111")
		require.NoError(t, err)
		assert.Equal(t, `"first"`, string(got.Payload))
	})

	t.Run("concurrent takes yield exactly one winner", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		require.NoError(t, s.Insert(ctx, newRecord(clock, "race11", `{"budget":1}`)))

		const n = 32
		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			notFound atomic.Int32
			start    = make(chan struct{})
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := s.Take(ctx, "race11")
				switch {
				case err == nil:
					wins.Add(1)
				case assert.ErrorIs(t, err, ErrNotFound):
					notFound.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.EqualValues(t, 1, wins.Load())
		assert.EqualValues(t, n-1, notFound.Load())
	})

	t.Run("many distinct records", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		for i := 0; i < 20; i++ {
			require.NoError(t, s.Insert(ctx, newRecord(clock, fmt.Sprintf("id%04d", i), fmt.Sprintf(`{"n":%d}`, i))))
		}
		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 20, n)

		got, err := s.Take(ctx, "id0007")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":7}`, string(got.Payload))
	})
}
