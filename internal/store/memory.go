package store

import (
	"context"
	"sync"
	"time"

	"stusave.app/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in a process-local map. It is only correct when
// sender and receiver reach the same process; use RedisStore for more than one instance.
type MemoryStore struct {
	records map[string]*models.Record
	mu      sync.Mutex
	opts    options

	cleanupCancel context.CancelFunc
	cleanupDone   chan struct{}
}

func NewMemoryStore(sweepInterval time.Duration, opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := &MemoryStore{
		records:       make(map[string]*models.Record),
		opts:          o,
		cleanupCancel: cancel,
		cleanupDone:   make(chan struct{}),
	}
	go store.cleanupLoop(ctx, sweepInterval)
	return store
}

func (s *MemoryStore) Insert(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		return ErrClosed
	}

	if existing, ok := s.records[record.ID]; ok && !existing.Expired(s.opts.now()) {
		return ErrIDTaken
	}

	stored := *record
	stored.Payload = append([]byte(nil), record.Payload...)
	s.records[record.ID] = &stored
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, id string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		return nil, ErrClosed
	}

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, id)

	if record.Expired(s.opts.now()) {
		return nil, ErrExpired
	}
	return record, nil
}

func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	removed := 0
	for id, record := range s.records {
		if record.Expired(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records), nil
}

// Close stops the sweep loop and waits for it to exit.
func (s *MemoryStore) Close() error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
		<-s.cleanupDone
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return nil
}

func (s *MemoryStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, _ := s.Sweep(ctx); n > 0 {
				s.opts.logger.Debug("swept expired transfers", "count", n)
			}
		}
	}
}
