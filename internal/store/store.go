package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stusave.app/internal/models"
)

var (
	ErrNotFound = errors.New("transfer not found")
	ErrExpired  = errors.New("transfer has expired")
	ErrIDTaken  = errors.New("transfer id already in use")
	ErrClosed   = errors.New("store is closed")
)

// Store holds exchange records. Take is the only way to read a record and
// it removes the record in the same step, so a record is handed out at most once.
type Store interface {
	Insert(ctx context.Context, record *models.Record) error
	Take(ctx context.Context, id string) (*models.Record, error)
	// Sweep drops expired records and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger

	// redis only
	keyPrefix    string
	expiredGrace time.Duration
}

func defaultOptions() options {
	return options{
		now:          time.Now,
		logger:       slog.Default(),
		keyPrefix:    "transfer:",
		expiredGrace: 10 * time.Minute,
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKeyPrefix namespaces RedisStore keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithExpiredGrace keeps expired Redis keys around for d past their expiry so
// a late redeem reports ErrExpired instead of ErrNotFound.
func WithExpiredGrace(d time.Duration) Option {
	return func(o *options) { o.expiredGrace = d }
}
