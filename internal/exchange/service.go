// Package exchange registers and redeems short-lived, single-use transfers.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stusave.app/internal/crypto"
	"stusave.app/internal/models"
	"stusave.app/internal/store"
)

var (
	ErrInvalidPayload = errors.New("payload is not valid JSON")
	// ErrIDSpaceExhausted means every attempt to mint a fresh id collided with a live record.
	ErrIDSpaceExhausted = errors.New("could not allocate a free transfer id")
)

type Config struct {
	TTL         time.Duration
	MaxAttempts int
}

type Service struct {
	store  store.Store
	ids    *crypto.Generator
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(st store.Store, ids *crypto.Generator, cfg Config, opts ...Option) *Service {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	s := &Service{
		store:  st,
		ids:    ids,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register stores payload under a fresh id that expires after the configured TTL.
func (s *Service) Register(ctx context.Context, payload json.RawMessage) (string, time.Time, error) {
	if !json.Valid(payload) {
		return "", time.Time{}, ErrInvalidPayload
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		id, err := s.ids.Generate()
		if err != nil {
			return "", time.Time{}, err
		}

		now := s.now()
		record := &models.Record{
			ID:        id,
			Payload:   payload,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.TTL),
		}

		err = s.store.Insert(ctx, record)
		switch {
		case err == nil:
			s.logger.Debug("transfer registered", "id", id, "bytes", len(payload), "attempt", attempt)
			return id, record.ExpiresAt, nil
		case errors.Is(err, store.ErrIDTaken):
			s.logger.Debug("transfer id collision", "attempt", attempt)
			continue
		default:
			return "", time.Time{}, fmt.Errorf("insert transfer: %w", err)
		}
	}

	return "", time.Time{}, ErrIDSpaceExhausted
}

// Redeem returns the payload registered under id and removes it. It fails
// with store.ErrNotFound or store.ErrExpired; neither is worth retrying.
func (s *Service) Redeem(ctx context.Context, id string) (json.RawMessage, error) {
	record, err := s.store.Take(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
			s.logger.Debug("transfer redeem rejected", "id", id, "reason", err)
			return nil, err
		}
		return nil, fmt.Errorf("take transfer: %w", err)
	}

	s.logger.Debug("transfer redeemed", "id", id)
	return record.Payload, nil
}

// ValidID reports whether id has the shape of an id this service mints.
func (s *Service) ValidID(id string) bool {
	return s.ids.Valid(id)
}
