// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stusave.app/internal/models"
)

var _ Store = (*RedisStore)(nil)

// RedisStore shares the exchange table between server instances.
type RedisStore struct {
	client *redis.Client
	opts   options
}

func NewRedisStore(redisOpts *redis.Options, opts ...Option) (*RedisStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	client := redis.NewClient(redisOpts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, opts: o}, nil
}

func (r *RedisStore) Insert(ctx context.Context, record *models.Record) error {
	ttl := record.ExpiresAt.Sub(r.opts.now())
	if ttl <= 0 {
		return ErrExpired
	}

	data, err := encode(record)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, r.key(record.ID), data, ttl+r.opts.expiredGrace).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrIDTaken
	}
	return nil
}

// Take relies on GETDEL so two concurrent callers can never both see the record.
func (r *RedisStore) Take(ctx context.Context, id string) (*models.Record, error) {
	data, err := r.client.GetDel(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis getdel: %w", err)
	}

	record, err := decode(data)
	if err != nil {
		return nil, err
	}

	if record.Expired(r.opts.now()) {
		return nil, ErrExpired
	}
	return record, nil
}

// Sweep is a no-op: Redis expires keys itself.
func (r *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.opts.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func (r *RedisStore) key(id string) string {
	return r.opts.keyPrefix + id
}

func encode(record *models.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Record, error) {
	var record models.Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &record, nil
}
