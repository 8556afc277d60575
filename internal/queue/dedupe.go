// Package queue implements the Job Queue & Worker Pool: a Kafka-backed
// durable FIFO transport per logical queue, a Redis-backed side store for
// duplicate-submission detection and claim visibility-timeout bookkeeping,
// and the worker loop that claims, runs, and finalizes jobs.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ragcore/internal/errs"
)

// SideStore provides fast duplicate-submission detection and
// visibility-timeout bookkeeping, keyed by job fingerprint, outside the
// durable Kafka log.
type SideStore interface {
	// Get returns the value stored under key, or "" if absent.
	Get(ctx context.Context, key string) (string, error)
	// SetNX stores value under key with ttl only if key is not already set,
	// reporting whether the set happened (false means a duplicate).
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Set unconditionally stores value under key with ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisSideStore is a Redis-backed SideStore.
type RedisSideStore struct {
	client *redis.Client
}

// NewRedisSideStore connects to addr and verifies connectivity.
func NewRedisSideStore(addr string) (*RedisSideStore, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, errs.Wrap(errs.DependencyUnavailable, "ping redis", err)
	}
	return &RedisSideStore{client: c}, nil
}

func (s *RedisSideStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *RedisSideStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisSideStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisSideStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisSideStore) Close() error { return s.client.Close() }

// MemorySideStore is an in-process SideStore for tests and local dev. Guarded
// by a mutex since cmd/ingestd runs worker_count worker goroutines against
// one shared SideStore when REDIS_URL is unset.
type MemorySideStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySideStore() *MemorySideStore {
	return &MemorySideStore{values: make(map[string]string)}
}

func (m *MemorySideStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemorySideStore) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *MemorySideStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySideStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemorySideStore) Close() error { return nil }
