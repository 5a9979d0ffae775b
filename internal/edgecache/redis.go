// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package edgecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

const redisDeleteBatch = 100

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every key. Defaults to "tarkovtracker:edge:".
	Namespace string
}

// RedisStore shares entries between replicas through redis.
type RedisStore struct {
	rdb       *goredis.Client
	namespace string
}

// NewRedisStore connects to redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, opts.Namespace), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *goredis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "tarkovtracker:edge:"
	}
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) Backend() string { return "redis" }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.namespace+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Purge(ctx context.Context, fragment string) (int, error) {
	keys, err := s.scan(ctx, fragment)
	if err != nil {
		return 0, err
	}

	removed := 0
	for start := 0; start < len(keys); start += redisDeleteBatch {
		end := min(start+redisDeleteBatch, len(keys))
		n, err := s.rdb.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("redis purge: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *RedisStore) Stats(ctx context.Context) (StoreStats, error) {
	keys, err := s.scan(ctx, "")
	if err != nil {
		return StoreStats{}, err
	}
	metrics.EdgeCacheEntries.WithLabelValues(s.Backend()).Set(float64(len(keys)))
	return StoreStats{Backend: s.Backend(), Entries: int64(len(keys))}, nil
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) scan(ctx context.Context, fragment string) ([]string, error) {
	pattern := escapeGlob(s.namespace) + "*"
	if fragment != "" {
		pattern += escapeGlob(fragment) + "*"
	}

	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 250).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
