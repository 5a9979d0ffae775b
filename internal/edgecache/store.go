// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package edgecache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("edge cache entry not found")

// Store is a byte-oriented TTL key-value backend.
type Store interface {
	// Get returns ErrNotFound for absent or expired entries.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Purge removes every entry whose key contains fragment. An empty
	// fragment removes everything. It returns the number of entries removed.
	Purge(ctx context.Context, fragment string) (int, error)
	Stats(ctx context.Context) (StoreStats, error)
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// StoreStats describes a backend's current contents.
type StoreStats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`

	// Evictions counts entries dropped to stay within a size bound.
	Evictions int64 `json:"evictions,omitempty"`
}
