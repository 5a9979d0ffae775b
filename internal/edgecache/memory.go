// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package edgecache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// DefaultMemoryCapacity bounds a MemoryStore created with capacity <= 0.
const DefaultMemoryCapacity = 1000

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *memoryEntry
	next      *memoryEntry
}

// MemoryStore is a thread-safe in-memory Store with per-entry TTL and a
// least-recently-used bound on the number of entries.
// Expired entries are dropped on read and by the cleanup loop run from Serve.
type MemoryStore struct {
	mu              sync.Mutex
	capacity        int
	entries         map[string]*memoryEntry
	cleanupInterval time.Duration
	now             func() time.Time

	// head.next is the most recently used entry, tail.prev the least.
	head *memoryEntry
	tail *memoryEntry

	evictions int64
}

// NewMemoryStore creates an empty store holding at most capacity entries.
// capacity defaults to DefaultMemoryCapacity, cleanupInterval to 5m.
func NewMemoryStore(capacity int, cleanupInterval time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	m := &MemoryStore{
		capacity:        capacity,
		entries:         make(map[string]*memoryEntry),
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		head:            &memoryEntry{},
		tail:            &memoryEntry{},
	}
	m.head.next = m.tail
	m.tail.prev = m.head
	return m
}

func (m *MemoryStore) Backend() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(entry.expiresAt) {
		m.remove(entry)
		return nil, ErrNotFound
	}
	m.moveToFront(entry)
	return entry.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	expiresAt := m.now().Add(ttl)

	m.mu.Lock()
	if entry, ok := m.entries[key]; ok {
		entry.value = buf
		entry.expiresAt = expiresAt
		m.moveToFront(entry)
	} else {
		entry := &memoryEntry{key: key, value: buf, expiresAt: expiresAt}
		m.addToFront(entry)
		m.entries[key] = entry
		for len(m.entries) > m.capacity {
			m.remove(m.tail.prev)
			m.evictions++
		}
	}
	n := len(m.entries)
	m.mu.Unlock()

	metrics.EdgeCacheEntries.WithLabelValues(m.Backend()).Set(float64(n))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	if entry, ok := m.entries[key]; ok {
		m.remove(entry)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) addToFront(e *memoryEntry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

func (m *MemoryStore) moveToFront(e *memoryEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	m.addToFront(e)
}

// remove unlinks e. Callers hold mu.
func (m *MemoryStore) remove(e *memoryEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
	delete(m.entries, e.key)
}

func (m *MemoryStore) Purge(_ context.Context, fragment string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fragment == "" {
		n := len(m.entries)
		m.entries = make(map[string]*memoryEntry)
		m.head.next = m.tail
		m.tail.prev = m.head
		metrics.EdgeCacheEntries.WithLabelValues(m.Backend()).Set(0)
		return n, nil
	}

	removed := 0
	for key, entry := range m.entries {
		if strings.Contains(key, fragment) {
			m.remove(entry)
			removed++
		}
	}
	metrics.EdgeCacheEntries.WithLabelValues(m.Backend()).Set(float64(len(m.entries)))
	return removed, nil
}

func (m *MemoryStore) Stats(_ context.Context) (StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StoreStats{Backend: m.Backend(), Entries: int64(len(m.entries)), Evictions: m.evictions}, nil
}

// Cleanup removes expired entries and returns how many were dropped.
func (m *MemoryStore) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			m.remove(entry)
			removed++
		}
	}
	metrics.EdgeCacheEntries.WithLabelValues(m.Backend()).Set(float64(len(m.entries)))
	return removed
}

// Serve runs the cleanup loop until ctx is canceled.
func (m *MemoryStore) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *MemoryStore) String() string { return "edgecache-memory-cleanup" }
