// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package edgecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// Status reports how a Fetch was served.
type Status string

const (
	StatusHit    Status = "HIT"
	StatusMiss   Status = "MISS"
	StatusBypass Status = "BYPASS"
)

// DefaultPrefix is used when Options.CacheKeyPrefix is empty.
const DefaultPrefix = "tarkov-data"

// FetchFunc produces the payload on a miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Options tune a single Fetch.
type Options struct {
	CacheKeyPrefix string
	// Bypass skips both lookup and store.
	Bypass bool
}

// Result is the payload with its cache status.
type Result struct {
	Body   []byte
	Status Status
	// Key is the synthetic lookup URL.
	Key string
}

// Stats combines backend contents with hit counters since start.
type Stats struct {
	StoreStats
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Bypasses     int64 `json:"bypasses"`
	PendingWrite int   `json:"pending_writes"`
}

// Config configures a Cache.
type Config struct {
	AppURL      string
	DefaultHost string
	Prefix      string

	// ForwardedHosts lists the X-Forwarded-Host values that may select a
	// cache namespace. Any other forwarded host is ignored.
	ForwardedHosts []string
}

// Cache fronts a Store with host-scoped keys and miss coalescing.
type Cache struct {
	store    Store
	deferrer Deferrer
	hosts    HostResolver
	prefix   string
	group    singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	bypasses atomic.Int64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithDeferrer routes post-miss writes through d instead of writing inline.
func WithDeferrer(d Deferrer) Option {
	return func(c *Cache) { c.deferrer = d }
}

// New creates a Cache over store.
func New(store Store, cfg Config, opts ...Option) *Cache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	c := &Cache{
		store:  store,
		hosts:  NewHostResolver(cfg.AppURL, cfg.DefaultHost, cfg.ForwardedHosts),
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached payload for key or calls fetcher and stores the
// result for ttl. Fetcher errors propagate unchanged and nothing is stored.
// A failing backend read is treated as a miss; a failing write is logged.
func (c *Cache) Fetch(ctx context.Context, r *http.Request, key string, fetcher FetchFunc, ttl time.Duration, opts Options) (Result, error) {
	prefix := opts.CacheKeyPrefix
	if prefix == "" {
		prefix = c.prefix
	}
	lookupKey := c.hosts.LookupKey(r, prefix, key)

	if opts.Bypass {
		body, err := fetcher(ctx)
		if err != nil {
			return Result{}, err
		}
		c.bypasses.Add(1)
		metrics.RecordCacheStatus(prefix, string(StatusBypass))
		return Result{Body: body, Status: StatusBypass, Key: lookupKey}, nil
	}

	body, err := c.store.Get(ctx, lookupKey)
	switch {
	case err == nil:
		c.hits.Add(1)
		metrics.RecordCacheStatus(prefix, string(StatusHit))
		return Result{Body: body, Status: StatusHit, Key: lookupKey}, nil
	case !errors.Is(err, ErrNotFound):
		metrics.RecordCacheError(c.store.Backend(), "get")
		logging.Ctx(ctx).Warn().Err(err).Str("cache_key", lookupKey).Msg("Edge cache read failed, treating as miss")
	}

	v, err, _ := c.group.Do(lookupKey, func() (any, error) {
		body, err := fetcher(ctx)
		if err != nil {
			return nil, err
		}
		c.write(ctx, lookupKey, body, ttl)
		return body, nil
	})
	if err != nil {
		return Result{}, err
	}

	c.misses.Add(1)
	metrics.RecordCacheStatus(prefix, string(StatusMiss))
	return Result{Body: v.([]byte), Status: StatusMiss, Key: lookupKey}, nil
}

// write stores body through the deferrer when one is configured.
func (c *Cache) write(ctx context.Context, key string, body []byte, ttl time.Duration) {
	write := func(wctx context.Context) {
		if err := c.store.Set(wctx, key, body, ttl); err != nil {
			metrics.RecordCacheError(c.store.Backend(), "set")
			logging.Ctx(ctx).Warn().Err(err).Str("cache_key", key).Msg("Edge cache write failed")
		}
	}
	if c.deferrer == nil {
		write(ctx)
		return
	}
	c.deferrer.Defer(write)
}

// Purge removes entries whose lookup URL contains fragment.
func (c *Cache) Purge(ctx context.Context, fragment string) (int, error) {
	n, err := c.store.Purge(ctx, fragment)
	if err != nil {
		metrics.RecordCacheError(c.store.Backend(), "purge")
		return n, fmt.Errorf("purge edge cache: %w", err)
	}
	logging.Ctx(ctx).Info().Int("removed", n).Str("fragment", logging.SanitizeLogValue(fragment)).Msg("Edge cache purged")
	return n, nil
}

// Stats reports backend contents and hit counters.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	st, err := c.store.Stats(ctx)
	if err != nil {
		metrics.RecordCacheError(c.store.Backend(), "stats")
		return Stats{}, fmt.Errorf("edge cache stats: %w", err)
	}
	out := Stats{
		StoreStats: st,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Bypasses:   c.bypasses.Load(),
	}
	if wb, ok := c.deferrer.(*WriteBehind); ok {
		out.PendingWrite = wb.Pending()
	}
	return out, nil
}

// Backend names the configured store.
func (c *Cache) Backend() string {
	return c.store.Backend()
}

// CacheControl formats the public caching header for ttl.
func CacheControl(ttl time.Duration) string {
	secs := int64(ttl / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("public, max-age=%d, s-maxage=%d", secs, secs)
}
