// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package tarkovdata

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tarkovtracker/internal/edgecache"
	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/overlay"
	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
)

// Defaults applied to empty request fields.
const (
	DefaultLang     = "en"
	DefaultGameMode = "regular"
	DefaultTTL      = 12 * time.Hour
)

// GraphQL executes upstream queries.
type GraphQL interface {
	Fetch(ctx context.Context, query string, variables map[string]any, opts upstream.FetchOptions) (*upstream.Response, error)
}

// Request selects one dataset payload.
type Request struct {
	Dataset  string
	Lang     string
	GameMode string

	// Bypass skips the edge cache and forces an overlay reload.
	Bypass bool
}

// Result is a served dataset payload.
type Result struct {
	Body         []byte
	Status       edgecache.Status
	CacheControl string
}

// Service serves datasets and reference data.
type Service struct {
	gql     GraphQL
	cache   *edgecache.Cache
	overlay *overlay.Service
	ttl     time.Duration
	now     func() time.Time

	refGroup singleflight.Group
	refMu    sync.Mutex
	refs     map[string]cachedReference
}

type cachedReference struct {
	ref     *progress.Reference
	expires time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the clock used for reference memoization.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. ov may be nil when no overlay is configured.
func New(gql GraphQL, cache *edgecache.Cache, ov *overlay.Service, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		gql:     gql,
		cache:   cache,
		overlay: ov,
		ttl:     ttl,
		now:     time.Now,
		refs:    make(map[string]cachedReference),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the edge cache lifetime of dataset payloads.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// CacheKey names a dataset payload inside the edge cache prefix.
func CacheKey(dataset, lang, gameMode string) string {
	return fmt.Sprintf("%s-%s-%s", dataset, lang, gameMode)
}

// Dataset returns a dataset payload. r scopes the cache key to the serving
// host and may be nil for internal callers.
func (s *Service) Dataset(ctx context.Context, r *http.Request, req Request) (Result, error) {
	ds, err := upstream.Lookup(req.Dataset)
	if err != nil {
		return Result{}, err
	}
	lang := req.Lang
	if lang == "" {
		lang = DefaultLang
	}
	gameMode := req.GameMode
	if gameMode == "" {
		gameMode = DefaultGameMode
	}

	fetch := func(ctx context.Context) ([]byte, error) {
		resp, err := s.gql.Fetch(ctx, ds.Query, ds.Variables(lang, gameMode), upstream.FetchOptions{
			Name:         ds.Name,
			AllowPartial: ds.AllowPartial,
		})
		if err != nil {
			return nil, err
		}
		if s.overlay == nil {
			return resp.Raw, nil
		}
		body, err := s.overlay.Apply(ctx, resp.Raw, gameMode, overlay.ApplyOptions{BypassCache: req.Bypass})
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("dataset", ds.Name).Msg("Overlay apply failed, serving upstream payload")
			return resp.Raw, nil
		}
		return body, nil
	}

	res, err := s.cache.Fetch(ctx, r, CacheKey(ds.Name, lang, gameMode), fetch, s.ttl, edgecache.Options{Bypass: req.Bypass})
	if err != nil {
		return Result{}, err
	}
	cc := edgecache.CacheControl(s.ttl)
	if res.Status == edgecache.StatusBypass {
		cc = "no-store"
	}
	return Result{Body: res.Body, Status: res.Status, CacheControl: cc}, nil
}

// Editions returns the overlay's game edition definitions for gameMode.
func (s *Service) Editions(ctx context.Context, gameMode string) (map[string]any, error) {
	if gameMode == "" {
		gameMode = DefaultGameMode
	}
	if s.overlay == nil {
		return map[string]any{}, nil
	}
	return s.overlay.Editions(ctx, gameMode)
}
