// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package overlay

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// Config configures a Service.
type Config struct {
	// TTL is how long a loaded document is served before reloading.
	TTL time.Duration
	// RefreshInterval drives the background refresh loop in Serve.
	RefreshInterval time.Duration
}

// ApplyOptions tune a single Apply.
type ApplyOptions struct {
	// BypassCache forces a reload of the overlay document.
	BypassCache bool
}

// Service loads, caches and applies the overlay document.
type Service struct {
	source          Source
	ttl             time.Duration
	refreshInterval time.Duration
	now             func() time.Time

	mu       sync.RWMutex
	doc      *Document
	loadedAt time.Time
	group    singleflight.Group

	log zerolog.Logger
}

// NewService creates a Service reading from source.
func NewService(source Source, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = cfg.TTL
	}
	return &Service{
		source:          source,
		ttl:             cfg.TTL,
		refreshInterval: cfg.RefreshInterval,
		now:             time.Now,
		log:             logging.WithComponent("overlay"),
	}
}

// Document returns the cached overlay, loading it when absent, stale or
// when bypass is set. A failed reload keeps serving the previous document.
func (s *Service) Document(ctx context.Context, bypass bool) (*Document, error) {
	s.mu.RLock()
	doc, loadedAt := s.doc, s.loadedAt
	s.mu.RUnlock()

	if doc != nil && !bypass && s.now().Sub(loadedAt) < s.ttl {
		return doc, nil
	}

	v, err, _ := s.group.Do("overlay", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		if doc != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("source", s.source.String()).Msg("Overlay reload failed, keeping previous document")
			return doc, nil
		}
		return nil, err
	}
	return v.(*Document), nil
}

func (s *Service) load(ctx context.Context) (*Document, error) {
	data, err := s.source.Load(ctx)
	if err != nil {
		metrics.OverlayLoads.WithLabelValues("error").Inc()
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		metrics.OverlayLoads.WithLabelValues("invalid").Inc()
		return nil, err
	}

	now := s.now()
	s.mu.Lock()
	s.doc = doc
	s.loadedAt = now
	s.mu.Unlock()

	metrics.OverlayLoads.WithLabelValues("success").Inc()
	metrics.OverlayLastLoad.Set(float64(now.Unix()))
	logging.Ctx(ctx).Debug().
		Str("source", s.source.String()).
		Str("version", doc.Version()).
		Int("collections", len(doc.Shared)).
		Msg("Overlay loaded")
	return doc, nil
}

// Refresh reloads the document now.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// Apply patches the "data" member of an upstream GraphQL body with the
// overlay layer for gameMode. A body whose data is not an object, or any
// body when no overlay could ever be loaded, is returned untouched.
func (s *Service) Apply(ctx context.Context, body []byte, gameMode string, opts ApplyOptions) ([]byte, error) {
	doc, err := s.Document(ctx, opts.BypassCache)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Overlay unavailable, serving upstream data unpatched")
		return body, nil
	}

	root, err := decodeObject(body)
	if err != nil {
		return body, fmt.Errorf("decode payload: %w", err)
	}
	data, ok := root["data"].(map[string]any)
	if !ok {
		return body, nil
	}

	if ApplyLayer(data, doc.Layer(gameMode)) == 0 {
		return body, nil
	}
	root["data"] = data

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(root); err != nil {
		return body, fmt.Errorf("encode payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Editions returns the effective game edition definitions for gameMode,
// keyed by edition id.
func (s *Service) Editions(ctx context.Context, gameMode string) (map[string]any, error) {
	doc, err := s.Document(ctx, false)
	if err != nil {
		return nil, err
	}
	editions, _ := doc.Layer(gameMode)["editions"].(map[string]any)
	if editions == nil {
		editions = map[string]any{}
	}
	return editions, nil
}

// Serve refreshes the document every RefreshInterval until ctx is canceled.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Str("source", s.source.String()).Msg("Initial overlay load failed")
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn().Err(err).Str("source", s.source.String()).Msg("Overlay refresh failed")
			}
		}
	}
}

func (s *Service) String() string { return "overlay-refresher" }
