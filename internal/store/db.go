// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tarkovtracker/internal/logging"
)

// ErrClosed is returned by operations on a closed DB.
var ErrClosed = errors.New("store is closed")

// Config configures Open.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCRatio is the value log GC discard ratio. Default 0.5.
	GCRatio float64
	// GCInterval drives the value log GC loop in Serve. Default 10m.
	GCInterval time.Duration
}

// DB wraps the badger database shared by all tables.
type DB struct {
	db         *badger.DB
	gcRatio    float64
	gcInterval time.Duration
	closed     atomic.Bool
	log        zerolog.Logger
}

// Open opens (or creates) the database.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Store opened")
	return &DB{db: db, gcRatio: cfg.GCRatio, gcInterval: cfg.GCInterval, log: logging.WithComponent("store")}, nil
}

// Badger exposes the underlying database for components sharing it.
func (d *DB) Badger() *badger.DB {
	return d.db
}

// Close closes the database once.
func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}

// Ping reports whether the database accepts operations.
func (d *DB) Ping(_ context.Context) error {
	if d.closed.Load() || d.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// RunGC runs value log GC until nothing is left to rewrite.
func (d *DB) RunGC() error {
	if d.closed.Load() {
		return ErrClosed
	}
	if d.db.Opts().InMemory {
		return nil
	}
	for {
		err := d.db.RunValueLogGC(d.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Serve runs value log GC every GCInterval until ctx is canceled.
func (d *DB) Serve(ctx context.Context) error {
	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.RunGC(); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				d.log.Warn().Err(err).Msg("Store value log GC failed")
			}
		}
	}
}

func (d *DB) String() string { return "store-gc" }
