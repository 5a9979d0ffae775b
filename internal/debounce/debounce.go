// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package debounce coalesces bursts of work per key.
//
// Trigger schedules fn to run once the key has been quiet for the window;
// a later Trigger for the same key replaces the pending fn and restarts the
// timer, so only the last one runs.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// ErrStopped is returned by Trigger after Stop.
var ErrStopped = errors.New("debouncer stopped")

// Func is debounced work. The context carries no deadline beyond the
// debouncer's own flush timeout.
type Func func(ctx context.Context)

type pending struct {
	fn    Func
	timer *time.Timer
	gen   uint64
}

// Debouncer runs the last Func triggered for each key after a quiet window.
type Debouncer[K comparable] struct {
	window  time.Duration
	timeout time.Duration

	mu      sync.Mutex
	pending map[K]*pending
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Debouncer with the given quiet window.
func New[K comparable](window time.Duration) *Debouncer[K] {
	if window <= 0 {
		window = 250 * time.Millisecond
	}
	return &Debouncer[K]{
		window:  window,
		timeout: 30 * time.Second,
		pending: make(map[K]*pending),
	}
}

// Trigger schedules fn for key, replacing any pending fn.
func (d *Debouncer[K]) Trigger(key K, fn Func) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	p := &pending{fn: fn, gen: gen}
	p.timer = time.AfterFunc(d.window, func() { d.fire(key, gen) })
	d.pending[key] = p
	metrics.DebouncePending.Set(float64(len(d.pending)))
	return nil
}

// fire runs the pending fn for key if it is still generation gen.
func (d *Debouncer[K]) fire(key K, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	metrics.DebouncePending.Set(float64(len(d.pending)))
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	d.run(p.fn)
}

func (d *Debouncer[K]) run(fn Func) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("Debounced function panicked")
		}
	}()
	fn(ctx)
}

// Pending returns the number of keys waiting to run.
func (d *Debouncer[K]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush runs every pending fn now, on the caller's goroutine, and waits for
// fns already running.
func (d *Debouncer[K]) Flush() {
	d.mu.Lock()
	fns := make([]Func, 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		fns = append(fns, p.fn)
		delete(d.pending, key)
	}
	metrics.DebouncePending.Set(0)
	d.mu.Unlock()

	for _, fn := range fns {
		d.run(fn)
	}
	d.wg.Wait()
}

// Stop flushes pending work and rejects further triggers.
func (d *Debouncer[K]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.Flush()
}

// Serve blocks until ctx is canceled, then stops the debouncer so pending
// writes are flushed during shutdown.
func (d *Debouncer[K]) Serve(ctx context.Context) error {
	<-ctx.Done()
	d.Stop()
	return ctx.Err()
}

func (d *Debouncer[K]) String() string { return "debounce-flusher" }
