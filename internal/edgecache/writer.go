// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package edgecache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// Deferrer runs a task after the response has been produced.
type Deferrer interface {
	Defer(task func(ctx context.Context))
}

// WriteBehind is a bounded Deferrer drained by Serve. When the queue is full,
// or the worker has stopped, tasks run inline on the caller's goroutine.
type WriteBehind struct {
	queue       chan func(context.Context)
	taskTimeout time.Duration
	stopped     atomic.Bool
}

// NewWriteBehind creates a queue holding up to size pending tasks.
func NewWriteBehind(size int) *WriteBehind {
	if size <= 0 {
		size = 256
	}
	return &WriteBehind{
		queue:       make(chan func(context.Context), size),
		taskTimeout: 10 * time.Second,
	}
}

// Defer enqueues task without blocking.
func (w *WriteBehind) Defer(task func(ctx context.Context)) {
	if !w.stopped.Load() {
		select {
		case w.queue <- task:
			metrics.EdgeCacheWriteQueueDepth.Set(float64(len(w.queue)))
			return
		default:
			logging.Debug().Int("queue_size", cap(w.queue)).Msg("Write-behind queue full, writing inline")
		}
	}
	w.run(context.Background(), task)
}

// Pending returns the number of queued tasks.
func (w *WriteBehind) Pending() int {
	return len(w.queue)
}

// Serve drains the queue until ctx is canceled, then flushes what is left.
func (w *WriteBehind) Serve(ctx context.Context) error {
	w.stopped.Store(false)
	for {
		select {
		case <-ctx.Done():
			w.stopped.Store(true)
			w.drain()
			return ctx.Err()
		case task := <-w.queue:
			metrics.EdgeCacheWriteQueueDepth.Set(float64(len(w.queue)))
			w.run(context.Background(), task)
		}
	}
}

func (w *WriteBehind) String() string { return "edgecache-write-behind" }

func (w *WriteBehind) drain() {
	for {
		select {
		case task := <-w.queue:
			w.run(context.Background(), task)
		default:
			metrics.EdgeCacheWriteQueueDepth.Set(0)
			return
		}
	}
}

func (w *WriteBehind) run(parent context.Context, task func(context.Context)) {
	ctx, cancel := context.WithTimeout(parent, w.taskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("Deferred cache write panicked")
		}
	}()
	task(ctx)
}
