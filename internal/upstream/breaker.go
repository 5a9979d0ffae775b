// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package upstream

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// BreakerSettings tunes the upstream circuit breaker.
type BreakerSettings struct {
	Name string
	// MaxFailures consecutive failures open the circuit. Zero disables it.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// Interval resets counts while closed.
	Interval time.Duration
}

// Breaker guards upstream attempts with a gobreaker circuit breaker.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[[]byte]
	name string
}

// NewBreaker returns nil when s.MaxFailures is zero; a nil *Breaker runs
// functions unguarded.
func NewBreaker(s BreakerSettings) *Breaker {
	if s.MaxFailures == 0 {
		return nil
	}
	if s.Name == "" {
		s.Name = "tarkov-api"
	}
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= s.MaxFailures
			if trip {
				logging.Warn().
					Str("breaker", s.Name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("Opening upstream circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// Cancellation by our own caller says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{cb: cb, name: s.Name}
}

// Execute runs fn through the breaker. Rejections are reported as
// ErrCircuitOpen.
func (b *Breaker) Execute(fn func() ([]byte, error)) ([]byte, error) {
	if b == nil {
		return fn()
	}
	body, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, ErrCircuitOpen
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return body, nil
}

// State returns the breaker state name ("closed" when disabled).
func (b *Breaker) State() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
