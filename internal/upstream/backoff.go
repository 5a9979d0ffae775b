// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package upstream

import (
	"context"
	"time"
)

const (
	// BaseDelay is the wait after the first failed attempt.
	BaseDelay = time.Second
	// MaxDelay caps the wait between attempts.
	MaxDelay = 5 * time.Second
)

// BackoffDelay returns min(BaseDelay * 2^(attempt-1), MaxDelay) for the
// 1-based attempt that just failed.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= MaxDelay {
			return MaxDelay
		}
	}
	return d
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// contextSleep is the production SleepFunc.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
