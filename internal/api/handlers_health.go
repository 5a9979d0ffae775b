// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probes. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probes. The service is ready when the store
// accepts operations; an open upstream breaker is reported but does not fail
// readiness because cached datasets are still served.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeReady := h.db != nil && h.db.Ping(r.Context()) == nil
	breaker := "unknown"
	if h.upstream != nil {
		breaker = h.upstream.BreakerState()
	}

	status := map[string]interface{}{
		"ready":    storeReady,
		"store":    storeReady,
		"upstream": breaker,
		"uptime":   time.Since(h.startTime).Seconds(),
	}
	if !storeReady {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service not ready", status)
		return
	}
	rw.Success(status)
}
