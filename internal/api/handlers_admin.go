// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"net/http"

	"github.com/tomtom215/tarkovtracker/internal/logging"
)

type purgeRequest struct {
	// Fragment selects cache keys containing it; empty purges everything.
	Fragment string `json:"fragment" validate:"omitempty,max=200"`
}

// PurgeCache removes edge cache entries and drops memoized reference data.
func (h *Handler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.cache == nil {
		rw.ServiceUnavailable("Edge cache unavailable")
		return
	}

	var req purgeRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	n, err := h.cache.Purge(r.Context(), req.Fragment)
	if err != nil {
		rw.InternalError("Cache purge failed")
		logging.Ctx(r.Context()).Error().Err(err).Msg("Cache purge failed")
		return
	}
	if h.data != nil {
		h.data.InvalidateReference()
	}

	logging.Ctx(r.Context()).Info().
		Str("fragment", logging.SanitizeLogValue(req.Fragment)).
		Int("purged", n).
		Msg("Edge cache purged")
	rw.Success(map[string]int{"purged": n})
}

// CacheStats reports edge cache contents and hit counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.cache == nil {
		rw.ServiceUnavailable("Edge cache unavailable")
		return
	}

	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		rw.InternalError("Cache stats unavailable")
		logging.Ctx(r.Context()).Error().Err(err).Msg("Cache stats failed")
		return
	}
	rw.Success(stats)
}
