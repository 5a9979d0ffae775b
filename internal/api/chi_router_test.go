// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/edgecache"
)

func TestAdminCache(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/api/tarkov/traders", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("warm-up status = %d", rec.Code)
	}

	rec := env.do(http.MethodGet, "/api/admin/cache/stats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous stats status = %d", rec.Code)
	}
	if e := decodeEnvelope(t, rec); e.Success || e.Error == nil || e.Error.Code != ErrCodeUnauthorized {
		t.Errorf("anonymous stats envelope = %+v", e)
	}
	if rec := env.do(http.MethodGet, "/api/admin/cache/stats", "u1", nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin stats status = %d", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/admin/cache/stats", "u1", nil, "Accept", "text/html")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("browser non-admin = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = env.do(http.MethodGet, "/api/admin/cache/stats", "", nil, "Accept", "text/html")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("browser anonymous = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := env.do(http.MethodPost, "/api/admin/cache/purge", "", map[string]string{}, "Accept", "text/html"); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous purge from a browser = %d, want 401", rec.Code)
	}

	var stats edgecache.Stats
	decodeData(t, env.do(http.MethodGet, "/api/admin/cache/stats", "admin-1", nil), &stats)
	if stats.Entries != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if rec := env.do(http.MethodPost, "/api/admin/cache/purge", "u1", map[string]string{}); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin purge status = %d", rec.Code)
	}
	var purged map[string]int
	decodeData(t, env.do(http.MethodPost, "/api/admin/cache/purge", "admin-1", map[string]string{"fragment": "traders"}), &purged)
	if purged["purged"] != 1 {
		t.Errorf("purged = %v", purged)
	}
	if rec := env.do(http.MethodGet, "/api/tarkov/traders", "", nil); rec.Header().Get("X-Cache-Status") != "MISS" {
		t.Errorf("after purge X-Cache-Status = %q", rec.Header().Get("X-Cache-Status"))
	}
}

func TestRouter_Envelope404AndRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/nothing-here", "", nil, "X-Request-ID", "req-abcdef123")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-abcdef123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	e := decodeEnvelope(t, rec).Error
	if e == nil || e.Code != ErrCodeNotFound || e.RequestID != "req-abcdef123" {
		t.Errorf("error = %+v", e)
	}

	if rec := env.do(http.MethodDelete, "/api/progress", "u1", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d", rec.Code)
	}
}

func TestRouter_SecurityHeadersAndCORS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/health/live", "", nil, "X-Forwarded-Proto", "https")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Strict-Transport-Security") == "" {
		t.Errorf("security headers = %v", rec.Header())
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/progress", nil)
	req.Header.Set("Origin", "https://tracker.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	pre := httptest.NewRecorder()
	env.server.ServeHTTP(pre, req)
	if got := pre.Header().Get("Access-Control-Allow-Origin"); got != "https://tracker.test" {
		t.Errorf("preflight Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/progress", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	pre = httptest.NewRecorder()
	env.server.ServeHTTP(pre, req)
	if got := pre.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign preflight Allow-Origin = %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t)
	_ = env.do(http.MethodGet, "/api/health/live", "", nil)

	rec := env.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("metrics output lacks api_requests_total")
	}
}

func TestRateLimitCustom(t *testing.T) {
	mw := NewChiMiddleware(nil)
	h := mw.RateLimitCustom("test", RateLimitConfig{Requests: 1, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if got := do(); got != http.StatusNoContent {
		t.Fatalf("first status = %d", got)
	}
	if got := do(); got != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", got)
	}

	disabled := NewChiMiddlewareFromSecurity(nil, 1, time.Minute, true)
	if lim := disabled.RateLimit(); lim(http.NotFoundHandler()) == nil {
		t.Error("disabled limiter should pass through")
	}
}

func TestWantsBypass(t *testing.T) {
	tests := map[string]bool{
		"/api/tarkov/items":              false,
		"/api/tarkov/items?nocache=1":    true,
		"/api/tarkov/items?nocache=true": true,
		"/api/tarkov/items?nocache=0":    false,
		"/api/tarkov/items?nocache=yes":  false,
	}
	for target, want := range tests {
		if got := wantsBypass(httptest.NewRequest(http.MethodGet, target, nil)); got != want {
			t.Errorf("wantsBypass(%s) = %v, want %v", target, got, want)
		}
	}
}
