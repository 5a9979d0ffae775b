// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/logging"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// RequireAdmin authorizes the request path and method for the caller. It
// must run after auth.Middleware.RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || claims.Subject == "" {
			authzDecisions.WithLabelValues("no_claims").Inc()
			deny(w, r)
			return
		}

		if m.enforcer == nil {
			authzDecisions.WithLabelValues("error").Inc()
			deny(w, r)
			return
		}
		allowed, err := m.enforcer.Enforce(claims.Subject, r.URL.Path, methodToAction(r.Method))
		if err != nil {
			authzDecisions.WithLabelValues("error").Inc()
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			deny(w, r)
			return
		}
		if !allowed {
			authzDecisions.WithLabelValues("deny").Inc()
			logging.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Admin access denied")
			deny(w, r)
			return
		}

		authzDecisions.WithLabelValues("allow").Inc()
		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// deny answers 403, or redirects browser navigations to the home page.
func deny(w http.ResponseWriter, r *http.Request) {
	if auth.WantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":       "FORBIDDEN",
			"message":    "insufficient permissions",
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
	})
}
