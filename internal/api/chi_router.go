// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/authz"
	"github.com/tomtom215/tarkovtracker/internal/middleware"
)

// Router wires handlers and middleware into the chi route tree.
type Router struct {
	handler         *Handler
	authMiddleware  *auth.Middleware
	authzMiddleware *authz.Middleware
	chiMiddleware   *ChiMiddleware
}

// NewRouter creates a Router. chiMW may be nil to use defaults.
func NewRouter(handler *Handler, authMW *auth.Middleware, authzMW *authz.Middleware, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:         handler,
		authMiddleware:  authMW,
		authzMiddleware: authzMW,
		chiMiddleware:   chiMW,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	mw := router.chiMiddleware

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(mw.CORS()) // global so OPTIONS preflight is answered everywhere

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusNotFound, ErrCodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Route("/api/health", func(r chi.Router) {
		r.Use(mw.RateLimitCustom("health", RateLimitHealth))
		r.Use(APISecurityHeaders(), NoStore)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Dataset proxy: public, edge cached, compressed.
	r.Route("/api/tarkov", func(r chi.Router) {
		r.Use(mw.RateLimitCustom("tarkov", RateLimitData))
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.Compression))
		r.Get("/editions", h.TarkovEditions)
		r.With(bypassLimit(mw)).Get("/{dataset}", h.TarkovDataset)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitCustom("forward", RateLimitForward))
		r.Use(APISecurityHeaders(), NoStore)
		r.With(router.authMiddleware.OptionalAuth).Post("/api/github/issues", h.CreateIssue)
		r.With(router.authMiddleware.RequireAuth).Post("/api/oauth/approve", h.ApproveOAuth)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders(), NoStore)
		r.Use(router.authMiddleware.RequireAuth)

		r.Get("/api/progress", h.GetProgress)
		r.Get("/api/preferences", h.GetPreferences)
		r.Get("/api/team", h.GetTeam)
		r.Get("/api/team/progress", h.TeamProgress)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimitCustom("write", RateLimitWrite))
			r.Put("/api/progress", h.PutProgress)
			r.Patch("/api/progress/{mode}/tasks/{taskId}", h.PatchTask)
			r.Post("/api/progress/{mode}/hideout/enforce", h.EnforceHideout)
			r.Put("/api/preferences", h.PutPreferences)
			r.Post("/api/team/create", h.CreateTeam)
			r.Post("/api/team/join", h.JoinTeam)
			r.Post("/api/team/leave", h.LeaveTeam)
		})
	})

	// Admin routes authenticate on their own so that browser navigations
	// are redirected home on both 401 and 403.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders(), NoStore)
		r.Use(router.authMiddleware.RequireAuthRedirect("/"))
		r.Use(router.authzMiddleware.RequireAdmin)
		r.Post("/cache/purge", h.PurgeCache)
		r.Get("/cache/stats", h.CacheStats)
	})

	r.With(
		mw.RateLimitCustom("websocket", RateLimitWebSocket),
		router.authMiddleware.RequireAuthUpgrade,
	).Get("/api/team/ws", h.TeamWebSocket)

	return r
}

// bypassLimit applies the stricter bypass limit only to requests that skip
// the edge cache.
func bypassLimit(mw *ChiMiddleware) func(http.Handler) http.Handler {
	limit := mw.RateLimitCustom("bypass", RateLimitBypass)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wantsBypass(r) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
