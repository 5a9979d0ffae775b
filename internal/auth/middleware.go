// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarkovtracker/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the verified *Claims.
const ClaimsContextKey contextKey = "claims"

// Middleware provides authentication middleware
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// RequireAuth rejects requests without a valid bearer token.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.requireAuth(next, "")
}

// RequireAuthRedirect is RequireAuth for protected pages: browser
// navigations that fail authentication are redirected to target instead
// of receiving a 401 body.
func (m *Middleware) RequireAuthRedirect(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.requireAuth(next, target)
	}
}

func (m *Middleware) requireAuth(next http.Handler, redirect string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reject := func(msg string) {
			if redirect != "" && WantsHTML(r) {
				http.Redirect(w, r, redirect, http.StatusFound)
				return
			}
			writeUnauthorized(w, r, msg)
		}

		token, ok := BearerToken(r)
		if !ok {
			reject("missing bearer token")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			reject("invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		ctx = logging.ContextWithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WantsHTML reports whether r is a browser navigation: a GET or HEAD that
// accepts text/html.
func WantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(mt, "text/html") {
			return true
		}
	}
	return false
}

// OptionalAuth attaches claims when a bearer token is present. Requests
// without a token pass through anonymously; an invalid token is rejected.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := BearerToken(r); !ok {
			next.ServeHTTP(w, r)
			return
		}
		m.RequireAuth(next).ServeHTTP(w, r)
	})
}

// RequireAuthUpgrade is RequireAuth for websocket upgrades. Browsers cannot
// set headers on the handshake, so the token may also arrive in the
// access_token query parameter.
func (m *Middleware) RequireAuthUpgrade(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := BearerToken(r); !ok {
			if token := r.URL.Query().Get("access_token"); token != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		m.RequireAuth(next).ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// ClaimsFromContext returns the verified claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok && c != nil
}

// ContextWithClaims attaches claims to ctx.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, c)
}

// UserID returns the authenticated user id, or "".
func UserID(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Subject
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tarkovtracker"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":       "UNAUTHORIZED",
			"message":    msg,
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
	})
}
