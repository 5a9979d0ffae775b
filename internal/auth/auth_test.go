// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/tarkovtracker/internal/config"
)

const testSecret = "test-secret-with-at-least-32-characters!"

func newTestManager(t *testing.T, issuer, audience string) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, JWTIssuer: issuer, JWTAudience: audience})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestValidateToken(t *testing.T) {
	m := newTestManager(t, "https://auth.test", "authenticated")

	token, err := m.GenerateToken("user-1", "authenticated", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Errorf("subject = %q", claims.UserID())
	}

	other := newTestManager(t, "https://other.test", "authenticated")
	foreign, _ := other.GenerateToken("user-1", "", time.Hour)
	if _, err := m.ValidateToken(foreign); err == nil {
		t.Error("token from another issuer accepted")
	}

	expired, _ := m.GenerateToken("user-1", "", -time.Minute)
	if _, err := m.ValidateToken(expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expired token error = %v", err)
	}

	noSub, _ := m.GenerateToken("", "", time.Hour)
	if _, err := m.ValidateToken(noSub); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("missing subject error = %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := m.ValidateToken(unsigned); err == nil {
		t.Error("unsigned token accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	m := newTestManager(t, "", "")
	mw := NewMiddleware(m)
	valid, _ := m.GenerateToken("user-7", "", time.Hour)

	var seen string
	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/progress", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && seen != "user-7" {
				t.Errorf("user id = %q", seen)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"UNAUTHORIZED"`) {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := newTestManager(t, "", "")
	mw := NewMiddleware(m)
	valid, _ := m.GenerateToken("user-9", "", time.Hour)

	var seen string
	h := mw.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		want     int
		wantUser string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid", "Bearer " + valid, http.StatusNoContent, "user-9"},
		{"invalid", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/api/github/issues", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if seen != tt.wantUser {
				t.Errorf("user id = %q, want %q", seen, tt.wantUser)
			}
		})
	}
}

func TestRequireAuthUpgrade_QueryToken(t *testing.T) {
	m := newTestManager(t, "", "")
	mw := NewMiddleware(m)
	valid, _ := m.GenerateToken("user-3", "", time.Hour)

	var seen string
	h := mw.RequireAuthUpgrade(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/team/ws?access_token="+valid, nil))
	if rec.Code != http.StatusNoContent || seen != "user-3" {
		t.Fatalf("status = %d, user = %q", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/team/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d", rec.Code)
	}
}

func TestRequireAuthRedirect(t *testing.T) {
	m := newTestManager(t, "", "")
	h := NewMiddleware(m).RequireAuthRedirect("/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	valid, _ := m.GenerateToken("user-4", "", time.Hour)

	tests := []struct {
		name     string
		method   string
		accept   string
		header   string
		want     int
		location string
	}{
		{"browser without token", http.MethodGet, "text/html,application/xhtml+xml", "", http.StatusFound, "/"},
		{"browser with bad token", http.MethodGet, "text/html", "Bearer nope", http.StatusFound, "/"},
		{"api client", http.MethodGet, "application/json", "", http.StatusUnauthorized, ""},
		{"browser post", http.MethodPost, "text/html", "", http.StatusUnauthorized, ""},
		{"valid token", http.MethodGet, "text/html", "Bearer " + valid, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/admin/cache/stats", nil)
			req.Header.Set("Accept", tt.accept)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}
