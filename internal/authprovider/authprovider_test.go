// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package authprovider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func TestApprove(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		wantErr  error
		wantCode int
	}{
		{name: "redirect_url", status: http.StatusOK, body: `{"redirect_url":"https://app.test/cb?code=1"}`, want: "https://app.test/cb?code=1"},
		{name: "redirect_to", status: http.StatusOK, body: `{"redirect_to":"https://app.test/cb"}`, want: "https://app.test/cb"},
		{name: "no redirect", status: http.StatusOK, body: `{}`, wantErr: ErrNoRedirect},
		{name: "rejected", status: http.StatusForbidden, body: `{"msg":"authorization expired"}`, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Decision
			var auth, key string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				key = r.Header.Get("apikey")
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(Config{URL: srv.URL, APIKey: "anon"}, srv.Client())
			url, err := c.Approve(context.Background(), "user-jwt", Decision{AuthorizationID: "auth-1", Consent: "approve"})

			if auth != "Bearer user-jwt" || key != "anon" {
				t.Errorf("headers auth=%q apikey=%q", auth, key)
			}
			if got.AuthorizationID != "auth-1" || got.Consent != "approve" {
				t.Errorf("forwarded decision = %+v", got)
			}
			switch {
			case tt.wantCode != 0:
				var se *StatusError
				if !errors.As(err, &se) || se.Code != tt.wantCode || se.Message != "authorization expired" {
					t.Errorf("error = %v, want StatusError %d", err, tt.wantCode)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil || url != tt.want {
					t.Errorf("Approve() = %q, %v; want %q", url, err, tt.want)
				}
			}
		})
	}
}

func TestApprove_NotConfigured(t *testing.T) {
	if _, err := New(Config{}, nil).Approve(context.Background(), "t", Decision{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
