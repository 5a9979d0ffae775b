// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/authprovider"
	"github.com/tomtom215/tarkovtracker/internal/issues"
	"github.com/tomtom215/tarkovtracker/internal/logging"
)

// CreateIssue forwards a validated bug report to the GitHub issue tracker.
// Authenticated callers are credited by user id.
func (h *Handler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.issues == nil || !h.issues.Enabled() {
		rw.ServiceUnavailable("Issue reporting is not configured")
		return
	}

	var report issues.Report
	if !decodeAndValidate(w, r, &report) {
		return
	}
	if report.UserAgent == "" {
		report.UserAgent = r.UserAgent()
	}

	reporter := "anonymous"
	if id := userID(r); id != "" {
		reporter = id
	}

	issue, err := h.issues.Create(r.Context(), report, reporter)
	if err != nil {
		switch {
		case errors.Is(err, issues.ErrRateLimited):
			rw.TooManyRequests("Too many reports, try again later")
		case errors.Is(err, issues.ErrDisabled):
			rw.ServiceUnavailable("Issue reporting is not configured")
		default:
			rw.ExternalServiceError("github", err)
		}
		return
	}

	logging.Ctx(r.Context()).Info().Int("issue", issue.Number).Msg("Bug report forwarded")
	rw.Created(issue)
}

// ApproveOAuth forwards the caller's consent decision to the auth provider
// and returns the redirect URL it answers with.
func (h *Handler) ApproveOAuth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.authProvider == nil {
		rw.ServiceUnavailable("Auth provider is not configured")
		return
	}

	var decision authprovider.Decision
	if !decodeAndValidate(w, r, &decision) {
		return
	}
	bearer, _ := auth.BearerToken(r)

	redirect, err := h.authProvider.Approve(r.Context(), bearer, decision)
	if err != nil {
		var statusErr *authprovider.StatusError
		switch {
		case errors.Is(err, authprovider.ErrNotConfigured):
			rw.ServiceUnavailable("Auth provider is not configured")
		case errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500:
			rw.Error(statusErr.Code, ErrCodeBadRequest, statusErr.Message)
		default:
			rw.ExternalServiceError("auth provider", err)
		}
		return
	}

	rw.Success(map[string]string{"redirectUrl": redirect})
}
