// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package authprovider forwards OAuth consent decisions to the backend
// auth provider on behalf of the signed-in user.
package authprovider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotConfigured is returned when no provider URL is set.
var ErrNotConfigured = errors.New("auth provider not configured")

// ErrNoRedirect is returned when the provider accepts a decision but names
// no redirect target.
var ErrNoRedirect = errors.New("auth provider returned no redirect")

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth provider returned status %d: %s", e.Code, e.Message)
}

// Config configures a Client.
type Config struct {
	URL         string
	APIKey      string
	ApprovePath string
	Timeout     time.Duration
}

// Decision is a user's answer to an authorization request.
type Decision struct {
	AuthorizationID string `json:"authorization_id" validate:"required,max=128"`
	Consent         string `json:"consent" validate:"required,oneof=approve deny"`
}

// Client talks to the auth provider.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Client.
func New(cfg Config, client *http.Client) *Client {
	if cfg.ApprovePath == "" {
		cfg.ApprovePath = "/auth/v1/oauth/authorizations/approve"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, client: client}
}

// Approve submits d using the caller's bearer token and returns the URL the
// browser should be sent to next.
func (c *Client) Approve(ctx context.Context, bearer string, d Decision) (string, error) {
	if c.cfg.URL == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode decision: %w", err)
	}
	url := strings.TrimRight(c.cfg.URL, "/") + "/" + strings.TrimLeft(c.cfg.ApprovePath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out struct {
		RedirectURL string `json:"redirect_url"`
		RedirectTo  string `json:"redirect_to"`
		Message     string `json:"msg"`
		Error       string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &StatusError{Code: resp.StatusCode, Message: msg}
	}

	switch {
	case out.RedirectURL != "":
		return out.RedirectURL, nil
	case out.RedirectTo != "":
		return out.RedirectTo, nil
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		return loc, nil
	}
	return "", ErrNoRedirect
}
