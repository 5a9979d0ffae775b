// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package issues forwards user bug reports to GitHub as issues, authenticated
// with a bot token and paced by a token bucket.
package issues

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
	"golang.org/x/time/rate"

	"github.com/tomtom215/tarkovtracker/internal/logging"
)

var (
	// ErrDisabled is returned when issue forwarding is not configured.
	ErrDisabled = errors.New("issue reporting disabled")

	// ErrRateLimited is returned when the outbound budget is exhausted.
	ErrRateLimited = errors.New("issue reporting rate limited")
)

// StatusError is a non-2xx GitHub response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github returned status %d: %s", e.Code, e.Body)
}

// Config configures a Client.
type Config struct {
	APIURL         string
	Token          string
	Owner          string
	Repo           string
	Labels         []string
	RequestsPerMin int
	Timeout        time.Duration
}

// Report is a user-submitted bug report.
type Report struct {
	Title       string `json:"title" validate:"required,min=5,max=200"`
	Description string `json:"description" validate:"required,min=10,max=10000"`
	Category    string `json:"category,omitempty" validate:"omitempty,oneof=bug data feature other"`
	Page        string `json:"page,omitempty" validate:"omitempty,max=500"`
	GameMode    string `json:"gameMode,omitempty" validate:"omitempty,gamemode"`
	AppVersion  string `json:"appVersion,omitempty" validate:"omitempty,max=50"`
	UserAgent   string `json:"userAgent,omitempty" validate:"omitempty,max=500"`
}

// Issue is the created GitHub issue.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

type createIssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// Client creates GitHub issues.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Client. A config without token, owner or repo yields a
// client whose Create always returns ErrDisabled.
func New(cfg Config, client *http.Client) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMin)), cfg.RequestsPerMin),
	}
}

// Enabled reports whether reports can be forwarded.
func (c *Client) Enabled() bool {
	return c.cfg.Token != "" && c.cfg.Owner != "" && c.cfg.Repo != ""
}

// Create files report as a new issue. reporter identifies the submitting
// user in the issue body and may be empty.
func (c *Client) Create(ctx context.Context, report Report, reporter string) (*Issue, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	payload, err := json.Marshal(createIssueRequest{
		Title:  strings.TrimSpace(report.Title),
		Body:   FormatBody(report, reporter),
		Labels: c.labels(report),
	})
	if err != nil {
		return nil, fmt.Errorf("encode issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues", strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.Owner, c.cfg.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("decode issue: %w", err)
	}
	logging.Ctx(ctx).Info().Int("issue", issue.Number).Str("repo", c.cfg.Owner+"/"+c.cfg.Repo).Msg("Bug report forwarded")
	return &issue, nil
}

func (c *Client) labels(report Report) []string {
	labels := append([]string(nil), c.cfg.Labels...)
	if report.Category != "" && report.Category != "bug" {
		labels = append(labels, report.Category)
	}
	return labels
}

// FormatBody renders the markdown issue body.
func FormatBody(report Report, reporter string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(report.Description))
	b.WriteString("\n\n---\n")

	row := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "- **%s:** %s\n", name, escapeMarkdown(value))
	}
	row("Category", report.Category)
	row("Page", report.Page)
	row("Game mode", report.GameMode)
	row("App version", report.AppVersion)
	row("User agent", report.UserAgent)
	row("Reporter", reporter)
	return b.String()
}

var markdownEscaper = strings.NewReplacer("\n", " ", "\r", " ", "`", "'", "|", "\\|")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}
