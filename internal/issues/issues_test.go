// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package issues

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func testReport() Report {
	return Report{
		Title:       "Task list crashes",
		Description: "Opening the task list on PvE shows a blank page.",
		Category:    "data",
		Page:        "/tasks",
		GameMode:    "pve",
	}
}

func TestCreate(t *testing.T) {
	var got createIssueRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":42,"html_url":"https://github.com/acme/tracker/issues/42"}`))
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, Token: "ghp_secret", Owner: "acme", Repo: "tracker", Labels: []string{"user-report"}}, srv.Client())
	issue, err := c.Create(context.Background(), testReport(), "user-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if issue.Number != 42 || !strings.HasSuffix(issue.HTMLURL, "/42") {
		t.Errorf("issue = %+v", issue)
	}
	if auth != "Bearer ghp_secret" || path != "/repos/acme/tracker/issues" {
		t.Errorf("request auth=%q path=%q", auth, path)
	}
	if got.Title != "Task list crashes" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Labels) != 2 || got.Labels[1] != "data" {
		t.Errorf("labels = %v", got.Labels)
	}
	if !strings.Contains(got.Body, "- **Game mode:** pve") || !strings.Contains(got.Body, "- **Reporter:** user-1") {
		t.Errorf("body = %q", got.Body)
	}
}

func TestCreate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := New(Config{}, nil).Create(context.Background(), testReport(), ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("unconfigured error = %v, want ErrDisabled", err)
	}

	c := New(Config{APIURL: srv.URL, Token: "t", Owner: "o", Repo: "r", RequestsPerMin: 1}, srv.Client())
	_, err := c.Create(context.Background(), testReport(), "")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Errorf("error = %v, want StatusError 401", err)
	}
	if _, err := c.Create(context.Background(), testReport(), ""); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second call error = %v, want ErrRateLimited", err)
	}
}

func TestFormatBody_EscapesFields(t *testing.T) {
	body := FormatBody(Report{Description: "desc", Page: "/a|b\n- **Injected:** x"}, "")
	if strings.Contains(body, "\n- **Injected") {
		t.Errorf("newline injection survived: %q", body)
	}
	if strings.Contains(body, "Reporter") {
		t.Error("empty fields should be omitted")
	}
}
