// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/config"
	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/supervisor"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			Timeout:         5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
			Environment:     "development",
		},
		Upstream: config.UpstreamConfig{
			URL:     "http://127.0.0.1:1/graphql",
			Timeout: time.Second,
		},
		Cache: config.CacheConfig{
			Backend:         "memory",
			TTL:             time.Hour,
			Prefix:          "tarkov-data",
			DefaultHost:     "tracker.test",
			CleanupInterval: time.Minute,
		},
		Storage: config.StorageConfig{
			InMemory:       true,
			DebounceWindow: 50 * time.Millisecond,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-that-is-long-enough-to-use",
			CORSOrigins:       []string{"https://tracker.test"},
			RateLimitDisabled: true,
		},
	}
}

func TestNewApplication_Health(t *testing.T) {
	app, err := newApplication(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	defer app.Close()

	for _, path := range []string{"/api/health/live", "/api/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200: %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated progress = %d, want 401", rec.Code)
	}
}

func TestApplication_Services(t *testing.T) {
	cfg := testConfig()
	app, err := newApplication(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	defer app.Close()

	storage, syncLayer := app.services()
	got := make([]string, 0, len(storage))
	for _, s := range storage {
		got = append(got, fmt.Sprint(s))
	}
	want := []string{"store-gc", "edgecache-write-behind", "edgecache-memory-cleanup", "debounce-flusher"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("storage services = %v, want %v", got, want)
	}
	if len(syncLayer) != 1 || fmt.Sprint(syncLayer[0]) != "websocket-hub" {
		t.Errorf("sync services without overlay = %v", syncLayer)
	}

	overlayFile := filepath.Join(t.TempDir(), "overlay.json")
	if err := os.WriteFile(overlayFile, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg2 := testConfig()
	cfg2.Overlay = config.OverlayConfig{Enabled: true, FilePath: overlayFile, TTL: time.Minute}
	app2, err := newApplication(context.Background(), cfg2)
	if err != nil {
		t.Fatalf("newApplication with overlay: %v", err)
	}
	defer app2.Close()
	_, syncLayer = app2.services()
	if len(syncLayer) != 2 || fmt.Sprint(syncLayer[0]) != "overlay-refresher" {
		t.Errorf("sync services with overlay = %v", syncLayer)
	}
}

func TestApplication_BadgerEdgeCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "badger"
	cfg.Cache.Path = t.TempDir()

	app, err := newApplication(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	defer app.Close()

	if app.cacheDB == nil {
		t.Fatal("badger backend should open a cache database")
	}
	storage, _ := app.services()
	if len(storage) != 4 {
		t.Errorf("storage services = %d, want 4 (two GC loops, writer, debouncer)", len(storage))
	}
}

func TestNewApplication_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Security.JWTSecret = ""
	if _, err := newApplication(context.Background(), cfg); err == nil {
		t.Error("expected error without JWT secret")
	}

	cfg = testConfig()
	cfg.Cache.Backend = "badger"
	cfg.Cache.Path = ""
	if _, err := newApplication(context.Background(), cfg); err == nil {
		t.Error("expected error for badger cache without a path")
	}
}

func TestApplication_RunsUnderSupervisor(t *testing.T) {
	app, err := newApplication(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	app.Register(tree)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor tree did not stop")
	}
	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) != 0 {
		t.Errorf("unstopped services: %v", unstopped)
	}
}
