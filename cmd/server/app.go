// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tarkovtracker/internal/api"
	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/authprovider"
	"github.com/tomtom215/tarkovtracker/internal/authz"
	"github.com/tomtom215/tarkovtracker/internal/config"
	"github.com/tomtom215/tarkovtracker/internal/debounce"
	"github.com/tomtom215/tarkovtracker/internal/edgecache"
	"github.com/tomtom215/tarkovtracker/internal/issues"
	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/overlay"
	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/store"
	"github.com/tomtom215/tarkovtracker/internal/supervisor"
	"github.com/tomtom215/tarkovtracker/internal/tarkovdata"
	"github.com/tomtom215/tarkovtracker/internal/team"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
	ws "github.com/tomtom215/tarkovtracker/internal/websocket"
)

// application holds every long-lived component built from the config.
type application struct {
	cfg *config.Config

	db        *store.DB
	cacheDB   *store.DB
	edgeStore edgecache.Store
	writer    *edgecache.WriteBehind
	overlay   *overlay.Service
	debouncer *debounce.Debouncer[string]
	hub       *ws.Hub
	enforcer  *authz.Enforcer
	server    *http.Server

	// closers run in reverse order on Close.
	closers []func() error
}

// newApplication opens storage and wires the services. On error everything
// opened so far is closed again.
func newApplication(ctx context.Context, cfg *config.Config) (_ *application, err error) {
	app := &application{cfg: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.db, err = store.Open(store.Config{
		Path:       cfg.Storage.Path,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: cfg.IsProduction(),
		GCInterval: cfg.Storage.GCInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, app.db.Close)

	if err := app.openEdgeStore(ctx); err != nil {
		return nil, err
	}
	app.writer = edgecache.NewWriteBehind(cfg.Cache.WriteQueueSize)
	cache := edgecache.New(app.edgeStore, edgecache.Config{
		AppURL:         cfg.Server.AppURL,
		DefaultHost:    cfg.Cache.DefaultHost,
		Prefix:         cfg.Cache.Prefix,
		ForwardedHosts: cfg.Cache.ForwardedHosts,
	}, edgecache.WithDeferrer(app.writer))

	fetcher := upstream.New(upstream.Config{
		URL:               cfg.Upstream.URL,
		Timeout:           cfg.Upstream.Timeout,
		MaxRetries:        cfg.Upstream.MaxRetries,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
		Breaker: upstream.BreakerSettings{
			Name:        "tarkov-api",
			MaxFailures: cfg.Upstream.BreakerMaxFailures,
			Timeout:     cfg.Upstream.BreakerTimeout,
			Interval:    cfg.Upstream.BreakerInterval,
		},
	})

	if cfg.Overlay.Enabled {
		app.overlay = overlay.NewService(overlaySource(cfg.Overlay), overlay.Config{
			TTL:             cfg.Overlay.TTL,
			RefreshInterval: cfg.Overlay.RefreshInterval,
		})
	}
	data := tarkovdata.New(fetcher, cache, app.overlay, cfg.Cache.TTL)

	teams := team.NewService(app.db)
	app.hub = ws.NewHub(teams)
	teams.SetListener(app.hub)

	app.debouncer = debounce.New[string](cfg.Storage.DebounceWindow)
	progressSvc := progress.NewService(app.db.Table(store.TableUserProgress, "user_id"), data,
		app.debouncer, progress.WithNotifier(app.hub))

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("create jwt manager: %w", err)
	}
	app.enforcer, err = authz.NewEnforcer(authz.EnforcerConfig{
		ModelPath:    cfg.Security.CasbinModelPath,
		PolicyPath:   cfg.Security.CasbinPolicyPath,
		AdminUserIDs: cfg.Security.AdminUserIDs,
		CacheTTL:     cfg.Security.AuthzCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create authorization enforcer: %w", err)
	}
	app.closers = append(app.closers, func() error {
		app.enforcer.Close()
		return nil
	})

	deps := api.Dependencies{
		Config:      cfg,
		Data:        data,
		Upstream:    fetcher,
		Cache:       cache,
		Store:       app.db,
		Progress:    progressSvc,
		Preferences: app.db.Table(store.TableUserPreferences, "user_id"),
		Teams:       teams,
		Hub:         app.hub,
	}
	if cfg.GitHub.Enabled {
		deps.Issues = issues.New(issues.Config{
			APIURL:         cfg.GitHub.APIURL,
			Token:          cfg.GitHub.Token,
			Owner:          cfg.GitHub.Owner,
			Repo:           cfg.GitHub.Repo,
			Labels:         cfg.GitHub.Labels,
			RequestsPerMin: cfg.GitHub.RequestsPerMin,
		}, nil)
	}
	if cfg.AuthProvider.URL != "" {
		deps.AuthProvider = authprovider.New(authprovider.Config{
			URL:         cfg.AuthProvider.URL,
			APIKey:      cfg.AuthProvider.APIKey,
			ApprovePath: cfg.AuthProvider.ApprovePath,
			Timeout:     cfg.AuthProvider.Timeout,
		}, nil)
	}

	router := api.NewRouter(
		api.NewHandler(deps),
		auth.NewMiddleware(jwtManager),
		authz.NewMiddleware(app.enforcer),
		api.NewChiMiddlewareFromSecurity(cfg.Security.CORSOrigins, cfg.Security.RateLimitReqs,
			cfg.Security.RateLimitWindow, cfg.Security.RateLimitDisabled),
	)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	logging.Info().
		Bool("github_issues", deps.Issues != nil).
		Bool("auth_provider", deps.AuthProvider != nil).
		Int("admins", len(cfg.Security.AdminUserIDs)).
		Msg("Application initialized")
	return app, nil
}

// openEdgeStore selects the edge cache backend.
func (a *application) openEdgeStore(ctx context.Context) error {
	switch a.cfg.Cache.Backend {
	case "badger":
		cacheDB, err := store.Open(store.Config{Path: a.cfg.Cache.Path})
		if err != nil {
			return fmt.Errorf("open edge cache: %w", err)
		}
		a.cacheDB = cacheDB
		a.closers = append(a.closers, cacheDB.Close)
		a.edgeStore = edgecache.NewBadgerStore(cacheDB.Badger())
	case "redis":
		rs, err := edgecache.NewRedisStore(ctx, edgecache.RedisOptions{
			Addr:     a.cfg.Cache.RedisAddr,
			Password: a.cfg.Cache.RedisPassword,
			DB:       a.cfg.Cache.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect edge cache: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		a.edgeStore = rs
	default:
		a.edgeStore = edgecache.NewMemoryStore(a.cfg.Cache.MaxEntries, a.cfg.Cache.CleanupInterval)
	}
	logging.Info().Str("backend", a.cfg.Cache.Backend).Msg("Edge cache backend ready")
	return nil
}

func overlaySource(cfg config.OverlayConfig) overlay.Source {
	if cfg.FilePath != "" {
		return overlay.FileSource{Path: cfg.FilePath}
	}
	return overlay.NewHTTPSource(cfg.URL, 15*time.Second)
}

// Services lists the background workers in start order, grouped by layer.
func (a *application) services() (storage, sync []suture.Service) {
	storage = append(storage, a.db)
	if a.cacheDB != nil {
		storage = append(storage, a.cacheDB)
	}
	storage = append(storage, a.writer)
	if svc, ok := a.edgeStore.(suture.Service); ok {
		storage = append(storage, svc)
	}
	storage = append(storage, a.debouncer)

	if a.overlay != nil {
		sync = append(sync, a.overlay)
	}
	sync = append(sync, a.hub)
	return storage, sync
}

// Register adds every worker and the HTTP server to tree.
func (a *application) Register(tree *supervisor.SupervisorTree) {
	storage, sync := a.services()
	for _, svc := range storage {
		tree.AddStorageService(svc)
	}
	for _, svc := range sync {
		tree.AddSyncService(svc)
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}

// Handler returns the root HTTP handler.
func (a *application) Handler() http.Handler {
	return a.server.Handler
}

// Close releases storage in reverse open order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
