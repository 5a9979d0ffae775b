// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Command server runs the TarkovTracker backend.
//
// It serves three things over one HTTP listener:
//
//   - The tarkov.dev data edge: cached GraphQL datasets with overlay
//     corrections applied (/api/tarkov/*).
//   - Progress sync: per-user progress documents with optimistic
//     concurrency, consistency repairs and team views (/api/progress,
//     /api/team, /api/team/ws).
//   - Forwarding endpoints for GitHub issue reports and OAuth approvals.
//
// # Startup Order
//
//  1. Configuration: defaults, optional config.yaml, then environment (koanf v2)
//  2. Logging: zerolog, with a slog bridge for the supervisor
//  3. Storage: badger database for progress, preferences and teams
//  4. Edge cache: memory, badger or redis backend plus write-behind queue
//  5. Upstream: GraphQL fetcher with rate limiting and a circuit breaker
//  6. Domain services: overlay, tarkov data, progress, teams, websocket hub
//  7. HTTP: chi router with JWT auth and casbin admin checks
//  8. Supervisor tree: every background worker and the HTTP server
//
// # Example
//
//	export STORAGE_PATH=/var/lib/tarkovtracker
//	export JWT_SECRET=$(openssl rand -base64 48)
//	export CORS_ORIGINS=https://tarkovtracker.org
//	./server
//
// SIGINT or SIGTERM cancels the tree: the HTTP server drains, pending
// debounced progress writes and queued cache writes are flushed, then the
// databases are closed.
package main
