// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package middleware provides HTTP middleware shared by the API router:
// request IDs wired into the logging context, Prometheus request metrics
// keyed by route pattern, and gzip compression for the large game data
// payloads.
package middleware
