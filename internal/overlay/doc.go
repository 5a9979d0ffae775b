// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package overlay applies maintainer-curated corrections on top of upstream
// tarkov.dev payloads.
//
// An overlay document holds patches keyed by entity id, grouped by the data
// collection they apply to ("tasks", "hideoutStations", ...), additions under
// "<collection>Add", and per game mode overrides under "modes". The
// effective layer for a mode is the shared layer deep-merged with that
// mode's overrides.
package overlay
