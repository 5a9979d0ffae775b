// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package logging provides the zerolog-based structured logger shared by every
// TarkovTracker component.
//
// A single global logger is configured once at startup through Init and used
// through the level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("dataset", "tasks-core").Msg("Dataset refreshed")
//
// Request-scoped logging goes through Ctx, which attaches the request and
// correlation IDs placed in the context by the HTTP middleware:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Upstream retry")
//
// # Redaction
//
// Anything that may carry user input or credentials must pass through the
// Sanitize helpers before it reaches a log event. SanitizeVariables applies a
// key deny-list to GraphQL variables and nested maps, so fetch failure logs
// carry enough context to debug without leaking tokens.
//
// # slog Bridge
//
// NewSlogLogger wraps the global logger in a slog.Handler so that libraries
// speaking log/slog (sutureslog in particular) end up in the same stream.
package logging
