// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

/*
Package auth verifies bearer tokens and attaches the caller's identity to the
request context.

Tokens are HS256 JWTs issued by the auth provider. The subject claim is the
user id used to key every per-user table; the role claim is informational and
authorization decisions are made by the authz package.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	mw := auth.NewMiddleware(jwtManager)

	r.Group(func(r chi.Router) {
	    r.Use(mw.RequireAuth)
	    r.Get("/api/progress", h.GetProgress)
	})

	// In a handler:
	userID := auth.UserID(r.Context())

Missing or invalid tokens are answered with 401 and the standard API error
envelope. Token contents are never logged.
*/
package auth
