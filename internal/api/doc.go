// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package api exposes the HTTP surface of the service: the cached tarkov.dev
// dataset proxy, progress and preference storage, team sync with its
// websocket stream, bug report and OAuth approval forwarding, admin cache
// controls and the operational probes.
//
// Routing uses chi. Every JSON response other than raw dataset payloads uses
// the envelope written by ResponseWriter:
//
//	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
//	{"success": false, "error": {"code": "...", "message": "...", "request_id": "..."}}
package api
