// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package edgecache caches upstream JSON payloads in front of the tarkov.dev
// API.
//
// Entries are addressed by a synthetic URL built from the request's
// forwarded host, a configurable prefix and the caller's key, so that
// deployments behind different hostnames keep separate entries. Concurrent
// misses for the same URL share one upstream fetch.
//
// Three Store backends are provided:
//
//   - MemoryStore: a TTL map for single-replica deployments
//   - BadgerStore: persistent entries surviving restarts
//   - RedisStore: entries shared between replicas
//
// Writes after a miss are handed to a Deferrer. WriteBehind is the standard
// Deferrer: a bounded queue drained by a supervised worker.
package edgecache
