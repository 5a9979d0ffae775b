// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package tarkovdata serves tarkov.dev datasets through the edge cache with
// the correction overlay applied, and assembles the reference data used by
// progress repairs.
//
// A dataset request flows through three layers:
//
//	edgecache.Cache  ->  upstream.Fetcher  ->  overlay.Service.Apply
//
// The cached body is the overlay-patched payload, so cache hits cost a
// single backend read. Reference data for a game mode is decoded from the
// same cached datasets and memoized for the cache TTL.
package tarkovdata
