// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package store persists user rows in BadgerDB.
//
// Each table keeps JSON rows under versioned keys ("v2_<table>:<id>").
// Rows written before the versioned layout ("<table>:<id>") are still
// readable: a legacy row found on read is rewritten under the versioned key
// and the legacy key is removed in the same transaction.
//
// Upserts support optimistic concurrency: every row has an ETag derived from
// its stored bytes, and a non-empty ifMatch must equal the current ETag.
package store
