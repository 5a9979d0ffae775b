// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package progress models per-user game progress and reconciles snapshots
// coming from several devices.
//
// A UserState carries one UserProgressData per game mode. MergeUserState
// combines two states record by record using timestamps, and the repair
// passes (RepairGameModeFailedTasks, EnforceHideoutPrereqs,
// RepairEditionHideout) restore invariants the client cannot always keep,
// reporting how many records they changed. Repairs never fail.
//
// Timestamps are Unix milliseconds; zero means the record carries none.
package progress
