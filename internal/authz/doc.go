// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package authz decides admin access using Casbin.
//
// The model and policy are embedded and may be overridden by files. Users
// listed in the configured admin ids are granted the admin role at startup.
// Every failure path denies: missing claims, an enforcer error and an
// explicit deny all produce 403, or a redirect to "/" for browser
// navigations.
package authz
