// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

/*
Package config provides centralized configuration management for TarkovTracker.

Configuration is loaded with Koanf v2 from three layers, lowest precedence first:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (config.yaml, /etc/tarkovtracker/config.yaml or CONFIG_PATH)
 3. Environment variables, mapped explicitly in envTransformFunc

Only mapped environment variables are read; anything else in the process
environment is ignored.

# Sections

  - Server: listen address, timeouts, public app URL
  - Upstream: tarkov.dev GraphQL endpoint, retry and circuit breaker tuning
  - Cache: edge cache backend (memory, badger or redis) and TTLs
  - Overlay: correction document source and refresh cadence
  - Storage: badger directory for progress, preferences and teams
  - GitHub: issue reporting target and bot token
  - AuthProvider: backend auth provider used for OAuth approvals
  - Security: JWT verification, CORS, rate limits, admin users
  - Logging: level, format, caller

# Environment Variables (selection)

	HTTP_PORT, HTTP_HOST, APP_URL
	TARKOV_API_URL, TARKOV_MAX_RETRIES, TARKOV_RPS
	CACHE_BACKEND, CACHE_TTL, CACHE_PATH, CACHE_MAX_ENTRIES, CACHE_FORWARDED_HOSTS
	REDIS_ADDR, REDIS_PASSWORD
	OVERLAY_URL, OVERLAY_FILE, OVERLAY_TTL
	STORAGE_PATH, SYNC_DEBOUNCE
	GITHUB_TOKEN, GITHUB_OWNER, GITHUB_REPO
	AUTH_PROVIDER_URL, AUTH_PROVIDER_API_KEY
	JWT_SECRET, CORS_ORIGINS, ADMIN_USER_IDS
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Validate rejects malformed URLs, out-of-range numbers and unknown enum values
before any component is built.
*/
package config
