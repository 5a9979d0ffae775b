// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

/*
Package metrics provides the Prometheus collectors exported on /metrics.

All collectors are registered with the default registry through promauto at
package initialization, so any package can record without wiring:

	metrics.RecordCacheStatus("tarkov-data", "HIT")
	metrics.RecordUpstreamAttempt("tasks-core", "retry")

# Metric Families

  - api_*: request totals, latency, in-flight requests and rate limit hits
  - edge_cache_*: HIT/MISS/BYPASS outcomes, write errors, write-behind queue depth
  - upstream_*: GraphQL attempts by outcome and latency per dataset
  - circuit_breaker_*: breaker state, requests and transitions
  - overlay_*: overlay document loads and last successful load time
  - progress_*: merges, repairs by kind, saves and pending debounced writes
  - store_*: badger table operations
  - ws_*: team websocket connections and messages
*/
package metrics
