// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

/*
Package upstream is the retrying GraphQL client for the tarkov.dev API.

A Fetcher posts a query with its variables and returns the raw response body
once the body decodes and carries no GraphQL errors. Every failure is
retried until MaxRetries attempts have been made, waiting BackoffDelay
between attempts:

	attempt 1 failed -> wait 1s
	attempt 2 failed -> wait 2s
	attempt 3 failed -> wait 4s
	attempt 4 failed -> wait 5s (cap)

A body with a non-empty "errors" array is a failure even with HTTP 200,
unless the caller sets FetchOptions.AllowPartial and the body also carries
"data".

# Logging

Each failed attempt that will be retried logs one warning. The final failure
logs one error with the query name, attempt count and the variables passed
through logging.SanitizeVariables. Logs go through logging.Ctx, so request
IDs follow the call.

# Circuit Breaker

All attempts run through a sony/gobreaker/v2 breaker. When it is open the
fetch fails immediately with ErrCircuitOpen and consumes no retries.

# Datasets

queries.go holds the named queries served under /api/tarkov/{dataset}. Each
takes $lang and $gameMode variables.
*/
package upstream
