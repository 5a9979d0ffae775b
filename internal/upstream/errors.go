// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package upstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCircuitOpen is returned when the breaker rejects a request.
	ErrCircuitOpen = errors.New("upstream circuit breaker is open")

	// ErrMissingData is returned for a 2xx body without a "data" member.
	ErrMissingData = errors.New("upstream response has no data")

	// ErrUnknownDataset is returned by Lookup for unregistered dataset names.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// GraphQLErrorEntry is one element of a GraphQL "errors" array.
type GraphQLErrorEntry struct {
	Message   string `json:"message"`
	Path      []any  `json:"path,omitempty"`
	Locations []struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"locations,omitempty"`
}

// GraphQLError reports a response whose "errors" array was not empty.
type GraphQLError struct {
	Errors []GraphQLErrorEntry
}

func (e *GraphQLError) Error() string {
	if len(e.Errors) == 0 {
		return "graphql error"
	}
	msgs := make([]string, 0, len(e.Errors))
	for i, ge := range e.Errors {
		if i == 3 {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(e.Errors)-3))
			break
		}
		msgs = append(msgs, ge.Message)
	}
	return "graphql errors: " + strings.Join(msgs, "; ")
}

// FetchError is returned once every attempt has failed. It wraps the error
// of the last attempt.
type FetchError struct {
	Query    string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream %s failed after %d attempt(s): %v", e.Query, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
