// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package overlay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const maxDocumentSize = 16 << 20

// Source loads the raw overlay document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
	String() string
}

// HTTPSource fetches the overlay from a URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates a source with a bounded client timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create overlay request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch overlay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch overlay: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}
	return body, nil
}

func (s *HTTPSource) String() string { return s.URL }

// FileSource reads the overlay from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read overlay file: %w", err)
	}
	return data, nil
}

func (s FileSource) String() string { return "file://" + s.Path }

// StaticSource serves a fixed document.
type StaticSource []byte

func (s StaticSource) Load(context.Context) ([]byte, error) { return s, nil }

func (s StaticSource) String() string { return "static" }
