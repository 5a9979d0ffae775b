// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/logging"
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateUpstream,
		c.validateCache,
		c.validateOverlay,
		c.validateStorage,
		c.validateGitHub,
		c.validateAuthProvider,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.AppURL != "" {
		if err := validateHTTPURL(c.Server.AppURL, "APP_URL"); err != nil {
			return err
		}
	}
	switch c.Server.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, production or test, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.URL == "" {
		return fmt.Errorf("TARKOV_API_URL is required")
	}
	if _, err := url.ParseRequestURI(c.Upstream.URL); err != nil {
		return fmt.Errorf("TARKOV_API_URL is invalid: %w", err)
	}
	if c.Upstream.MaxRetries < 1 || c.Upstream.MaxRetries > 10 {
		return fmt.Errorf("TARKOV_MAX_RETRIES must be between 1 and 10, got %d", c.Upstream.MaxRetries)
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("TARKOV_RPS must not be negative")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("TARKOV_API_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory":
	case "badger":
		if c.Cache.Path == "" {
			return fmt.Errorf("CACHE_PATH is required when CACHE_BACKEND=badger")
		}
	case "redis":
		if _, _, err := net.SplitHostPort(c.Cache.RedisAddr); err != nil {
			return fmt.Errorf("REDIS_ADDR must be host:port: %w", err)
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory, badger or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < time.Second {
		return fmt.Errorf("CACHE_TTL must be at least 1s")
	}
	if c.Cache.Prefix == "" || strings.Contains(c.Cache.Prefix, " ") {
		return fmt.Errorf("CACHE_PREFIX must be a non-empty token")
	}
	if c.Cache.DefaultHost == "" {
		return fmt.Errorf("CACHE_DEFAULT_HOST is required")
	}
	if c.Cache.WriteQueueSize < 0 {
		return fmt.Errorf("CACHE_WRITE_QUEUE must not be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must not be negative")
	}
	return nil
}

func (c *Config) validateOverlay() error {
	if !c.Overlay.Enabled {
		return nil
	}
	if c.Overlay.URL == "" && c.Overlay.FilePath == "" {
		return fmt.Errorf("OVERLAY_URL or OVERLAY_FILE is required when overlays are enabled")
	}
	if c.Overlay.TTL <= 0 {
		return fmt.Errorf("OVERLAY_TTL must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required unless STORAGE_IN_MEMORY=true")
	}
	if c.Storage.DebounceWindow < 0 || c.Storage.DebounceWindow > 10*time.Second {
		return fmt.Errorf("SYNC_DEBOUNCE must be between 0 and 10s")
	}
	return nil
}

func (c *Config) validateGitHub() error {
	if !c.GitHub.Enabled {
		return nil
	}
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required when GITHUB_ISSUES_ENABLED=true")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return fmt.Errorf("GITHUB_OWNER and GITHUB_REPO are required when GITHUB_ISSUES_ENABLED=true")
	}
	return validateHTTPURL(c.GitHub.APIURL, "GITHUB_API_URL")
}

func (c *Config) validateAuthProvider() error {
	if c.AuthProvider.URL == "" {
		return nil
	}
	if err := validateHTTPURL(c.AuthProvider.URL, "AUTH_PROVIDER_URL"); err != nil {
		return err
	}
	if !strings.HasPrefix(c.AuthProvider.ApprovePath, "/") {
		return fmt.Errorf("AUTH_PROVIDER_APPROVE_PATH must start with /")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.IsProduction() && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL requires an http(s) base URL without path or query.
func validateHTTPURL(rawURL, fieldName string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsed.Path)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}

// ShouldWarnAboutCORS reports a wildcard CORS origin in production.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
