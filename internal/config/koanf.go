// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tarkovtracker/config.yaml",
	"/etc/tarkovtracker/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every optional setting filled in.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8787,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
			AppURL:          "",
		},
		Upstream: UpstreamConfig{
			URL:                "https://api.tarkov.dev/graphql",
			Timeout:            20 * time.Second,
			MaxRetries:         3,
			RequestsPerSecond:  10,
			Burst:              5,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			BreakerInterval:    time.Minute,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             12 * time.Hour,
			Prefix:          "tarkov-data",
			DefaultHost:     "tarkovtracker.org",
			CleanupInterval: 5 * time.Minute,
			WriteQueueSize:  256,
			MaxEntries:      1000,
			Path:            "/data/cache",
			RedisAddr:       "localhost:6379",
		},
		Overlay: OverlayConfig{
			Enabled:         true,
			URL:             "https://raw.githubusercontent.com/tarkovtracker-org/tarkov-data-overlay/main/dist/overlay.json",
			TTL:             time.Hour,
			RefreshInterval: 15 * time.Minute,
		},
		Storage: StorageConfig{
			Path:           "/data/tracker",
			GCInterval:     10 * time.Minute,
			DebounceWindow: 250 * time.Millisecond,
		},
		GitHub: GitHubConfig{
			Enabled:        false,
			APIURL:         "https://api.github.com",
			Labels:         []string{"bug", "user-report"},
			RequestsPerMin: 6,
		},
		AuthProvider: AuthProviderConfig{
			ApprovePath: "/auth/v1/oauth/authorizations/approve",
			Timeout:     10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			AuthzCacheTTL:   5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration from defaults, the optional config file
// and the environment (ENV > file > defaults), then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.admin_user_ids",
	"cache.forwarded_hosts",
	"github.labels",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",
	"app_url":               "server.app_url",

	// Upstream
	"tarkov_api_url":              "upstream.url",
	"tarkov_api_timeout":          "upstream.timeout",
	"tarkov_max_retries":          "upstream.max_retries",
	"tarkov_rps":                  "upstream.requests_per_second",
	"tarkov_burst":                "upstream.burst",
	"tarkov_breaker_max_failures": "upstream.breaker_max_failures",
	"tarkov_breaker_timeout":      "upstream.breaker_timeout",

	// Cache
	"cache_backend":          "cache.backend",
	"cache_ttl":              "cache.ttl",
	"cache_prefix":           "cache.prefix",
	"cache_default_host":     "cache.default_host",
	"cache_cleanup_interval": "cache.cleanup_interval",
	"cache_write_queue":      "cache.write_queue_size",
	"cache_max_entries":      "cache.max_entries",
	"cache_forwarded_hosts":  "cache.forwarded_hosts",
	"cache_path":             "cache.path",
	"redis_addr":             "cache.redis_addr",
	"redis_password":         "cache.redis_password",
	"redis_db":               "cache.redis_db",

	// Overlay
	"overlay_enabled":          "overlay.enabled",
	"overlay_url":              "overlay.url",
	"overlay_file":             "overlay.file_path",
	"overlay_ttl":              "overlay.ttl",
	"overlay_refresh_interval": "overlay.refresh_interval",

	// Storage
	"storage_path":        "storage.path",
	"storage_in_memory":   "storage.in_memory",
	"storage_gc_interval": "storage.gc_interval",
	"sync_debounce":       "storage.debounce_window",

	// GitHub
	"github_issues_enabled": "github.enabled",
	"github_api_url":        "github.api_url",
	"github_token":          "github.token",
	"github_owner":          "github.owner",
	"github_repo":           "github.repo",
	"github_labels":         "github.labels",
	"github_rate_per_min":   "github.requests_per_min",

	// Auth provider
	"auth_provider_url":          "auth_provider.url",
	"auth_provider_api_key":      "auth_provider.api_key",
	"auth_provider_approve_path": "auth_provider.approve_path",
	"auth_provider_timeout":      "auth_provider.timeout",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"jwt_audience":        "security.jwt_audience",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"admin_user_ids":      "security.admin_user_ids",
	"casbin_model_path":   "security.casbin_model_path",
	"casbin_policy_path":  "security.casbin_policy_path",
	"authz_cache_ttl":     "security.authz_cache_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
//
//	TARKOV_MAX_RETRIES -> upstream.max_retries
//	REDIS_ADDR         -> cache.redis_addr
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
