// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package config

import (
	"time"
)

// Config holds all application configuration.
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Upstream     UpstreamConfig     `koanf:"upstream"`
	Cache        CacheConfig        `koanf:"cache"`
	Overlay      OverlayConfig      `koanf:"overlay"`
	Storage      StorageConfig      `koanf:"storage"`
	GitHub       GitHubConfig       `koanf:"github"`
	AuthProvider AuthProviderConfig `koanf:"auth_provider"`
	Security     SecurityConfig     `koanf:"security"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`

	// AppURL is the public URL of the deployment. Its host namespaces edge
	// cache keys unless it is a loopback address.
	AppURL string `koanf:"app_url"`
}

// UpstreamConfig configures the tarkov.dev GraphQL client.
type UpstreamConfig struct {
	URL               string        `koanf:"url"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`

	// Circuit breaker
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
}

// CacheConfig configures the edge cache in front of the upstream API.
type CacheConfig struct {
	// Backend is memory, badger or redis.
	Backend string        `koanf:"backend"`
	TTL     time.Duration `koanf:"ttl"`
	Prefix  string        `koanf:"prefix"`

	// DefaultHost is used in cache keys when no request host is known.
	DefaultHost string `koanf:"default_host"`

	// ForwardedHosts are the X-Forwarded-Host values trusted to pick a
	// cache namespace.
	ForwardedHosts []string `koanf:"forwarded_hosts"`

	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	WriteQueueSize  int           `koanf:"write_queue_size"`

	// MaxEntries bounds the memory backend.
	MaxEntries int `koanf:"max_entries"`

	// badger backend
	Path string `koanf:"path"`

	// redis backend
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// OverlayConfig configures the correction overlay source.
type OverlayConfig struct {
	Enabled         bool          `koanf:"enabled"`
	URL             string        `koanf:"url"`
	FilePath        string        `koanf:"file_path"`
	TTL             time.Duration `koanf:"ttl"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// StorageConfig configures the badger-backed user tables.
type StorageConfig struct {
	Path           string        `koanf:"path"`
	InMemory       bool          `koanf:"in_memory"`
	GCInterval     time.Duration `koanf:"gc_interval"`
	DebounceWindow time.Duration `koanf:"debounce_window"`
}

// GitHubConfig configures bug report forwarding.
type GitHubConfig struct {
	Enabled        bool     `koanf:"enabled"`
	APIURL         string   `koanf:"api_url"`
	Token          string   `koanf:"token"`
	Owner          string   `koanf:"owner"`
	Repo           string   `koanf:"repo"`
	Labels         []string `koanf:"labels"`
	RequestsPerMin int      `koanf:"requests_per_min"`
}

// AuthProviderConfig configures the backend auth provider used to approve
// OAuth authorizations.
type AuthProviderConfig struct {
	URL         string        `koanf:"url"`
	APIKey      string        `koanf:"api_key"`
	ApprovePath string        `koanf:"approve_path"`
	Timeout     time.Duration `koanf:"timeout"`
}

// SecurityConfig holds token verification and request limiting settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	JWTAudience       string        `koanf:"jwt_audience"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// AdminUserIDs are granted the admin role in the authorization policy.
	AdminUserIDs []string `koanf:"admin_user_ids"`

	// Casbin overrides; empty paths use the embedded model and policy.
	CasbinModelPath  string        `koanf:"casbin_model_path"`
	CasbinPolicyPath string        `koanf:"casbin_policy_path"`
	AuthzCacheTTL    time.Duration `koanf:"authz_cache_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
