// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"CODEQUEST_DB_PATH" envDefault:"./data/codequest.db"`
	SessionSecret string `env:"CODEQUEST_SESSION_SECRET,required"`
	ServerHost    string `env:"CODEQUEST_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CODEQUEST_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CODEQUEST_ENV" envDefault:"development"`
	LogLevel      string `env:"CODEQUEST_LOG_LEVEL" envDefault:"info"`

	// Admin credentials. AdminPasswordHash takes precedence over AdminPassword
	// when both are set; the plain variant exists for local hackathon setups.
	AdminUsername     string `env:"CODEQUEST_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword     string `env:"CODEQUEST_ADMIN_PASSWORD" envDefault:"codequest2025admin"`
	AdminPasswordHash string `env:"CODEQUEST_ADMIN_PASSWORD_HASH"`

	// Cache configuration
	RedisURL     string `env:"CODEQUEST_REDIS_URL"`                          // Optional Redis URL for distributed caching
	CachePrefix  string `env:"CODEQUEST_CACHE_PREFIX" envDefault:"cq:"`      // Redis key prefix
	CacheTTL     int    `env:"CODEQUEST_CACHE_TTL" envDefault:"3600"`        // Default cache TTL in seconds
	CacheMaxSize int    `env:"CODEQUEST_CACHE_MAX_SIZE" envDefault:"10000"`  // Max memory cache entries

	// GeoIP configuration
	GeoIPDBPath string `env:"CODEQUEST_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// Audit retention, in days. Zero disables pruning.
	LogRetentionDays int `env:"CODEQUEST_LOG_RETENTION_DAYS" envDefault:"90"`

	// Seeding configuration
	DoSeed bool `env:"CODEQUEST_DO_SEED" envDefault:"true"` // Seed the default challenge on startup
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// The admin token signer needs at least 32 bytes of key material.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("CODEQUEST_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("CODEQUEST_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("CODEQUEST_ADMIN_USERNAME must not be empty")
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("one of CODEQUEST_ADMIN_PASSWORD or CODEQUEST_ADMIN_PASSWORD_HASH must be set")
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("CODEQUEST_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
