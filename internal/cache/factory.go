package cache

import (
	"log/slog"
	"time"

	"github.com/ieeeucsc/codequest/internal/config"
)

// NewFromConfig builds the cache backend from application configuration.
// Redis is used when a URL is configured and reachable; otherwise the portal
// falls back to the in-memory cache and logs the downgrade.
func NewFromConfig(cfg *config.Config) Cache {
	ttl := time.Duration(cfg.CacheTTL) * time.Second

	if cfg.UseRedisCache() {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		opts.Prefix = cfg.CachePrefix
		opts.DefaultTTL = ttl

		rc, err := NewRedisCache(opts)
		if err == nil {
			slog.Info("using Redis cache", "prefix", opts.Prefix)
			return rc
		}
		slog.Warn("Redis unavailable, falling back to memory cache", "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      ttl,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
}
