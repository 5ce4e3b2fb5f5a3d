package config

import (
	"os"
	"time"
)

// CacheConfig defines settings for the user response cache. When Enabled is
// false or no Redis client is configured, caching is disabled. TTL is the
// lifetime of cache entries, Prefix namespaces the keys (and is what a purge
// deletes) and MaxBodyBytes caps the size of a cached body.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables, using defaults when unset.
func LoadCacheConfig() CacheConfig {
	e := &env{get: os.Getenv}
	return CacheConfig{
		Enabled:      e.flag("CACHE_ENABLED", true),
		TTL:          e.dur("CACHE_TTL", 30*time.Second),
		Prefix:       e.str("CACHE_PREFIX", "cache:users"),
		MaxBodyBytes: e.num("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
