package config

import "time"

// DetailCacheConfig defines settings for the user-detail cache. When
// Enabled is false the handlers read straight through to the repository.
// TTL bounds staleness after profile edits; there is no explicit
// eviction hook in this slice. Prefix namespaces keys when the Redis
// backend is used.
type DetailCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadDetailCacheConfig reads environment variables to build a
// DetailCacheConfig. Defaults are used when variables are not set.
// Helper functions reused from lockout.go.
func LoadDetailCacheConfig() DetailCacheConfig {
	cfg := DetailCacheConfig{
		Enabled: envBool("DETAIL_CACHE_ENABLED", true),
		TTL:     envDur("DETAIL_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("DETAIL_CACHE_PREFIX", "userdetail"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return cfg
}
