package config

import (
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache on floor-plan reads.  Only
// GET is cached by default; writes invalidate through short TTLs rather
// than explicit eviction.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
	Methods      map[string]bool
}

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "fp"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		Methods:      map[string]bool{"GET": true},
	}
	if raw := envStr("CACHE_METHODS", ""); raw != "" {
		cfg.Methods = map[string]bool{}
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(strings.ToUpper(m)); m != "" {
				cfg.Methods[m] = true
			}
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Second
	}
	return cfg
}
