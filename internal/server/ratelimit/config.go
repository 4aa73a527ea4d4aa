package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route. A Path ending in "/"
// matches every path below it.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity; defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // buckets unused this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig is used when no configuration is given.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig reads RATE_LIMIT_* settings from env, falling back to DefaultConfig.
// Malformed values keep their defaults.
func LoadConfig(env map[string]string) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool(env, "RATE_LIMIT_ENABLED", cfg.Enabled)
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}
	cfg.DefaultLimit = envInt(env, "RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = envDuration(env, "RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = envDuration(env, "RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.IdleTTL = envDuration(env, "RATE_LIMIT_IDLE_TTL", cfg.IdleTTL)
	cfg.Whitelist = parseIPList(env["RATE_LIMIT_WHITELIST"])
	cfg.Blacklist = parseIPList(env["RATE_LIMIT_BLACKLIST"])
	return cfg
}

// DefaultEndpointConfigs limits the edge handlers. Reset requests can be sent
// anonymously and notify every admin, so they get the tightest bucket.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/functions/v1/request-password-reset", Method: http.MethodPost, Limit: 5, Window: time.Hour, Burst: 2},
		{Path: "/functions/v1/admin-reset-password", Method: http.MethodPost, Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/functions/v1/create-employee-auth", Method: http.MethodPost, Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/health", Method: http.MethodGet, Limit: 0},
	}
}

func envInt(env map[string]string, key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(env[key])); err == nil {
		return v
	}
	return def
}

func envBool(env map[string]string, key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(env[key])); err == nil {
		return v
	}
	return def
}

func envDuration(env map[string]string, key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(env[key])); err == nil {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
