package ratelimit

import (
	"net/http"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Default limits for routes not covered by an EndpointConfig
const (
	DefaultLimit           = 600
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
	DefaultIdleTTL         = time.Hour
)

// Routes that call the language model or the scoring backend
const (
	RouteGenerate      = "/api/generate-roadmap"
	RouteFormGenerate  = "/roadmap"
	RouteFluency       = "/api/fluency"
	RouteFluencyPrefix = "/api/fluency/"
)

// NewConfig builds the limiter configuration: expensive routes get
// perMinute requests per minute with the given burst, everything else the
// lenient default.
func NewConfig(enabled bool, perMinute, burst int) *Config {
	if !enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    DefaultLimit,
		DefaultWindow:   DefaultWindow,
		CleanupInterval: DefaultCleanupInterval,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(perMinute, burst),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations.
func DefaultEndpointConfigs(perMinute, burst int) []EndpointConfig {
	return []EndpointConfig{
		// model calls
		{Path: RouteGenerate, Method: http.MethodPost, Limit: perMinute, Window: time.Minute, Burst: burst},
		{Path: RouteFormGenerate, Method: http.MethodPost, Limit: perMinute, Window: time.Minute, Burst: burst},

		// scoring backend calls, including /api/fluency/stream
		{Path: RouteFluency, Method: http.MethodPost, Limit: perMinute, Window: time.Minute, Burst: burst},
		{Path: RouteFluencyPrefix, Method: http.MethodPost, Limit: perMinute, Window: time.Minute, Burst: burst},

		// pages and static reads use the default limit; health and metrics are unlimited in the matcher
	}
}
