package resolver

import "time"

// Fallback strategy names, applied in Config.Fallbacks order when a fresh
// upstream result cannot be obtained.
const (
	FallbackStale = "stale" // re-serve the last cached payload
	FallbackStub  = "stub"  // serve and cache a placeholder payload
)

type Config struct {
	// DefaultQuery is used when the caller supplies no query.
	DefaultQuery string

	// FreshnessWindow is how long a cached payload is served without
	// revalidation. Also the rate-lock duration when the upstream gives
	// no usable retry hint. Default: 5m.
	FreshnessWindow time.Duration

	// MinRateLock floors every rate lock so imprecise upstream hints
	// cannot cause immediate re-hammering. Default: 60s.
	MinRateLock time.Duration

	// SafetyBuffer is subtracted from "now" for the window end; the
	// upstream rejects windows ending too close to the present.
	// Default: 30s.
	SafetyBuffer time.Duration

	// Window is the queried span. Default: 24h.
	Window time.Duration

	// Aliases maps an upper-cased ticker to extra search terms included
	// when a bare cashtag query is rewritten.
	Aliases map[string][]string

	// Fallbacks is the ordered degradation policy. Default: stale, stub.
	Fallbacks []string
}

// WithDefaults returns a copy of Config with sane defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	if cfg.DefaultQuery == "" {
		cfg.DefaultQuery = "$ZEN"
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 5 * time.Minute
	}
	if cfg.MinRateLock <= 0 {
		cfg.MinRateLock = 60 * time.Second
	}
	if cfg.SafetyBuffer <= 0 {
		cfg.SafetyBuffer = 30 * time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.Fallbacks == nil {
		cfg.Fallbacks = []string{FallbackStale, FallbackStub}
	}

	return cfg
}

func (c *Config) hasFallback(name string) bool {
	for _, f := range c.Fallbacks {
		if f == name {
			return true
		}
	}
	return false
}
