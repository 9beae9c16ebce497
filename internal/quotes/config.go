package quotes

import "time"

// Config holds engine tuning. Zero values are replaced by defaults in WithDefaults.
type Config struct {
	Timezone              string                     `yaml:"timezone"` // local | utc | IANA name
	RequestTimeoutSeconds int                        `yaml:"request_timeout_seconds"`
	DefaultRateLimit      RateLimitConfig            `yaml:"default_rate_limit"`
	RateLimits            map[string]RateLimitConfig `yaml:"rate_limits"`
	CircuitBreaker        CircuitBreakerConfig       `yaml:"circuit_breaker"`
	Health                HealthConfig               `yaml:"health"`
	Cache                 CacheConfig                `yaml:"cache"`
	Prefetch              PrefetchConfig             `yaml:"prefetch"`
	Weights               map[string]float64         `yaml:"weights"`
}

// RateLimitConfig sizes one token bucket.
type RateLimitConfig struct {
	Capacity        float64 `yaml:"capacity"`
	RefillPerMinute float64 `yaml:"refill_per_minute"`
}

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	FailureThreshold    int `yaml:"failure_threshold"`
	ResetTimeoutSeconds int `yaml:"reset_timeout_seconds"`
}

type HealthConfig struct {
	CheckIntervalMinutes int     `yaml:"check_interval_minutes"`
	ProbeTimeoutSeconds  int     `yaml:"probe_timeout_seconds"`
	DegradedThreshold    float64 `yaml:"degraded_threshold"`
	DownThreshold        float64 `yaml:"down_threshold"`
}

type CacheConfig struct {
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	MaxAgeHours            int `yaml:"max_age_hours"`
	APITTLMinutes          int `yaml:"api_ttl_minutes"`
	MaxCacheSize           int `yaml:"max_cache_size"`
}

type PrefetchConfig struct {
	Target         int `yaml:"target"`
	MaxQueueSize   int `yaml:"max_queue_size"`
	DelayMs        int `yaml:"delay_ms"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Timezone == "" {
		c.Timezone = "local"
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 10
	}
	if c.DefaultRateLimit.Capacity <= 0 {
		c.DefaultRateLimit.Capacity = 3
	}
	if c.DefaultRateLimit.RefillPerMinute <= 0 {
		c.DefaultRateLimit.RefillPerMinute = 6
	}

	if c.CircuitBreaker.FailureThreshold <= 0 {
		c.CircuitBreaker.FailureThreshold = 5
	}
	if c.CircuitBreaker.ResetTimeoutSeconds <= 0 {
		c.CircuitBreaker.ResetTimeoutSeconds = 60
	}

	if c.Health.CheckIntervalMinutes <= 0 {
		c.Health.CheckIntervalMinutes = 5
	}
	if c.Health.ProbeTimeoutSeconds <= 0 {
		c.Health.ProbeTimeoutSeconds = 5
	}
	if c.Health.DegradedThreshold <= 0 {
		c.Health.DegradedThreshold = 0.7
	}
	if c.Health.DownThreshold <= 0 {
		c.Health.DownThreshold = 0.3
	}

	if c.Cache.CleanupIntervalMinutes <= 0 {
		c.Cache.CleanupIntervalMinutes = 10
	}
	if c.Cache.MaxAgeHours <= 0 {
		c.Cache.MaxAgeHours = 24
	}
	if c.Cache.APITTLMinutes <= 0 {
		c.Cache.APITTLMinutes = 60
	}
	if c.Cache.MaxCacheSize <= 0 {
		c.Cache.MaxCacheSize = 100
	}

	if c.Prefetch.Target <= 0 {
		c.Prefetch.Target = 3
	}
	if c.Prefetch.MaxQueueSize <= 0 {
		c.Prefetch.MaxQueueSize = 2 * c.Prefetch.Target
	}
	if c.Prefetch.DelayMs <= 0 {
		c.Prefetch.DelayMs = 2000
	}
	if c.Prefetch.TimeoutSeconds <= 0 {
		c.Prefetch.TimeoutSeconds = 5
	}
	return c
}

func (c Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c CircuitBreakerConfig) resetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSeconds) * time.Second
}

func (c HealthConfig) interval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

func (c HealthConfig) probeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c CacheConfig) cleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c CacheConfig) maxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

func (c CacheConfig) apiTTL() time.Duration {
	return time.Duration(c.APITTLMinutes) * time.Minute
}

func (c PrefetchConfig) delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

func (c PrefetchConfig) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// rateLimitsBySource converts the yaml keyed map, ignoring unknown names.
func (c Config) rateLimitsBySource() map[Source]RateLimitConfig {
	out := make(map[Source]RateLimitConfig, len(c.RateLimits))
	for name, rl := range c.RateLimits {
		src, err := ParseSource(name)
		if err != nil {
			continue
		}
		out[src] = rl
	}
	return out
}

func (c Config) weightsBySource() map[Source]float64 {
	if len(c.Weights) == 0 {
		return nil
	}
	out := make(map[Source]float64, len(c.Weights))
	for name, w := range c.Weights {
		src, err := ParseSource(name)
		if err != nil {
			continue
		}
		out[src] = w
	}
	return out
}
