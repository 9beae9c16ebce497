package quotes

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterState is a snapshot of one source's token bucket.
type RateLimiterState struct {
	Tokens          float64   `json:"tokens"`
	Capacity        float64   `json:"capacity"`
	RefillPerMinute float64   `json:"refill_per_minute"`
	LastRefill      time.Time `json:"last_refill"`
}

// RateLimiter gates outbound calls with one token bucket per source.
// Sources that were never configured are always allowed.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[Source]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter    *rate.Limiter
	config     RateLimitConfig
	lastRefill time.Time
}

// NewRateLimiter creates a bucket for every source, using overrides where present.
func NewRateLimiter(sources []Source, overrides map[Source]RateLimitConfig, def RateLimitConfig, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	if def.Capacity <= 0 {
		def.Capacity = 3
	}
	if def.RefillPerMinute <= 0 {
		def.RefillPerMinute = 6
	}

	rl := &RateLimiter{
		buckets: make(map[Source]*bucket, len(sources)),
		now:     now,
	}
	for _, src := range sources {
		cfg := def
		if o, ok := overrides[src]; ok {
			if o.Capacity > 0 {
				cfg.Capacity = o.Capacity
			}
			if o.RefillPerMinute > 0 {
				cfg.RefillPerMinute = o.RefillPerMinute
			}
		}
		rl.buckets[src] = newBucket(cfg, now())
	}
	return rl
}

func newBucket(cfg RateLimitConfig, at time.Time) *bucket {
	burst := int(math.Floor(cfg.Capacity))
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(cfg.RefillPerMinute/60), burst)
	// Start full. AllowN with n=0 pins the limiter's clock to at.
	lim.AllowN(at, 0)
	return &bucket{limiter: lim, config: cfg, lastRefill: at}
}

// Allow consumes one token for source if one is available.
func (rl *RateLimiter) Allow(source Source) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[source]
	if !ok {
		return true
	}
	now := rl.now()
	b.lastRefill = now
	return b.limiter.AllowN(now, 1)
}

// CanAllow reports whether Allow would succeed, without consuming a token.
func (rl *RateLimiter) CanAllow(source Source) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[source]
	if !ok {
		return true
	}
	return b.limiter.TokensAt(rl.now()) >= 1
}

// State returns the bucket snapshot for source.
func (rl *RateLimiter) State(source Source) (RateLimiterState, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[source]
	if !ok {
		return RateLimiterState{}, false
	}
	return rl.snapshot(b), true
}

// Snapshot returns every bucket.
func (rl *RateLimiter) Snapshot() map[Source]RateLimiterState {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	out := make(map[Source]RateLimiterState, len(rl.buckets))
	for src, b := range rl.buckets {
		out[src] = rl.snapshot(b)
	}
	return out
}

func (rl *RateLimiter) snapshot(b *bucket) RateLimiterState {
	tokens := math.Max(0, math.Min(b.limiter.TokensAt(rl.now()), b.config.Capacity))
	return RateLimiterState{
		Tokens:          tokens,
		Capacity:        b.config.Capacity,
		RefillPerMinute: b.config.RefillPerMinute,
		LastRefill:      b.lastRefill,
	}
}
