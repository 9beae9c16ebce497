package quotes

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
)

// CacheEntry is one API-response cache row.
type CacheEntry struct {
	Data        json.RawMessage `json:"data"`
	TimestampMs int64           `json:"timestamp_ms"`
	TTLMs       int64           `json:"ttl_ms"`
}

// Expired reports whether now is past the entry's TTL.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.UnixMilli()-e.TimestampMs > e.TTLMs
}

// CacheManager owns the API-response cache, the daily-quote slot and the
// enrichment pool. All three persist through the Store; the API cache and
// the pool are mirrored in memory after first load.
type CacheManager struct {
	mu    sync.Mutex
	store Store
	cfg   CacheConfig
	now   func() time.Time

	api       map[string]CacheEntry
	apiLoaded bool

	pool       []Quote
	poolLoaded bool
}

func NewCacheManager(store Store, cfg CacheConfig, now func() time.Time) *CacheManager {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = 100
	}
	if cfg.MaxAgeHours <= 0 {
		cfg.MaxAgeHours = 24
	}
	return &CacheManager{
		store: store,
		cfg:   cfg,
		now:   now,
		api:   make(map[string]CacheEntry),
	}
}

func (cm *CacheManager) loadAPILocked(ctx context.Context) {
	if cm.apiLoaded {
		return
	}
	cm.apiLoaded = true
	var stored map[string]CacheEntry
	if loadKey(ctx, cm.store, KeyAPICache, &stored) {
		for k, e := range stored {
			if _, ok := cm.api[k]; !ok {
				cm.api[k] = e
			}
		}
	}
}

// Get decodes a live entry for key into dst. Expired entries are dropped.
func (cm *CacheManager) Get(ctx context.Context, key string, dst any) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.loadAPILocked(ctx)

	e, ok := cm.api[key]
	if !ok {
		observ.IncCounter("api_cache_miss_total", nil)
		return false
	}
	if e.Expired(cm.now()) {
		delete(cm.api, key)
		saveKey(ctx, cm.store, KeyAPICache, cm.api)
		observ.IncCounter("api_cache_miss_total", nil)
		return false
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		delete(cm.api, key)
		observ.IncCounter("api_cache_miss_total", nil)
		return false
	}
	observ.IncCounter("api_cache_hit_total", nil)
	return true
}

// Set stores value under key for ttl and persists the whole cache.
func (cm *CacheManager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		observ.Log("api_cache_encode_error", map[string]any{"key": key, "error": err.Error()})
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.loadAPILocked(ctx)

	cm.api[key] = CacheEntry{
		Data:        data,
		TimestampMs: cm.now().UnixMilli(),
		TTLMs:       ttl.Milliseconds(),
	}
	saveKey(ctx, cm.store, KeyAPICache, cm.api)
}

// CleanupAPICache removes entries older than the configured max age and
// returns how many were evicted.
func (cm *CacheManager) CleanupAPICache(ctx context.Context) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.loadAPILocked(ctx)

	cutoff := cm.now().Add(-cm.cfg.maxAge()).UnixMilli()
	evicted := 0
	for k, e := range cm.api {
		if e.TimestampMs < cutoff {
			delete(cm.api, k)
			evicted++
		}
	}
	if evicted > 0 {
		saveKey(ctx, cm.store, KeyAPICache, cm.api)
		observ.IncCounterBy("api_cache_evictions_total", nil, float64(evicted))
	}
	observ.Log("api_cache_cleanup", map[string]any{
		"evicted":   evicted,
		"remaining": len(cm.api),
	})
	return evicted
}

// DailyQuote returns the slot only when it was written for dateKey. A slot
// stamped with any other date is cleared and reported as a miss.
func (cm *CacheManager) DailyQuote(ctx context.Context, dateKey string) (Quote, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var storedDate string
	if !loadKey(ctx, cm.store, KeyDailyQuoteDate, &storedDate) {
		return Quote{}, false
	}
	if storedDate != dateKey {
		cm.clearDailyLocked(ctx, storedDate)
		return Quote{}, false
	}
	var q Quote
	if !loadKey(ctx, cm.store, KeyDailyQuote, &q) || ValidateQuote(&q) != nil {
		return Quote{}, false
	}
	return q, true
}

// SetDailyQuote replaces the slot, clearing any stale one first.
func (cm *CacheManager) SetDailyQuote(ctx context.Context, q Quote, dateKey string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var storedDate string
	if loadKey(ctx, cm.store, KeyDailyQuoteDate, &storedDate) && storedDate != dateKey {
		cm.clearDailyLocked(ctx, storedDate)
	}
	saveKey(ctx, cm.store, KeyDailyQuote, q)
	saveKey(ctx, cm.store, KeyDailyQuoteDate, dateKey)
}

// ClearDailyQuote empties the slot unconditionally.
func (cm *CacheManager) ClearDailyQuote(ctx context.Context) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clearDailyLocked(ctx, "")
}

func (cm *CacheManager) clearDailyLocked(ctx context.Context, staleDate string) {
	deleteKey(ctx, cm.store, KeyDailyQuote)
	deleteKey(ctx, cm.store, KeyDailyQuoteDate)
	if staleDate != "" {
		observ.Log("daily_slot_stale_cleared", map[string]any{"date_key": staleDate})
	}
}

// MigrateLegacyDailySlot copies the old single-slot keys into the unified
// slot when the unified slot is empty. It runs at most once per store; a
// storage read failure leaves it pending for the next start.
func (cm *CacheManager) MigrateLegacyDailySlot(ctx context.Context) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var done bool
	found, ok := readKey(ctx, cm.store, KeyDailyMigrated, &done)
	if !ok || (found && done) {
		return false
	}

	var unifiedDate string
	found, ok = readKey(ctx, cm.store, KeyDailyQuoteDate, &unifiedDate)
	if !ok {
		return false
	}
	if found && unifiedDate != "" {
		saveKey(ctx, cm.store, KeyDailyMigrated, true)
		return false
	}

	var legacy Quote
	var legacyDate string
	hasQuote, okQuote := readKey(ctx, cm.store, KeyLegacyDailyQuote, &legacy)
	hasDate, okDate := readKey(ctx, cm.store, KeyLegacyDailyDate, &legacyDate)
	if !okQuote || !okDate {
		return false
	}
	saveKey(ctx, cm.store, KeyDailyMigrated, true)
	if !hasQuote || !hasDate || ValidateQuote(&legacy) != nil || legacyDate == "" {
		return false
	}
	saveKey(ctx, cm.store, KeyDailyQuote, legacy)
	saveKey(ctx, cm.store, KeyDailyQuoteDate, legacyDate)
	observ.Log("legacy_daily_slot_migrated", map[string]any{
		"date_key": legacyDate,
		"quote_id": legacy.ID,
	})
	return true
}

func (cm *CacheManager) loadPoolLocked(ctx context.Context) {
	if cm.poolLoaded {
		return
	}
	cm.poolLoaded = true
	var stored []Quote
	if loadKey(ctx, cm.store, KeyEnrichmentPool, &stored) {
		cm.pool = stored
	}
}

// EnrichmentPool returns a copy of the pool, newest first.
func (cm *CacheManager) EnrichmentPool(ctx context.Context) []Quote {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.loadPoolLocked(ctx)
	return append([]Quote(nil), cm.pool...)
}

// SetEnrichmentPool replaces the pool, keeping the head of quotes up to
// MaxCacheSize, and always persists.
func (cm *CacheManager) SetEnrichmentPool(ctx context.Context, quotes []Quote) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.poolLoaded = true
	cm.setPoolLocked(ctx, quotes)
}

func (cm *CacheManager) setPoolLocked(ctx context.Context, quotes []Quote) {
	if len(quotes) > cm.cfg.MaxCacheSize {
		quotes = quotes[:cm.cfg.MaxCacheSize]
	}
	cm.pool = append([]Quote(nil), quotes...)
	saveKey(ctx, cm.store, KeyEnrichmentPool, cm.pool)
}

// AddToEnrichmentPool puts new quotes at the head, drops duplicates by id or
// signature, and trims so the oldest fall off the tail.
func (cm *CacheManager) AddToEnrichmentPool(ctx context.Context, quotes ...Quote) {
	if len(quotes) == 0 {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.loadPoolLocked(ctx)

	merged := make([]Quote, 0, len(quotes)+len(cm.pool))
	merged = append(merged, quotes...)
	merged = append(merged, cm.pool...)
	cm.setPoolLocked(ctx, dedupeQuotes(merged))
}

// ClearTransient drops the in-memory mirrors. Persisted data is untouched
// and reloaded on next access.
func (cm *CacheManager) ClearTransient() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.api = make(map[string]CacheEntry)
	cm.apiLoaded = false
	cm.pool = nil
	cm.poolLoaded = false
}
