package quotes

import (
	"context"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
)

// Store is the persisted key/value capability the engine writes through.
// Values are JSON-encoded by the implementation. Get reports false for
// missing keys.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Storage keys.
const (
	KeyDailyQuote       = "daily_quote.unified"
	KeyDailyQuoteDate   = "daily_quote.unified_date"
	KeyDailyMigrated    = "daily_quote.migrated"
	KeyLegacyDailyQuote = "quote_of_the_day"
	KeyLegacyDailyDate  = "quote_of_the_day_date"
	KeyAPICache         = "api_response_cache"
	KeyEnrichmentPool   = "enrichment_pool"
	KeySourceWeights    = "source_weights"
	KeyQuoteHistory     = "quote_history"
	KeySavedQuotes      = "saved_quotes"
	KeyTimezoneSetting  = "settings.timezone"
)

// loadKey reads key into dst. Storage failures are logged and reported as a miss.
func loadKey(ctx context.Context, store Store, key string, dst any) bool {
	if store == nil {
		return false
	}
	ok, err := store.Get(ctx, key, dst)
	if err != nil {
		logStorageError(NewStorageError("get", key, err))
		return false
	}
	return ok
}

// readKey is loadKey that also reports whether the store failed, so callers
// can tell a missing key from an unreadable one.
func readKey(ctx context.Context, store Store, key string, dst any) (found, ok bool) {
	if store == nil {
		return false, true
	}
	found, err := store.Get(ctx, key, dst)
	if err != nil {
		logStorageError(NewStorageError("get", key, err))
		return false, false
	}
	return found, true
}

// saveKey writes value under key. Failures are logged and otherwise ignored.
func saveKey(ctx context.Context, store Store, key string, value any) {
	if store == nil {
		return
	}
	if err := store.Set(ctx, key, value); err != nil {
		logStorageError(NewStorageError("set", key, err))
	}
}

func deleteKey(ctx context.Context, store Store, key string) {
	if store == nil {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		logStorageError(NewStorageError("delete", key, err))
	}
}

func logStorageError(err *QuoteError) {
	observ.IncCounter("storage_errors_total", map[string]string{"op": err.Op})
	observ.Log("storage_error", map[string]any{
		"op":    err.Op,
		"key":   err.Message,
		"error": err.Error(),
	})
}
