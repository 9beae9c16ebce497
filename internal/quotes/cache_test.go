package quotes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/dailyquote/internal/storage"
)

func testQuote(id string) Quote {
	return Quote{ID: id, Text: "Text of " + id, Author: "Author " + id, Source: SourceQuotable}
}

func TestAPICacheTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cm := NewCacheManager(storage.NewMemory(), CacheConfig{}, clock.Now)

	cm.Set(ctx, "search:life", []Quote{testQuote("a")}, time.Minute)

	var got []Quote
	require.True(t, cm.Get(ctx, "search:life", &got))
	assert.Equal(t, "a", got[0].ID)

	clock.Advance(2 * time.Minute)
	assert.False(t, cm.Get(ctx, "search:life", &got))
	assert.False(t, cm.Get(ctx, "search:missing", &got))
}

func TestAPICachePersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	NewCacheManager(store, CacheConfig{}, clock.Now).Set(ctx, "author:seneca", []Quote{testQuote("s")}, time.Hour)

	fresh := NewCacheManager(store, CacheConfig{}, clock.Now)
	var got []Quote
	require.True(t, fresh.Get(ctx, "author:seneca", &got))
	assert.Len(t, got, 1)
}

func TestAPICacheCleanupByAge(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cm := NewCacheManager(storage.NewMemory(), CacheConfig{MaxAgeHours: 24}, clock.Now)

	cm.Set(ctx, "old-1", 1, 48*time.Hour)
	cm.Set(ctx, "old-2", 2, 48*time.Hour)
	clock.Advance(20 * time.Hour)
	cm.Set(ctx, "new", 3, 48*time.Hour)
	clock.Advance(5 * time.Hour)

	assert.Equal(t, 2, cm.CleanupAPICache(ctx))
	var n int
	assert.True(t, cm.Get(ctx, "new", &n))
	assert.Equal(t, 3, n)
	assert.False(t, cm.Get(ctx, "old-1", &n))
	assert.Equal(t, 0, cm.CleanupAPICache(ctx))
}

func TestDailySlotDateMatching(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	cm := NewCacheManager(store, CacheConfig{}, nil)

	q := testQuote("daily")
	cm.SetDailyQuote(ctx, q, "2024-01-01")

	got, ok := cm.DailyQuote(ctx, "2024-01-01")
	require.True(t, ok)
	assert.Equal(t, q.ID, got.ID)

	_, ok = cm.DailyQuote(ctx, "2024-01-02")
	assert.False(t, ok)

	// The stale slot is cleared, not just skipped.
	_, ok = cm.DailyQuote(ctx, "2024-01-01")
	assert.False(t, ok)
	var date string
	found, err := store.Get(ctx, KeyDailyQuoteDate, &date)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClearDailyQuote(t *testing.T) {
	ctx := context.Background()
	cm := NewCacheManager(storage.NewMemory(), CacheConfig{}, nil)
	cm.SetDailyQuote(ctx, testQuote("x"), "2024-03-03")
	cm.ClearDailyQuote(ctx)
	_, ok := cm.DailyQuote(ctx, "2024-03-03")
	assert.False(t, ok)
}

func TestMigrateLegacyDailySlot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	legacy := testQuote("legacy")
	require.NoError(t, store.Set(ctx, KeyLegacyDailyQuote, legacy))
	require.NoError(t, store.Set(ctx, KeyLegacyDailyDate, "2024-05-05"))

	cm := NewCacheManager(store, CacheConfig{}, nil)
	assert.True(t, cm.MigrateLegacyDailySlot(ctx))

	got, ok := cm.DailyQuote(ctx, "2024-05-05")
	require.True(t, ok)
	assert.Equal(t, "legacy", got.ID)

	// Runs once per store.
	cm.ClearDailyQuote(ctx)
	assert.False(t, cm.MigrateLegacyDailySlot(ctx))
	_, ok = cm.DailyQuote(ctx, "2024-05-05")
	assert.False(t, ok)
}

// flakyStore fails reads of one key until healed.
type flakyStore struct {
	*storage.Memory
	failKey string
}

func (f *flakyStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	if key == f.failKey {
		return false, fmt.Errorf("read %s: i/o timeout", key)
	}
	return f.Memory.Get(ctx, key, dst)
}

func TestMigrateRetriesAfterReadFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: storage.NewMemory(), failKey: KeyLegacyDailyQuote}
	require.NoError(t, store.Set(ctx, KeyLegacyDailyQuote, testQuote("legacy")))
	require.NoError(t, store.Set(ctx, KeyLegacyDailyDate, "2024-05-05"))

	cm := NewCacheManager(store, CacheConfig{}, nil)
	assert.False(t, cm.MigrateLegacyDailySlot(ctx))
	found, err := store.Memory.Get(ctx, KeyDailyMigrated, new(bool))
	require.NoError(t, err)
	assert.False(t, found)

	store.failKey = ""
	retry := NewCacheManager(store, CacheConfig{}, nil)
	assert.True(t, retry.MigrateLegacyDailySlot(ctx))
	got, ok := retry.DailyQuote(ctx, "2024-05-05")
	require.True(t, ok)
	assert.Equal(t, "legacy", got.ID)
}

func TestMigrateMarksDoneWhenNothingToMigrate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	cm := NewCacheManager(store, CacheConfig{}, nil)
	assert.False(t, cm.MigrateLegacyDailySlot(ctx))

	var done bool
	found, err := store.Get(ctx, KeyDailyMigrated, &done)
	require.NoError(t, err)
	assert.True(t, found && done)
}

func TestMigrateKeepsUnifiedSlot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, KeyLegacyDailyQuote, testQuote("legacy")))
	require.NoError(t, store.Set(ctx, KeyLegacyDailyDate, "2024-05-05"))

	cm := NewCacheManager(store, CacheConfig{}, nil)
	cm.SetDailyQuote(ctx, testQuote("unified"), "2024-05-06")
	assert.False(t, cm.MigrateLegacyDailySlot(ctx))

	got, ok := cm.DailyQuote(ctx, "2024-05-06")
	require.True(t, ok)
	assert.Equal(t, "unified", got.ID)
}

func TestEnrichmentPoolBounded(t *testing.T) {
	ctx := context.Background()
	cm := NewCacheManager(storage.NewMemory(), CacheConfig{MaxCacheSize: 100}, nil)

	in := make([]Quote, 150)
	for i := range in {
		in[i] = testQuote(fmt.Sprintf("q-%03d", i))
	}
	cm.SetEnrichmentPool(ctx, in)

	pool := cm.EnrichmentPool(ctx)
	require.Len(t, pool, 100)
	assert.Equal(t, "q-000", pool[0].ID)
	assert.Equal(t, "q-099", pool[99].ID)
}

func TestEnrichmentPoolAddNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	cm := NewCacheManager(store, CacheConfig{MaxCacheSize: 3}, nil)

	cm.AddToEnrichmentPool(ctx, testQuote("a"))
	cm.AddToEnrichmentPool(ctx, testQuote("b"))
	cm.AddToEnrichmentPool(ctx, testQuote("c"))
	cm.AddToEnrichmentPool(ctx, testQuote("a"))
	cm.AddToEnrichmentPool(ctx, testQuote("d"))

	ids := func(qs []Quote) []string {
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = q.ID
		}
		return out
	}
	assert.Equal(t, []string{"d", "a", "c"}, ids(cm.EnrichmentPool(ctx)))

	// Same text and author under another id is a duplicate.
	dup := testQuote("a")
	dup.ID = "a-mirror"
	cm.AddToEnrichmentPool(ctx, dup)
	assert.Equal(t, []string{"a-mirror", "d", "c"}, ids(cm.EnrichmentPool(ctx)))

	reloaded := NewCacheManager(store, CacheConfig{MaxCacheSize: 3}, nil)
	assert.Equal(t, []string{"a-mirror", "d", "c"}, ids(reloaded.EnrichmentPool(ctx)))
}

func TestCacheDegradesOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	cm := NewCacheManager(failingStore{}, CacheConfig{}, nil)

	cm.SetDailyQuote(ctx, testQuote("x"), "2024-01-01")
	_, ok := cm.DailyQuote(ctx, "2024-01-01")
	assert.False(t, ok)

	cm.AddToEnrichmentPool(ctx, testQuote("x"))
	assert.Len(t, cm.EnrichmentPool(ctx), 1)
	assert.False(t, cm.MigrateLegacyDailySlot(ctx))
}
