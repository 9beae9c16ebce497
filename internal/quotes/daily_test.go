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

func TestDateKey(t *testing.T) {
	ny, err := ResolveLocation("America/New_York")
	require.NoError(t, err)

	ts := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02", DateKey(ts, time.UTC))
	assert.Equal(t, "2024-01-01", DateKey(ts, ny))
}

func TestResolveLocation(t *testing.T) {
	loc, err := ResolveLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = ResolveLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = ResolveLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestDailyIndexDeterministic(t *testing.T) {
	day := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC)
	for n := 1; n < 50; n++ {
		i := dailyIndex(day, n)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, n)
		assert.Equal(t, i, dailyIndex(later, n))
	}
	assert.Equal(t, 0, dailyIndex(day, 0))
}

func TestDailyIndexVariesAcrossDays(t *testing.T) {
	seen := map[int]bool{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 60; d++ {
		seen[dailyIndex(start.AddDate(0, 0, d), 24)] = true
	}
	assert.Greater(t, len(seen), 8)
}

func TestSelectDailyAvoidsRecentQuotes(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	history := NewQuoteHistory(storage.NewMemory(), clock.Now)
	pool := LocalQuotes()

	day := clock.Now()
	first := selectDaily(ctx, history, pool, day, "2024-03-10")
	assert.Equal(t, first.ID, selectDaily(ctx, history, pool, day, "2024-03-10").ID)

	// Logging today's pick does not change today's answer.
	history.Record(ctx, first, "2024-03-10")
	assert.Equal(t, first.ID, selectDaily(ctx, history, pool, day, "2024-03-10").ID)

	// A quote shown in the last week is skipped.
	picked := map[string]bool{}
	for d := 0; d < 7; d++ {
		clock.Advance(24 * time.Hour)
		day := clock.Now()
		key := DateKey(day, time.UTC)
		q := selectDaily(ctx, history, pool, day, key)
		assert.False(t, picked[q.ID], "repeat of %s on %s", q.ID, key)
		picked[q.ID] = true
		history.Record(ctx, q, key)
	}
}

func TestSelectDailyFallsBackToFullPool(t *testing.T) {
	ctx := context.Background()
	history := NewQuoteHistory(storage.NewMemory(), nil)
	pool := []Quote{testQuote("a"), testQuote("b"), testQuote("c"), testQuote("d")}
	history.Record(ctx, pool[0], "2024-03-08")
	history.Record(ctx, pool[1], "2024-03-09")

	// Only two unseen candidates remain, so the full pool is used.
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	q := selectDaily(ctx, history, pool, day, "2024-03-10")
	assert.Equal(t, pool[dailyIndex(day, len(pool))].ID, q.ID)
}

func TestQuoteHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	clock := newFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	h := NewQuoteHistory(store, clock.Now)

	h.Record(ctx, testQuote("a"), "2024-01-01")
	h.Record(ctx, testQuote("a"), "2024-01-01")
	h.Record(ctx, testQuote("b"), "2024-01-01")
	assert.Len(t, h.Entries(ctx), 2)

	shown := h.ShownBetween(ctx, "2023-12-25", "2024-01-01")
	assert.Empty(t, shown)
	shown = h.ShownBetween(ctx, "2023-12-25", "2024-01-02")
	assert.True(t, shown["a"])
	assert.True(t, shown["b"])

	clock.Advance(31 * 24 * time.Hour)
	h.Record(ctx, testQuote("c"), "2024-02-01")
	entries := h.Entries(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].Quote.ID)

	reloaded := NewQuoteHistory(store, clock.Now)
	assert.Len(t, reloaded.Entries(ctx), 1)
}

func TestHistoryRetainsThirtyDays(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	h := NewQuoteHistory(storage.NewMemory(), clock.Now)
	for d := 0; d < 40; d++ {
		h.Record(ctx, testQuote(fmt.Sprintf("q-%d", d)), DateKey(clock.Now(), time.UTC))
		clock.Advance(24 * time.Hour)
	}
	assert.LessOrEqual(t, len(h.Entries(ctx)), HistoryRetentionDays+1)
}
