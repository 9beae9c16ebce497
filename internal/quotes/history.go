package quotes

import (
	"context"
	"sync"
	"time"
)

// HistoryRetentionDays bounds how far back QuoteHistory keeps entries.
const HistoryRetentionDays = 30

// HistoryEntry records one quote shown on one date.
type HistoryEntry struct {
	Quote     Quote     `json:"quote"`
	DateKey   string    `json:"date_key"`
	Timestamp time.Time `json:"timestamp"`
}

// QuoteHistory is an append-only log pruned to a rolling window.
type QuoteHistory struct {
	mu      sync.Mutex
	store   Store
	now     func() time.Time
	entries []HistoryEntry
	loaded  bool
}

func NewQuoteHistory(store Store, now func() time.Time) *QuoteHistory {
	if now == nil {
		now = time.Now
	}
	return &QuoteHistory{store: store, now: now}
}

func (h *QuoteHistory) loadLocked(ctx context.Context) {
	if h.loaded {
		return
	}
	h.loaded = true
	var stored []HistoryEntry
	if loadKey(ctx, h.store, KeyQuoteHistory, &stored) {
		h.entries = stored
	}
}

// Record appends q for dateKey unless the same quote is already logged for
// that date, then prunes and persists.
func (h *QuoteHistory) Record(ctx context.Context, q Quote, dateKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)

	for _, e := range h.entries {
		if e.DateKey == dateKey && e.Quote.ID == q.ID {
			return
		}
	}
	h.entries = append(h.entries, HistoryEntry{Quote: q, DateKey: dateKey, Timestamp: h.now()})
	h.pruneLocked()
	saveKey(ctx, h.store, KeyQuoteHistory, h.entries)
}

func (h *QuoteHistory) pruneLocked() {
	cutoff := h.now().AddDate(0, 0, -HistoryRetentionDays)
	kept := h.entries[:0]
	for _, e := range h.entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

// ShownBetween returns the ids of quotes logged with from <= dateKey < to.
// Date keys compare lexically because they are YYYY-MM-DD.
func (h *QuoteHistory) ShownBetween(ctx context.Context, from, to string) map[string]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)

	out := make(map[string]bool)
	for _, e := range h.entries {
		if e.DateKey >= from && e.DateKey < to {
			out[e.Quote.ID] = true
		}
	}
	return out
}

// Entries returns a copy of the log, oldest first.
func (h *QuoteHistory) Entries(ctx context.Context) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)
	return append([]HistoryEntry(nil), h.entries...)
}
