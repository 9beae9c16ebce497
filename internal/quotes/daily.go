package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const dateKeyLayout = "2006-01-02"

// ResolveLocation maps a timezone mode (local, utc or an IANA name) to a location.
func ResolveLocation(mode string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(mode))
	if err != nil {
		return nil, fmt.Errorf("resolve timezone %q: %w", mode, err)
	}
	return loc, nil
}

// DateKey formats t as YYYY-MM-DD in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateKeyLayout)
}

// dailyIndex folds the calendar fields of day into one hash and reduces it
// modulo n. The same date always yields the same index for the same n.
func dailyIndex(day time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	y, m, d := day.Date()
	dayIndex := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400

	h := uint64(y)*10000 + uint64(m)*100 + uint64(d)
	h = h*31 + uint64(day.YearDay())
	h = h*31 + uint64(dayIndex)
	h ^= h >> 17
	h *= 0x9e3779b97f4a7c15
	h ^= h >> 29
	return int(h % uint64(n))
}

const (
	recentWindowDays    = 7
	relaxedWindowDays   = 14
	smallPoolSize       = 3
	minFilteredPoolSize = 3
)

// selectDaily picks the deterministic quote for day from pool, avoiding quotes
// shown in the recent window before dateKey. Pools of at most three entries
// use the wider relaxed window; if filtering leaves fewer than three
// candidates the full pool is used.
func selectDaily(ctx context.Context, history *QuoteHistory, pool []Quote, day time.Time, dateKey string) Quote {
	window := recentWindowDays
	if len(pool) <= smallPoolSize {
		window = relaxedWindowDays
	}
	from := day.AddDate(0, 0, -window).Format(dateKeyLayout)
	shown := history.ShownBetween(ctx, from, dateKey)

	candidates := make([]Quote, 0, len(pool))
	for _, q := range pool {
		if !shown[q.ID] {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) < minFilteredPoolSize {
		candidates = pool
	}
	return candidates[dailyIndex(day, len(candidates))]
}
