package quotes

import (
	"sync"
	"time"
)

// Serving paths recorded by Analytics.
const (
	PathCache    = "cache"
	PathAPI      = "api"
	PathPrefetch = "prefetch"
	PathLocal    = "local"
)

// AnalyticsSnapshot is the exported view returned by Service.GetAnalytics.
type AnalyticsSnapshot struct {
	TotalRequests   int64            `json:"total_requests"`
	BySource        map[Source]int64 `json:"by_source"`
	ByPath          map[string]int64 `json:"by_path"`
	FallbackCount   int64            `json:"fallback_count"`
	DailyRequests   int64            `json:"daily_requests"`
	DailyBucketDate string           `json:"daily_bucket_date"`
	LastServedAt    time.Time        `json:"last_served_at"`
	LastSource      Source           `json:"last_source,omitempty"`
}

// Analytics counts served quotes. The daily bucket resets when the date key changes.
type Analytics struct {
	mu   sync.Mutex
	snap AnalyticsSnapshot
	now  func() time.Time
}

func NewAnalytics(now func() time.Time) *Analytics {
	if now == nil {
		now = time.Now
	}
	return &Analytics{
		now: now,
		snap: AnalyticsSnapshot{
			BySource: make(map[Source]int64),
			ByPath:   make(map[string]int64),
		},
	}
}

func (a *Analytics) recordRequest(dateKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.TotalRequests++
	if a.snap.DailyBucketDate != dateKey {
		a.snap.DailyBucketDate = dateKey
		a.snap.DailyRequests = 0
	}
	a.snap.DailyRequests++
}

func (a *Analytics) recordServed(path string, source Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.ByPath[path]++
	a.snap.BySource[source]++
	if path == PathPrefetch || path == PathLocal {
		a.snap.FallbackCount++
	}
	a.snap.LastServedAt = a.now()
	a.snap.LastSource = source
}

// Snapshot returns a deep copy.
func (a *Analytics) Snapshot() AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.snap
	out.BySource = make(map[Source]int64, len(a.snap.BySource))
	for k, v := range a.snap.BySource {
		out.BySource[k] = v
	}
	out.ByPath = make(map[string]int64, len(a.snap.ByPath))
	for k, v := range a.snap.ByPath {
		out.ByPath[k] = v
	}
	return out
}
