package quotes

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
)

// HealthStatus represents the health state of a quote source
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
	HealthUnknown  HealthStatus = "unknown"
)

func (s HealthStatus) rank() int {
	switch s {
	case HealthHealthy:
		return 3
	case HealthDegraded:
		return 2
	case HealthDown:
		return 1
	default:
		return 0
	}
}

// HealthRecord is the derived health view of one source.
type HealthRecord struct {
	Status            HealthStatus `json:"status"`
	SuccessRate       float64      `json:"success_rate"`
	AvgResponseTimeMs float64      `json:"avg_response_time_ms"`
	LastCheck         time.Time    `json:"last_check"`
	ErrorCount        int          `json:"error_count"`
}

// PerformanceCounter holds the raw call totals a HealthRecord is derived from.
type PerformanceCounter struct {
	TotalCalls        int64   `json:"total_calls"`
	SuccessCalls      int64   `json:"success_calls"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// HealthMonitor keeps rolling success-rate and latency figures per source.
type HealthMonitor struct {
	mu       sync.RWMutex
	records  map[Source]*HealthRecord
	counters map[Source]*PerformanceCounter
	degraded float64
	down     float64
	now      func() time.Time
}

// NewHealthMonitor starts every source healthy with no calls recorded.
func NewHealthMonitor(sources []Source, cfg HealthConfig, now func() time.Time) *HealthMonitor {
	if now == nil {
		now = time.Now
	}
	if cfg.DegradedThreshold <= 0 {
		cfg.DegradedThreshold = 0.7
	}
	if cfg.DownThreshold <= 0 {
		cfg.DownThreshold = 0.3
	}
	hm := &HealthMonitor{
		records:  make(map[Source]*HealthRecord, len(sources)),
		counters: make(map[Source]*PerformanceCounter, len(sources)),
		degraded: cfg.DegradedThreshold,
		down:     cfg.DownThreshold,
		now:      now,
	}
	for _, src := range sources {
		hm.records[src] = &HealthRecord{Status: HealthHealthy, SuccessRate: 1}
		hm.counters[src] = &PerformanceCounter{}
	}
	return hm
}

// UpdatePerformanceMetrics folds one call outcome into the source's counters
// and recomputes its status.
func (hm *HealthMonitor) UpdatePerformanceMetrics(source Source, success bool, responseTime time.Duration) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	c, ok := hm.counters[source]
	if !ok {
		return
	}
	rec := hm.records[source]

	c.TotalCalls++
	if success {
		c.SuccessCalls++
	} else {
		rec.ErrorCount++
	}
	ms := float64(responseTime) / float64(time.Millisecond)
	c.AvgResponseTimeMs += (ms - c.AvgResponseTimeMs) / float64(c.TotalCalls)

	rec.SuccessRate = float64(c.SuccessCalls) / float64(c.TotalCalls)
	rec.AvgResponseTimeMs = c.AvgResponseTimeMs
	rec.LastCheck = hm.now()

	prev := rec.Status
	rec.Status = hm.statusFor(rec.SuccessRate)
	if prev != rec.Status {
		observ.IncCounter("provider_status_change_total", map[string]string{
			"source": string(source),
			"from":   string(prev),
			"to":     string(rec.Status),
		})
	}
}

func (hm *HealthMonitor) statusFor(successRate float64) HealthStatus {
	switch {
	case successRate >= hm.degraded:
		return HealthHealthy
	case successRate >= hm.down:
		return HealthDegraded
	default:
		return HealthDown
	}
}

// Status returns HealthUnknown for sources that are not tracked.
func (hm *HealthMonitor) Status(source Source) HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	if rec, ok := hm.records[source]; ok {
		return rec.Status
	}
	return HealthUnknown
}

// IsProviderHealthy is true unless the source is down.
func (hm *HealthMonitor) IsProviderHealthy(source Source) bool {
	return hm.Status(source) != HealthDown
}

// PrioritizeProvidersByHealth orders sources by status rank, then by success
// rate, keeping the input order among equals.
func (hm *HealthMonitor) PrioritizeProvidersByHealth(sources []Source) []Source {
	hm.mu.RLock()
	type scored struct {
		src  Source
		rank int
		rate float64
	}
	items := make([]scored, len(sources))
	for i, src := range sources {
		items[i] = scored{src: src}
		if rec, ok := hm.records[src]; ok {
			items[i].rank = rec.Status.rank()
			items[i].rate = rec.SuccessRate
		}
	}
	hm.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rank != items[j].rank {
			return items[i].rank > items[j].rank
		}
		return items[i].rate > items[j].rate
	})

	out := make([]Source, len(items))
	for i, it := range items {
		out[i] = it.src
	}
	return out
}

// Snapshot returns copies of every health record.
func (hm *HealthMonitor) Snapshot() map[Source]HealthRecord {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	out := make(map[Source]HealthRecord, len(hm.records))
	for src, rec := range hm.records {
		out[src] = *rec
	}
	return out
}

// Counters returns copies of every performance counter.
func (hm *HealthMonitor) Counters() map[Source]PerformanceCounter {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	out := make(map[Source]PerformanceCounter, len(hm.counters))
	for src, c := range hm.counters {
		out[src] = *c
	}
	return out
}

// Probe health-checks every provider in parallel, each bounded by timeout,
// and feeds the outcomes through UpdatePerformanceMetrics.
func (hm *HealthMonitor) Probe(ctx context.Context, providers map[Source]Provider, timeout time.Duration) {
	var g errgroup.Group
	for src, p := range providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res, err := p.HealthCheck(pctx)
			elapsed := time.Since(start)
			if err == nil && res.ResponseTime > 0 {
				elapsed = res.ResponseTime
			}
			ok := err == nil && res.Status != HealthDown
			hm.UpdatePerformanceMetrics(src, ok, elapsed)
			return nil
		})
	}
	_ = g.Wait()

	observ.Log("health_probe_completed", map[string]any{
		"providers": len(providers),
	})
}
