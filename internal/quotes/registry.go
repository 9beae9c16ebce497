package quotes

import (
	"sort"
	"sync"
	"time"
)

// DayEntry names the primary source for one weekday.
type DayEntry struct {
	Primary     Source `json:"primary"`
	Description string `json:"description"`
}

// DaySchedule is indexed by time.Weekday.
type DaySchedule [7]DayEntry

// DefaultDaySchedule rotates the primary source through the week.
func DefaultDaySchedule() DaySchedule {
	return DaySchedule{
		time.Sunday:    {Primary: SourceStoic, Description: "Stoic Sunday: ancient wisdom to reset the week"},
		time.Monday:    {Primary: SourceZenQuotes, Description: "Mindful Monday: calm focus for a fresh start"},
		time.Tuesday:   {Primary: SourceQuotable, Description: "Thoughtful Tuesday: classic voices"},
		time.Wednesday: {Primary: SourceFavQs, Description: "Wisdom Wednesday: community favourites"},
		time.Thursday:  {Primary: SourceProgramming, Description: "Tech Thursday: words from builders"},
		time.Friday:    {Primary: SourceDummyJSON, Description: "Feel-good Friday: light and varied"},
		time.Saturday:  {Primary: SourceQuoteSlate, Description: "Slow Saturday: a curated slate"},
	}
}

// DefaultFallbackChain is the static priority order, local pool first.
func DefaultFallbackChain() []Source {
	return []Source{
		SourceLocal,
		SourceQuotable,
		SourceZenQuotes,
		SourceFavQs,
		SourceDummyJSON,
		SourceQuoteSlate,
		SourceTypeFit,
		SourceStoic,
		SourceProgramming,
	}
}

// Registry holds the provider adapters, the weekday schedule, the fallback
// chain and the weighted selection table.
type Registry struct {
	mu        sync.RWMutex
	providers map[Source]Provider
	schedule  DaySchedule
	chain     []Source
	weights   WeightTable
}

func NewRegistry(providers map[Source]Provider, weights WeightTable) *Registry {
	r := &Registry{
		providers: make(map[Source]Provider, len(providers)),
		schedule:  DefaultDaySchedule(),
		chain:     DefaultFallbackChain(),
		weights:   weights,
	}
	for src, p := range providers {
		if src == SourceLocal || p == nil {
			continue
		}
		r.providers[src] = p
	}
	return r
}

// Provider returns the adapter registered for source.
func (r *Registry) Provider(source Source) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[source]
	return p, ok
}

// Providers returns a copy of the adapter map.
func (r *Registry) Providers() map[Source]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Source]Provider, len(r.providers))
	for src, p := range r.providers {
		out[src] = p
	}
	return out
}

// TodaysProvider indexes the schedule by the weekday of date.
func (r *Registry) TodaysProvider(date time.Time) DayEntry {
	return r.schedule[date.Weekday()]
}

// FallbackChain returns the static chain without primary. Callers exclude
// sources already attempted.
func (r *Registry) FallbackChain(primary Source) []Source {
	out := make([]Source, 0, len(r.chain))
	for _, src := range r.chain {
		if src != primary {
			out = append(out, src)
		}
	}
	return out
}

// Weights returns the current selection table.
func (r *Registry) Weights() WeightTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights.clone()
}

func (r *Registry) SetWeights(t WeightTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights = t
}

// SelectPrimarySource draws from the weight table; u must be in [0, 1).
func (r *Registry) SelectPrimarySource(u float64) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights.Select(u)
}

// CanonicalWeightTotal is what a normalized table sums to.
const CanonicalWeightTotal = 1.0

// WeightTable maps sources to non-negative selection weights. The local
// source is never part of the table and always weighs zero.
type WeightTable struct {
	order   []Source
	weights map[Source]float64
}

// DefaultWeights spreads selection across the external sources.
func DefaultWeights() WeightTable {
	return NewWeightTable(map[Source]float64{
		SourceQuotable:    0.20,
		SourceZenQuotes:   0.20,
		SourceFavQs:       0.15,
		SourceDummyJSON:   0.10,
		SourceQuoteSlate:  0.10,
		SourceStoic:       0.10,
		SourceTypeFit:     0.05,
		SourceProgramming: 0.10,
	})
}

// NewWeightTable builds a normalized table in canonical source order.
// Negative weights are clamped to zero.
func NewWeightTable(w map[Source]float64) WeightTable {
	t := WeightTable{weights: make(map[Source]float64, len(w))}
	for _, src := range ExternalSources {
		v, ok := w[src]
		if !ok {
			continue
		}
		if v < 0 {
			v = 0
		}
		t.order = append(t.order, src)
		t.weights[src] = v
	}
	t.normalize()
	return t
}

// normalize rescales the configured subset to CanonicalWeightTotal.
func (t *WeightTable) normalize() {
	total := t.Total()
	if total <= 0 {
		return
	}
	for src, v := range t.weights {
		t.weights[src] = v / total * CanonicalWeightTotal
	}
}

func (t WeightTable) Total() float64 {
	var sum float64
	for _, src := range t.order {
		sum += t.weights[src]
	}
	return sum
}

func (t WeightTable) Weight(source Source) float64 {
	return t.weights[source]
}

// Sources returns the configured sources in table order.
func (t WeightTable) Sources() []Source {
	return append([]Source(nil), t.order...)
}

// Map returns the table as a plain map, suitable for persistence.
func (t WeightTable) Map() map[Source]float64 {
	out := make(map[Source]float64, len(t.weights))
	for src, v := range t.weights {
		out[src] = v
	}
	out[SourceLocal] = 0
	return out
}

// Select lands u*total on a source by subtracting weights in table order.
// A zero-total table yields its first source.
func (t WeightTable) Select(u float64) Source {
	if len(t.order) == 0 {
		return ""
	}
	total := t.Total()
	if total <= 0 {
		return t.order[0]
	}
	v := u * total
	for _, src := range t.order {
		v -= t.weights[src]
		if v < 0 {
			return src
		}
	}
	return t.order[len(t.order)-1]
}

// ByWeight returns the sources ordered by descending weight, ties in table order.
func (t WeightTable) ByWeight() []Source {
	out := t.Sources()
	sort.SliceStable(out, func(i, j int) bool {
		return t.weights[out[i]] > t.weights[out[j]]
	})
	return out
}

func (t WeightTable) clone() WeightTable {
	c := WeightTable{order: t.Sources(), weights: make(map[Source]float64, len(t.weights))}
	for src, v := range t.weights {
		c.weights[src] = v
	}
	return c
}
