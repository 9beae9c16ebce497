package quotes

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
	"github.com/Rajchodisetti/dailyquote/internal/storage"
)

// Options configures a Service.
type Options struct {
	Config    Config
	Store     Store // defaults to an in-memory store
	Providers map[Source]Provider

	// EnableBackgroundTasks starts health probing, cache cleanup and prefetch
	// warm-up. Leave it off in tests and one-shot tools.
	EnableBackgroundTasks bool

	Now       func() time.Time
	Rand      *rand.Rand
	LocalPool []Quote // replaces the bundled pool when non-empty
}

// Service answers quote requests by trying providers in a computed order,
// one at a time, behind per-source rate limiters, circuit breakers and health
// tracking. Every public method returns a result; provider failures never escape.
type Service struct {
	cfg   Config
	store Store
	now   func() time.Time
	local []Quote

	randMu sync.Mutex
	rng    *rand.Rand

	registry  *Registry
	limiter   *RateLimiter
	breaker   *CircuitBreaker
	health    *HealthMonitor
	cache     *CacheManager
	history   *QuoteHistory
	prefetch  *PrefetchEngine
	analytics *Analytics

	savedMu     sync.Mutex
	saved       []Quote
	savedLoaded bool

	locMu   sync.Mutex
	locMode string
	loc     *time.Location

	scheduler   *cron.Cron
	cleanupOnce sync.Once
}

// PerformanceReport is returned by GetPerformanceMetrics.
type PerformanceReport struct {
	Counters          map[Source]PerformanceCounter  `json:"counters"`
	CircuitBreakers   map[Source]CircuitBreakerState `json:"circuit_breakers"`
	RateLimiters      map[Source]RateLimiterState    `json:"rate_limiters"`
	PrefetchQueueSize int                            `json:"prefetch_queue_size"`
}

// NewService builds all per-source state for the full known-source set.
func NewService(ctx context.Context, opts Options) *Service {
	cfg := opts.Config.WithDefaults()
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	store := opts.Store
	if store == nil {
		store = storage.NewMemory()
	}
	local := opts.LocalPool
	if len(local) == 0 {
		local = LocalQuotes()
	}

	sources := KnownSources()
	s := &Service{
		cfg:       cfg,
		store:     store,
		now:       now,
		local:     local,
		rng:       rng,
		limiter:   NewRateLimiter(sources, cfg.rateLimitsBySource(), cfg.DefaultRateLimit, now),
		breaker:   NewCircuitBreaker(sources, cfg.CircuitBreaker, now),
		health:    NewHealthMonitor(sources, cfg.Health, now),
		cache:     NewCacheManager(store, cfg.Cache, now),
		history:   NewQuoteHistory(store, now),
		analytics: NewAnalytics(now),
	}
	s.registry = NewRegistry(opts.Providers, s.loadWeights(ctx))
	s.prefetch = NewPrefetchEngine(cfg.Prefetch, opts.EnableBackgroundTasks, s.prefetchCandidates, s.fetchRandom)

	s.cache.MigrateLegacyDailySlot(ctx)

	if opts.EnableBackgroundTasks {
		s.startScheduler()
	}

	observ.Log("quote_service_created", map[string]any{
		"providers":        len(s.registry.Providers()),
		"timezone":         cfg.Timezone,
		"background_tasks": opts.EnableBackgroundTasks,
	})
	return s
}

// loadWeights prefers persisted weights, then configured ones, then defaults.
// Whatever is loaded is re-normalized.
func (s *Service) loadWeights(ctx context.Context) WeightTable {
	var persisted map[Source]float64
	if loadKey(ctx, s.store, KeySourceWeights, &persisted) && len(persisted) > 0 {
		if t := NewWeightTable(persisted); len(t.Sources()) > 0 {
			return t
		}
	}
	if w := s.cfg.weightsBySource(); len(w) > 0 {
		return NewWeightTable(w)
	}
	return DefaultWeights()
}

func (s *Service) startScheduler() {
	s.scheduler = cron.New()
	jobs := []struct {
		name  string
		every time.Duration
		run   func()
	}{
		{"health_probe", s.cfg.Health.interval(), func() { s.ProbeProviders(context.Background()) }},
		{"api_cache_cleanup", s.cfg.Cache.cleanupInterval(), func() { s.cache.CleanupAPICache(context.Background()) }},
	}
	for _, job := range jobs {
		if _, err := s.scheduler.AddFunc(fmt.Sprintf("@every %s", job.every), job.run); err != nil {
			observ.Log("background_task_schedule_error", map[string]any{
				"task":  job.name,
				"error": err.Error(),
			})
		}
	}
	s.scheduler.Start()
}

// GetQuoteByDay returns today's quote. Unless force is set, a slot already
// written for today's date key is returned as is.
func (s *Service) GetQuoteByDay(ctx context.Context, force bool) Quote {
	day, key := s.today(ctx)
	s.analytics.recordRequest(key)

	if !force {
		if q, ok := s.cache.DailyQuote(ctx, key); ok {
			s.served(PathCache, q)
			return q
		}
	}

	entry := s.registry.TodaysProvider(day)
	candidates := s.health.PrioritizeProvidersByHealth(
		append([]Source{entry.Primary}, s.registry.FallbackChain(entry.Primary)...),
	)

	if q, ok := s.firstAvailable(ctx, candidates); ok {
		s.cache.SetDailyQuote(ctx, q, key)
		s.cache.AddToEnrichmentPool(ctx, q)
		s.history.Record(ctx, q, key)
		s.served(PathAPI, q)
		s.prefetch.EnsureWarm()
		observ.Log("daily_quote_served", map[string]any{
			"source":   string(q.Source),
			"primary":  string(entry.Primary),
			"date_key": key,
		})
		return q
	}

	if q, ok := s.prefetch.Take(); ok {
		s.cache.SetDailyQuote(ctx, q, key)
		s.history.Record(ctx, q, key)
		s.served(PathPrefetch, q)
		return q
	}

	q := s.selectLocalDaily(ctx, day, key)
	s.cache.SetDailyQuote(ctx, q, key)
	s.served(PathLocal, q)
	observ.Log("local_fallback_served", map[string]any{
		"quote_id": q.ID,
		"date_key": key,
	})
	return q
}

// Random returns a quote from a weighted primary, then the remaining
// sources by descending weight.
func (s *Service) Random(ctx context.Context) Quote {
	_, key := s.today(ctx)
	s.analytics.recordRequest(key)

	byWeight := s.registry.Weights().ByWeight()
	order := make([]Source, 0, len(byWeight)+1)
	if primary := s.registry.SelectPrimarySource(s.randFloat()); primary != "" {
		order = append(order, primary)
	}
	order = append(order, byWeight...)
	return s.serveRandom(ctx, order)
}

// RandomFrom starts with source and continues down its fallback chain.
func (s *Service) RandomFrom(ctx context.Context, source Source) Quote {
	_, key := s.today(ctx)
	s.analytics.recordRequest(key)

	if source == SourceLocal {
		q := s.localRandom(ctx)
		s.served(PathLocal, q)
		return q
	}
	order := append([]Source{source}, s.registry.FallbackChain(source)...)
	return s.serveRandom(ctx, order)
}

func (s *Service) serveRandom(ctx context.Context, order []Source) Quote {
	if q, ok := s.firstAvailable(ctx, order); ok {
		s.cache.AddToEnrichmentPool(ctx, q)
		s.served(PathAPI, q)
		s.prefetch.EnsureWarm()
		return q
	}
	if q, ok := s.prefetch.Take(); ok {
		s.served(PathPrefetch, q)
		return q
	}
	q := s.localRandom(ctx)
	s.served(PathLocal, q)
	return q
}

// firstAvailable tries candidates strictly in order, one at a time, and
// returns the first successful quote. Unhealthy, rate-limited, circuit-open
// and unregistered sources are skipped without a call.
func (s *Service) firstAvailable(ctx context.Context, candidates []Source) (Quote, bool) {
	tried := make(map[Source]bool, len(candidates))
	for _, src := range candidates {
		if tried[src] || src == SourceLocal {
			continue
		}
		tried[src] = true
		if ctx.Err() != nil {
			break
		}
		if _, ok := s.registry.Provider(src); !ok {
			continue
		}
		if !s.health.IsProviderHealthy(src) {
			observ.Log("provider_unavailable", map[string]any{
				"source": string(src),
				"reason": "down",
			})
			continue
		}
		q, err := s.fetchRandom(ctx, src)
		if err != nil {
			continue
		}
		return q, true
	}
	return Quote{}, false
}

// fetchRandom performs one guarded Random call and stamps the source.
func (s *Service) fetchRandom(ctx context.Context, src Source) (Quote, error) {
	q, err := executeProviderRequest(ctx, s, src, "random", func(ctx context.Context, p Provider) (Quote, error) {
		q, err := p.Random(ctx)
		if err != nil {
			return Quote{}, err
		}
		if err := ValidateQuote(&q); err != nil {
			return Quote{}, NewProviderError(src, "random", "invalid quote", err)
		}
		return q, nil
	})
	if err != nil {
		return Quote{}, err
	}
	q.Source = src
	return q, nil
}

// executeProviderRequest checks availability, runs call with the request
// timeout and reports the outcome to the breaker and health monitor. Errors
// come back as *QuoteError carrying source and op.
func executeProviderRequest[T any](ctx context.Context, s *Service, source Source, op string, call func(context.Context, Provider) (T, error)) (T, error) {
	var zero T
	p, ok := s.registry.Provider(source)
	if !ok {
		return zero, NewProviderError(source, op, "no provider registered", nil)
	}
	if !s.limiter.CanAllow(source) {
		return zero, s.unavailable(source, op, "rate limited")
	}
	if s.breaker.IsOpen(source) {
		return zero, s.unavailable(source, op, "circuit open")
	}
	if !s.limiter.Allow(source) {
		return zero, s.unavailable(source, op, "rate limited")
	}

	labels := map[string]string{"source": string(source)}
	observ.IncCounter("provider_requests_total", labels)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.requestTimeout())
	defer cancel()

	start := time.Now()
	res, err := call(cctx, p)
	elapsed := time.Since(start)
	observ.RecordDuration("provider_latency", elapsed, labels)

	if err != nil {
		qerr := classifyError(source, op, err)
		if ctx.Err() != nil {
			// The caller gave up; the provider is not to blame.
			return zero, qerr
		}
		s.breaker.RecordFailure(source)
		s.health.UpdatePerformanceMetrics(source, false, elapsed)
		observ.IncCounter("provider_errors_total", map[string]string{
			"source": string(source),
			"type":   string(qerr.Type),
		})
		observ.Log("provider_request_failed", map[string]any{
			"source":     string(source),
			"op":         op,
			"type":       string(qerr.Type),
			"error":      qerr.Error(),
			"latency_ms": elapsed.Milliseconds(),
		})
		return zero, qerr
	}

	s.breaker.RecordSuccess(source)
	s.health.UpdatePerformanceMetrics(source, true, elapsed)
	return res, nil
}

func (s *Service) unavailable(source Source, op, reason string) *QuoteError {
	observ.IncCounter("provider_skipped_total", map[string]string{
		"source": string(source),
		"reason": reason,
	})
	observ.Log("provider_unavailable", map[string]any{
		"source": string(source),
		"op":     op,
		"reason": reason,
	})
	return NewRateLimitError(source, op, reason)
}

// IsAvailable reports whether source could be called right now, without
// consuming a token or moving its breaker.
func (s *Service) IsAvailable(source Source) bool {
	if _, ok := s.registry.Provider(source); !ok {
		return false
	}
	return s.limiter.CanAllow(source) && s.breaker.Allows(source) && s.health.IsProviderHealthy(source)
}

// prefetchCandidates lists registered sources that are neither rate limited
// nor circuit-open, best health first. Health is only used for ordering.
func (s *Service) prefetchCandidates() []Source {
	ordered := s.health.PrioritizeProvidersByHealth(s.registry.Weights().ByWeight())
	out := make([]Source, 0, len(ordered))
	for _, src := range ordered {
		if _, ok := s.registry.Provider(src); !ok {
			continue
		}
		if s.limiter.CanAllow(src) && s.breaker.Allows(src) {
			out = append(out, src)
		}
	}
	return out
}

// Search looks up quotes matching query.
func (s *Service) Search(ctx context.Context, query string) []Quote {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Quote{}
	}
	return s.lookup(ctx, "search", "search:"+strings.ToLower(query),
		func(ctx context.Context, p Provider) ([]Quote, error) { return p.Search(ctx, query) },
		func(q Quote) bool { return containsFold(q.Text, query) || containsFold(q.Author, query) },
	)
}

// ByCategory returns quotes tagged with category.
func (s *Service) ByCategory(ctx context.Context, category string) []Quote {
	category = strings.TrimSpace(category)
	if category == "" {
		return []Quote{}
	}
	return s.lookup(ctx, "by_category", "category:"+strings.ToLower(category),
		func(ctx context.Context, p Provider) ([]Quote, error) { return p.ByCategory(ctx, category) },
		func(q Quote) bool {
			if strings.EqualFold(q.Category, category) {
				return true
			}
			for _, t := range q.Tags {
				if strings.EqualFold(t, category) {
					return true
				}
			}
			return false
		},
	)
}

// ByAuthor returns quotes attributed to author.
func (s *Service) ByAuthor(ctx context.Context, author string) []Quote {
	author = strings.TrimSpace(author)
	if author == "" {
		return []Quote{}
	}
	return s.lookup(ctx, "by_author", "author:"+strings.ToLower(author),
		func(ctx context.Context, p Provider) ([]Quote, error) { return p.ByAuthor(ctx, author) },
		func(q Quote) bool { return containsFold(q.Author, author) },
	)
}

// lookup serves key from the API cache, else asks providers by descending
// weight until one returns a non-empty result, else filters the local pool.
func (s *Service) lookup(ctx context.Context, op, key string, call func(context.Context, Provider) ([]Quote, error), match func(Quote) bool) []Quote {
	var cached []Quote
	if s.cache.Get(ctx, key, &cached) {
		return cached
	}

	for _, src := range s.registry.Weights().ByWeight() {
		if ctx.Err() != nil {
			break
		}
		if _, ok := s.registry.Provider(src); !ok || !s.health.IsProviderHealthy(src) {
			continue
		}
		res, err := executeProviderRequest(ctx, s, src, op, call)
		if err != nil {
			continue
		}
		valid := make([]Quote, 0, len(res))
		for _, q := range res {
			if ValidateQuote(&q) != nil {
				continue
			}
			q.Source = src
			valid = append(valid, q)
		}
		if len(valid) == 0 {
			continue
		}
		s.cache.Set(ctx, key, valid, s.cfg.Cache.apiTTL())
		return valid
	}

	out := []Quote{}
	for _, q := range s.localPool(ctx) {
		if match(q) {
			out = append(out, q)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// SaveQuote marks q liked and persists it with the user's saved quotes.
func (s *Service) SaveQuote(ctx context.Context, q Quote) {
	if ValidateQuote(&q) != nil {
		return
	}
	q.IsLiked = true

	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	s.loadSavedLocked(ctx)

	for i, existing := range s.saved {
		if existing.ID == q.ID {
			s.saved[i] = q
			saveKey(ctx, s.store, KeySavedQuotes, s.saved)
			return
		}
	}
	s.saved = append(s.saved, q)
	saveKey(ctx, s.store, KeySavedQuotes, s.saved)
}

// SavedQuotes returns the user's saved quotes.
func (s *Service) SavedQuotes(ctx context.Context) []Quote {
	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	s.loadSavedLocked(ctx)
	return append([]Quote(nil), s.saved...)
}

func (s *Service) loadSavedLocked(ctx context.Context) {
	if s.savedLoaded {
		return
	}
	s.savedLoaded = true
	var stored []Quote
	if loadKey(ctx, s.store, KeySavedQuotes, &stored) {
		s.saved = stored
	}
}

// SetSourceWeights replaces, normalizes and persists the selection table.
func (s *Service) SetSourceWeights(ctx context.Context, weights map[Source]float64) WeightTable {
	t := NewWeightTable(weights)
	s.registry.SetWeights(t)
	saveKey(ctx, s.store, KeySourceWeights, t.Map())
	return t
}

// SourceWeights returns the current normalized selection weights.
func (s *Service) SourceWeights() map[Source]float64 {
	return s.registry.Weights().Map()
}

// localPool merges the bundled quotes, the enrichment pool and saved quotes.
func (s *Service) localPool(ctx context.Context) []Quote {
	pool := make([]Quote, 0, len(s.local))
	pool = append(pool, s.local...)
	pool = append(pool, s.cache.EnrichmentPool(ctx)...)
	pool = append(pool, s.SavedQuotes(ctx)...)
	return dedupeQuotes(pool)
}

// selectLocalDaily makes the deterministic offline pick for day and logs it.
func (s *Service) selectLocalDaily(ctx context.Context, day time.Time, key string) Quote {
	q := selectDaily(ctx, s.history, s.localPool(ctx), day, key)
	s.history.Record(ctx, q, key)
	return q
}

func (s *Service) localRandom(ctx context.Context) Quote {
	pool := s.localPool(ctx)
	s.randMu.Lock()
	i := s.rng.IntN(len(pool))
	s.randMu.Unlock()
	return pool[i]
}

func (s *Service) randFloat() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rng.Float64()
}

func (s *Service) served(path string, q Quote) {
	s.analytics.recordServed(path, q.Source)
	observ.IncCounter("quote_served_total", map[string]string{"path": path})
}

// today returns now in the configured timezone and its date key. The
// timezone stored in settings wins over the configured mode.
func (s *Service) today(ctx context.Context) (time.Time, string) {
	loc := s.location(ctx)
	t := s.now().In(loc)
	return t, DateKey(t, loc)
}

func (s *Service) location(ctx context.Context) *time.Location {
	mode := s.cfg.Timezone
	var setting string
	if loadKey(ctx, s.store, KeyTimezoneSetting, &setting) && strings.TrimSpace(setting) != "" {
		mode = setting
	}

	s.locMu.Lock()
	defer s.locMu.Unlock()
	if s.loc != nil && s.locMode == mode {
		return s.loc
	}
	loc, err := ResolveLocation(mode)
	if err != nil {
		observ.Log("timezone_resolve_error", map[string]any{"mode": mode, "error": err.Error()})
		loc = time.Local
	}
	s.loc, s.locMode = loc, mode
	return loc
}

// ProbeProviders health-checks every registered provider once.
func (s *Service) ProbeProviders(ctx context.Context) {
	s.health.Probe(ctx, s.registry.Providers(), s.cfg.Health.probeTimeout())
}

// GetAnalytics returns request and serving counts.
func (s *Service) GetAnalytics() AnalyticsSnapshot {
	return s.analytics.Snapshot()
}

// GetHealthStatus returns per-source health records.
func (s *Service) GetHealthStatus() map[Source]HealthRecord {
	return s.health.Snapshot()
}

// GetPerformanceMetrics returns raw counters plus breaker and limiter state.
func (s *Service) GetPerformanceMetrics() PerformanceReport {
	return PerformanceReport{
		Counters:          s.health.Counters(),
		CircuitBreakers:   s.breaker.Snapshot(),
		RateLimiters:      s.limiter.Snapshot(),
		PrefetchQueueSize: s.prefetch.Len(),
	}
}

// History returns the shown-quote log.
func (s *Service) History(ctx context.Context) []HistoryEntry {
	return s.history.Entries(ctx)
}

// TodaysSchedule returns the weekday entry used for today's primary source.
func (s *Service) TodaysSchedule(ctx context.Context) DayEntry {
	day, _ := s.today(ctx)
	return s.registry.TodaysProvider(day)
}

// Cleanup stops background tasks and clears transient queues and caches.
// Persisted data survives. Safe to call more than once.
func (s *Service) Cleanup() {
	s.cleanupOnce.Do(func() {
		if s.scheduler != nil {
			<-s.scheduler.Stop().Done()
		}
		s.prefetch.Stop()
		s.cache.ClearTransient()
		observ.Log("quote_service_cleanup", nil)
	})
}
