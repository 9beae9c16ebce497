package quotes

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
)

// PrefetchEngine keeps a small FIFO of ready quotes for future requests.
// It never blocks a foreground request.
type PrefetchEngine struct {
	mu       sync.Mutex
	queue    []Quote
	inFlight bool
	stopped  bool
	cfg      PrefetchConfig

	background bool
	candidates func() []Source
	fetch      func(ctx context.Context, source Source) (Quote, error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPrefetchEngine builds an engine. candidates lists currently available
// sources in preference order; fetch performs one guarded Random call. When
// background is false EnsureWarm does nothing and only Fill populates the queue.
func NewPrefetchEngine(cfg PrefetchConfig, background bool, candidates func() []Source, fetch func(context.Context, Source) (Quote, error)) *PrefetchEngine {
	if cfg.Target <= 0 {
		cfg.Target = 3
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 2 * cfg.Target
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PrefetchEngine{
		cfg:        cfg,
		background: background,
		candidates: candidates,
		fetch:      fetch,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// EnsureWarm schedules a delayed refill unless the queue is already at
// target or a refill is running.
func (pe *PrefetchEngine) EnsureWarm() {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	if !pe.background || pe.stopped || pe.inFlight || len(pe.queue) >= pe.cfg.Target {
		return
	}
	pe.inFlight = true
	pe.wg.Add(1)
	go pe.warm()
}

func (pe *PrefetchEngine) warm() {
	defer pe.wg.Done()
	defer func() {
		pe.mu.Lock()
		pe.inFlight = false
		pe.mu.Unlock()
	}()

	timer := time.NewTimer(pe.cfg.delay())
	defer timer.Stop()
	select {
	case <-pe.ctx.Done():
		return
	case <-timer.C:
	}
	pe.Fill(pe.ctx)
}

// Fill fetches one quote from each of up to Target distinct available
// sources in parallel and appends the successes. It returns how many were added.
func (pe *PrefetchEngine) Fill(ctx context.Context) int {
	sources := pe.candidates()
	if len(sources) > pe.cfg.Target {
		sources = sources[:pe.cfg.Target]
	}
	if len(sources) == 0 {
		return 0
	}

	var (
		mu      sync.Mutex
		fetched []Quote
		g       errgroup.Group
	)
	g.SetLimit(pe.cfg.Target)
	for _, src := range sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, pe.cfg.timeout())
			defer cancel()
			q, err := pe.fetch(fctx, src)
			if err != nil {
				return nil
			}
			mu.Lock()
			fetched = append(fetched, q)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	pe.mu.Lock()
	pe.queue = append(pe.queue, fetched...)
	if len(pe.queue) > pe.cfg.MaxQueueSize {
		pe.queue = pe.queue[:pe.cfg.MaxQueueSize]
	}
	size := len(pe.queue)
	pe.mu.Unlock()

	observ.SetGauge("prefetch_queue_size", float64(size), nil)
	observ.Log("prefetch_warmed", map[string]any{
		"requested":  len(sources),
		"added":      len(fetched),
		"queue_size": size,
	})
	return len(fetched)
}

// Take pops the oldest queued quote and triggers a refill.
func (pe *PrefetchEngine) Take() (Quote, bool) {
	pe.mu.Lock()
	if len(pe.queue) == 0 {
		pe.mu.Unlock()
		pe.EnsureWarm()
		return Quote{}, false
	}
	q := pe.queue[0]
	pe.queue = pe.queue[1:]
	pe.mu.Unlock()

	pe.EnsureWarm()
	return q, true
}

func (pe *PrefetchEngine) Len() int {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return len(pe.queue)
}

// Stop cancels any pending refill, waits for it, and empties the queue.
func (pe *PrefetchEngine) Stop() {
	pe.mu.Lock()
	pe.stopped = true
	pe.mu.Unlock()

	pe.cancel()
	pe.wg.Wait()

	pe.mu.Lock()
	pe.queue = nil
	pe.mu.Unlock()
}
