package quotes

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefetchFillAndTakeFIFO(t *testing.T) {
	var n atomic.Int32
	fetch := func(ctx context.Context, src Source) (Quote, error) {
		i := n.Add(1)
		return Quote{ID: fmt.Sprintf("%s-%d", src, i), Text: "t", Source: src}, nil
	}
	candidates := func() []Source {
		return []Source{SourceQuotable, SourceZenQuotes, SourceFavQs, SourceStoic}
	}
	pe := NewPrefetchEngine(PrefetchConfig{Target: 3, MaxQueueSize: 4}, false, candidates, fetch)
	defer pe.Stop()

	assert.Equal(t, 3, pe.Fill(context.Background()))
	assert.Equal(t, 3, pe.Len())
	assert.Equal(t, int32(3), n.Load(), "only Target sources are asked")

	assert.Equal(t, 3, pe.Fill(context.Background()))
	assert.Equal(t, 4, pe.Len(), "queue is capped")

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		q, ok := pe.Take()
		require.True(t, ok)
		assert.False(t, seen[q.ID])
		seen[q.ID] = true
	}
	_, ok := pe.Take()
	assert.False(t, ok)
}

func TestPrefetchSkipsFailures(t *testing.T) {
	fetch := func(ctx context.Context, src Source) (Quote, error) {
		if src == SourceZenQuotes {
			return Quote{}, NewNetworkError(src, "random", "boom", nil)
		}
		return Quote{ID: string(src), Text: "t", Source: src}, nil
	}
	pe := NewPrefetchEngine(PrefetchConfig{Target: 3}, false,
		func() []Source { return []Source{SourceQuotable, SourceZenQuotes} }, fetch)

	assert.Equal(t, 1, pe.Fill(context.Background()))
	q, ok := pe.Take()
	require.True(t, ok)
	assert.Equal(t, SourceQuotable, q.Source)
}

func TestPrefetchNoCandidates(t *testing.T) {
	pe := NewPrefetchEngine(PrefetchConfig{}, false, func() []Source { return nil },
		func(ctx context.Context, src Source) (Quote, error) { return Quote{}, nil })
	assert.Equal(t, 0, pe.Fill(context.Background()))
}

func TestPrefetchBackgroundWarm(t *testing.T) {
	fetch := func(ctx context.Context, src Source) (Quote, error) {
		return Quote{ID: string(src), Text: "t", Source: src}, nil
	}
	pe := NewPrefetchEngine(PrefetchConfig{Target: 2, DelayMs: 1}, true,
		func() []Source { return []Source{SourceQuotable, SourceFavQs} }, fetch)
	defer pe.Stop()

	pe.EnsureWarm()
	assert.Eventually(t, func() bool { return pe.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestPrefetchStopCancelsPendingWarm(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, src Source) (Quote, error) {
		calls.Add(1)
		return Quote{ID: string(src), Text: "t"}, nil
	}
	pe := NewPrefetchEngine(PrefetchConfig{Target: 1, DelayMs: 60000}, true,
		func() []Source { return []Source{SourceQuotable} }, fetch)

	pe.EnsureWarm()
	pe.Stop()
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, pe.Len())

	pe.EnsureWarm()
	assert.Equal(t, 0, pe.Len())
}

func TestPrefetchEnsureWarmAfterStopIsNoop(t *testing.T) {
	pe := NewPrefetchEngine(PrefetchConfig{Target: 1, DelayMs: 1}, true,
		func() []Source { return []Source{SourceQuotable} },
		func(ctx context.Context, src Source) (Quote, error) { return Quote{ID: "q", Text: "t"}, nil })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pe.EnsureWarm()
		}()
	}
	pe.Stop()
	wg.Wait()

	pe.EnsureWarm()
	pe.mu.Lock()
	defer pe.mu.Unlock()
	assert.True(t, pe.stopped)
	assert.False(t, pe.inFlight)
	assert.Empty(t, pe.queue)
}
