package quotes

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
)

func TestMain(m *testing.M) {
	observ.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeProvider returns a fresh quote per call unless told to fail.
type fakeProvider struct {
	mu         sync.Mutex
	source     Source
	calls      int
	failNext   int
	alwaysFail bool
	err        error
	results    []Quote
	health     HealthStatus
}

func newFakeProvider(src Source) *fakeProvider {
	return &fakeProvider{source: src, health: HealthHealthy}
}

func (f *fakeProvider) fail() error {
	f.calls++
	if f.alwaysFail {
		return f.failure()
	}
	if f.failNext > 0 {
		f.failNext--
		return f.failure()
	}
	return nil
}

func (f *fakeProvider) failure() error {
	if f.err != nil {
		return f.err
	}
	return NewNetworkError(f.source, "", "status 503", nil)
}

func (f *fakeProvider) Random(ctx context.Context) (Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return Quote{}, err
	}
	return Quote{
		ID:     fmt.Sprintf("%s-%d", f.source, f.calls),
		Text:   fmt.Sprintf("Quote number %d from %s", f.calls, f.source),
		Author: "Test Author",
	}, nil
}

func (f *fakeProvider) list() ([]Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return append([]Quote(nil), f.results...), nil
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]Quote, error) { return f.list() }

func (f *fakeProvider) ByCategory(ctx context.Context, category string) ([]Quote, error) {
	return f.list()
}

func (f *fakeProvider) ByAuthor(ctx context.Context, author string) ([]Quote, error) {
	return f.list()
}

func (f *fakeProvider) HealthCheck(ctx context.Context) (HealthCheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return HealthCheckResult{Status: f.health, ResponseTime: 5 * time.Millisecond}, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeProviders registers a fakeProvider for every external source.
func fakeProviders() (map[Source]Provider, map[Source]*fakeProvider) {
	providers := make(map[Source]Provider, len(ExternalSources))
	fakes := make(map[Source]*fakeProvider, len(ExternalSources))
	for _, src := range ExternalSources {
		f := newFakeProvider(src)
		providers[src] = f
		fakes[src] = f
	}
	return providers, fakes
}

// failingStore errors on every call.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	return false, fmt.Errorf("disk unavailable")
}

func (failingStore) Set(ctx context.Context, key string, value any) error {
	return fmt.Errorf("disk unavailable")
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("disk unavailable")
}
