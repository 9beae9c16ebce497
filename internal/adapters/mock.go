package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

// MockProvider serves deterministic quotes for offline runs and tests.
type MockProvider struct {
	mu        sync.Mutex
	source    quotes.Source
	quotes    []quotes.Quote
	next      int
	calls     int
	healthOk  bool
	latencyMs int
	failing   bool
	failNext  int
}

// NewMockProvider creates a mock for source with a few canned quotes.
func NewMockProvider(source quotes.Source) *MockProvider {
	m := &MockProvider{source: source, healthOk: true}
	canned := []struct{ text, author, category string }{
		{"Mock wisdom arrives exactly when the network does not.", "Offline Oracle", "testing"},
		{"A predictable answer is still an answer.", "Deterministic Dan", "testing"},
		{"Every fallback deserves a fallback.", "Resilient Rae", "resilience"},
	}
	for i, c := range canned {
		m.quotes = append(m.quotes, quotes.Quote{
			ID:       fmt.Sprintf("%s-mock-%d", source, i+1),
			Text:     c.text,
			Author:   c.author,
			Category: c.category,
			Tags:     []string{c.category},
			Source:   source,
		})
	}
	return m
}

func (m *MockProvider) begin(ctx context.Context) error {
	m.mu.Lock()
	latency := m.latencyMs
	m.calls++
	var err error
	switch {
	case m.failing:
		err = quotes.NewNetworkError(m.source, "", "mock provider failing", nil)
	case m.failNext > 0:
		m.failNext--
		err = quotes.NewNetworkError(m.source, "", "mock injected failure", nil)
	}
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(latency) * time.Millisecond):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return err
}

// Random cycles through the canned quotes in order.
func (m *MockProvider) Random(ctx context.Context) (quotes.Quote, error) {
	if err := m.begin(ctx); err != nil {
		return quotes.Quote{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.quotes) == 0 {
		return quotes.Quote{}, quotes.NewProviderError(m.source, "random", "no mock quotes", nil)
	}
	q := m.quotes[m.next%len(m.quotes)]
	m.next++
	return q, nil
}

func (m *MockProvider) filter(ctx context.Context, match func(quotes.Quote) bool) ([]quotes.Quote, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []quotes.Quote{}
	for _, q := range m.quotes {
		if match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MockProvider) Search(ctx context.Context, query string) ([]quotes.Quote, error) {
	return m.filter(ctx, func(q quotes.Quote) bool {
		return containsFold(q.Text, query) || containsFold(q.Author, query)
	})
}

func (m *MockProvider) ByCategory(ctx context.Context, category string) ([]quotes.Quote, error) {
	return m.filter(ctx, func(q quotes.Quote) bool { return strings.EqualFold(q.Category, category) })
}

func (m *MockProvider) ByAuthor(ctx context.Context, author string) ([]quotes.Quote, error) {
	return m.filter(ctx, func(q quotes.Quote) bool { return containsFold(q.Author, author) })
}

// HealthCheck reports the status set with SetHealth.
func (m *MockProvider) HealthCheck(ctx context.Context) (quotes.HealthCheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt := time.Duration(m.latencyMs) * time.Millisecond
	if !m.healthOk {
		return quotes.HealthCheckResult{Status: quotes.HealthDown, ResponseTime: rt}, fmt.Errorf("mock provider %s unhealthy", m.source)
	}
	return quotes.HealthCheckResult{Status: quotes.HealthHealthy, ResponseTime: rt}, nil
}

// SetHealth allows tests to control health status
func (m *MockProvider) SetHealth(healthy bool) {
	m.mu.Lock()
	m.healthOk = healthy
	m.mu.Unlock()
}

// SetLatency allows tests to control simulated latency
func (m *MockProvider) SetLatency(ms int) {
	m.mu.Lock()
	m.latencyMs = ms
	m.mu.Unlock()
}

// SetFailing makes every call fail until cleared.
func (m *MockProvider) SetFailing(failing bool) {
	m.mu.Lock()
	m.failing = failing
	m.mu.Unlock()
}

// FailNext makes the next n calls fail.
func (m *MockProvider) FailNext(n int) {
	m.mu.Lock()
	m.failNext = n
	m.mu.Unlock()
}

// AddQuote appends a quote stamped with the mock's source.
func (m *MockProvider) AddQuote(q quotes.Quote) {
	m.mu.Lock()
	q.Source = m.source
	m.quotes = append(m.quotes, q)
	m.mu.Unlock()
}

// Calls returns how many requests the mock has served or failed.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
