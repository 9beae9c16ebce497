package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Source identifies one external quote API or the bundled local pool.
type Source string

const (
	SourceQuotable    Source = "quotable"
	SourceZenQuotes   Source = "zenquotes"
	SourceFavQs       Source = "favqs"
	SourceDummyJSON   Source = "dummyjson"
	SourceQuoteSlate  Source = "quoteslate"
	SourceStoic       Source = "stoic"
	SourceTypeFit     Source = "typefit"
	SourceProgramming Source = "programming"
	SourceLocal       Source = "local" // offline pool, never a primary
)

// ExternalSources lists every network-backed source in canonical order.
var ExternalSources = []Source{
	SourceQuotable,
	SourceZenQuotes,
	SourceFavQs,
	SourceDummyJSON,
	SourceQuoteSlate,
	SourceStoic,
	SourceTypeFit,
	SourceProgramming,
}

// KnownSources returns the external sources followed by the local pseudo-source.
func KnownSources() []Source {
	out := make([]Source, 0, len(ExternalSources)+1)
	out = append(out, ExternalSources...)
	return append(out, SourceLocal)
}

// ParseSource maps a user supplied name onto a known source.
func ParseSource(name string) (Source, error) {
	n := Source(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range KnownSources() {
		if s == n {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown quote source %q", name)
}

// Quote is a normalized quote from any source. Only IsLiked changes after fetch.
type Quote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	IsLiked   bool      `json:"is_liked,omitempty"`
}

// Signature is the dedup key used when ids differ across providers.
func (q Quote) Signature() string {
	text := strings.ToLower(strings.Join(strings.Fields(q.Text), " "))
	author := strings.ToLower(strings.TrimSpace(q.Author))
	return text + "|" + author
}

// ValidateQuote normalizes whitespace and rejects quotes that cannot be shown.
func ValidateQuote(q *Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	q.Text = strings.TrimSpace(q.Text)
	q.Author = strings.TrimSpace(q.Author)
	q.ID = strings.TrimSpace(q.ID)

	if q.Text == "" {
		return fmt.Errorf("empty quote text")
	}
	if q.ID == "" {
		return fmt.Errorf("quote has no id")
	}
	return nil
}

// HealthCheckResult is what a provider reports from a lightweight probe.
type HealthCheckResult struct {
	Status       HealthStatus  `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
}

// Provider is implemented once per external source. Every method may fail;
// failures are returned as errors, never panics.
type Provider interface {
	Random(ctx context.Context) (Quote, error)
	Search(ctx context.Context, query string) ([]Quote, error)
	ByCategory(ctx context.Context, category string) ([]Quote, error)
	ByAuthor(ctx context.Context, author string) ([]Quote, error)
	HealthCheck(ctx context.Context) (HealthCheckResult, error)
}

func dedupeQuotes(in []Quote) []Quote {
	seen := make(map[string]bool, len(in))
	out := make([]Quote, 0, len(in))
	for _, q := range in {
		sig := q.Signature()
		if seen[q.ID] || seen[sig] {
			continue
		}
		seen[q.ID] = true
		seen[sig] = true
		out = append(out, q)
	}
	return out
}
