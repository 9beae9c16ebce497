package adapters

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

const (
	userAgent    = "dailyquote/1.0"
	maxBodyBytes = 4 << 20
)

// ProviderOptions tunes one HTTP provider.
type ProviderOptions struct {
	BaseURL string // overrides the definition's base URL
	APIKey  string
	Timeout time.Duration
	Client  *http.Client
	Now     func() time.Time
	Pick    func(n int) int // chooses an entry from list-all payloads
}

// HTTPProvider implements quotes.Provider over a Definition.
type HTTPProvider struct {
	def     Definition
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
	pick    func(n int) int
}

func NewHTTPProvider(def Definition, opts ProviderOptions) *HTTPProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	base := def.BaseURL
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return &HTTPProvider{
		def:     def,
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  opts.APIKey,
		client:  client,
		now:     now,
		pick:    pick,
	}
}

func (p *HTTPProvider) Source() quotes.Source { return p.def.Source }

// Random fetches one quote.
func (p *HTTPProvider) Random(ctx context.Context) (quotes.Quote, error) {
	const op = "random"
	recs, err := p.fetch(ctx, op, p.def.RandomPath, p.def.decodeRandom)
	if err != nil {
		return quotes.Quote{}, err
	}
	qs := p.normalize(recs)
	if len(qs) == 0 {
		return quotes.Quote{}, quotes.NewProviderError(p.def.Source, op, "empty response", nil)
	}
	if p.def.ListAll {
		return qs[p.pick(len(qs))], nil
	}
	return qs[0], nil
}

func (p *HTTPProvider) Search(ctx context.Context, query string) ([]quotes.Quote, error) {
	return p.lookup(ctx, "search", p.def.SearchPath, query, func(r Record) bool {
		return containsFold(r.Text, query) || containsFold(r.Author, query)
	})
}

func (p *HTTPProvider) ByCategory(ctx context.Context, category string) ([]quotes.Quote, error) {
	return p.lookup(ctx, "by_category", p.def.CategoryPath, category, func(r Record) bool {
		if strings.EqualFold(r.Category, category) {
			return true
		}
		for _, t := range r.Tags {
			if strings.EqualFold(t, category) {
				return true
			}
		}
		return false
	})
}

func (p *HTTPProvider) ByAuthor(ctx context.Context, author string) ([]quotes.Quote, error) {
	return p.lookup(ctx, "by_author", p.def.AuthorPath, author, func(r Record) bool {
		return containsFold(r.Author, author)
	})
}

// HealthCheck issues one GET against the health path and times it.
func (p *HTTPProvider) HealthCheck(ctx context.Context) (quotes.HealthCheckResult, error) {
	start := time.Now()
	_, err := p.get(ctx, "health_check", p.def.healthPath())
	elapsed := time.Since(start)
	if err != nil {
		return quotes.HealthCheckResult{Status: quotes.HealthDown, ResponseTime: elapsed}, err
	}
	return quotes.HealthCheckResult{Status: quotes.HealthHealthy, ResponseTime: elapsed}, nil
}

func (p *HTTPProvider) lookup(ctx context.Context, op, tmpl, arg string, match func(Record) bool) ([]quotes.Quote, error) {
	if tmpl == "" {
		if !p.def.ListAll {
			return nil, quotes.NewProviderError(p.def.Source, op, "operation not supported", nil)
		}
		recs, err := p.fetch(ctx, op, p.def.RandomPath, p.def.decodeRandom)
		if err != nil {
			return nil, err
		}
		matched := recs[:0]
		for _, r := range recs {
			if match(r) {
				matched = append(matched, r)
			}
		}
		return p.normalize(matched), nil
	}

	decode := p.def.decodeList
	if decode == nil {
		decode = p.def.decodeRandom
	}
	recs, err := p.fetch(ctx, op, fmt.Sprintf(tmpl, url.QueryEscape(arg)), decode)
	if err != nil {
		return nil, err
	}
	return p.normalize(recs), nil
}

func (p *HTTPProvider) fetch(ctx context.Context, op, path string, decode decoder) ([]Record, error) {
	body, err := p.get(ctx, op, path)
	if err != nil {
		return nil, err
	}
	recs, err := decode(body)
	if err != nil {
		return nil, quotes.NewProviderError(p.def.Source, op, "failed to parse response", err)
	}
	return recs, nil
}

func (p *HTTPProvider) get(ctx context.Context, op, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, quotes.NewProviderError(p.def.Source, op, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if p.apiKey != "" && p.def.authHeader != nil {
		req.Header.Set(p.def.authHeader(p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, quotes.NewNetworkError(p.def.Source, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, quotes.NewNetworkError(p.def.Source, op, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, quotes.NewNetworkError(p.def.Source, op, "failed to read body", err)
	}
	return body, nil
}

// normalize maps records to quotes, dropping entries without text. Records
// without an id get a name-based UUID so the same quote keeps the same id.
func (p *HTTPProvider) normalize(recs []Record) []quotes.Quote {
	now := p.now()
	out := make([]quotes.Quote, 0, len(recs))
	for _, r := range recs {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		author := strings.TrimSpace(r.Author)
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = stableID(p.def.Source, text, author)
		} else {
			id = string(p.def.Source) + "-" + id
		}
		category := r.Category
		if category == "" && len(r.Tags) > 0 {
			category = r.Tags[0]
		}
		out = append(out, quotes.Quote{
			ID:        id,
			Text:      text,
			Author:    author,
			Category:  category,
			Tags:      r.Tags,
			Source:    p.def.Source,
			CreatedAt: now,
		})
	}
	return out
}

func stableID(src quotes.Source, text, author string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(src)+"|"+text+"|"+author)).String()
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
