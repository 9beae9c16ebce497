package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

// Record is one quote as decoded from a provider payload, before normalization.
type Record struct {
	ID       string
	Text     string
	Author   string
	Category string
	Tags     []string
}

type decoder func(body []byte) ([]Record, error)

// Definition describes one external quote API. Lookup paths are fmt templates
// taking the query-escaped argument; an empty template means the API has no
// such endpoint.
type Definition struct {
	Source       quotes.Source
	BaseURL      string
	RandomPath   string
	SearchPath   string
	CategoryPath string
	AuthorPath   string
	HealthPath   string // defaults to RandomPath
	APIKeyEnv    string

	// ListAll marks APIs whose random endpoint returns the whole collection.
	// Random picks one entry and lookups filter the list client-side.
	ListAll bool

	authHeader   func(key string) (string, string)
	decodeRandom decoder
	decodeList   decoder
}

func (d Definition) healthPath() string {
	if d.HealthPath != "" {
		return d.HealthPath
	}
	return d.RandomPath
}

// Definitions returns the built-in table of external sources.
func Definitions() map[quotes.Source]Definition {
	defs := []Definition{
		{
			Source:       quotes.SourceQuotable,
			BaseURL:      "https://api.quotable.io",
			RandomPath:   "/random",
			SearchPath:   "/search/quotes?query=%s&limit=20",
			CategoryPath: "/quotes?tags=%s&limit=20",
			AuthorPath:   "/quotes?author=%s&limit=20",
			decodeRandom: decodeOne(quotableRecord),
			decodeList:   decodeWrapped("results", quotableRecord),
		},
		{
			Source:       quotes.SourceZenQuotes,
			BaseURL:      "https://zenquotes.io",
			RandomPath:   "/api/random",
			HealthPath:   "/api/today",
			decodeRandom: decodeMany(zenRecord),
		},
		{
			Source:       quotes.SourceFavQs,
			BaseURL:      "https://favqs.com",
			RandomPath:   "/api/qotd",
			SearchPath:   "/api/quotes?filter=%s",
			CategoryPath: "/api/quotes?filter=%s&type=tag",
			AuthorPath:   "/api/quotes?filter=%s&type=author",
			APIKeyEnv:    "FAVQS_API_KEY",
			authHeader: func(key string) (string, string) {
				return "Authorization", fmt.Sprintf("Token token=%q", key)
			},
			decodeRandom: decodeWrappedOne("quote", favqsRecord),
			decodeList:   decodeWrapped("quotes", favqsRecord),
		},
		{
			Source:       quotes.SourceDummyJSON,
			BaseURL:      "https://dummyjson.com",
			RandomPath:   "/quotes/random",
			decodeRandom: decodeOne(dummyRecord),
		},
		{
			Source:       quotes.SourceQuoteSlate,
			BaseURL:      "https://quoteslate.vercel.app",
			RandomPath:   "/api/quotes/random",
			CategoryPath: "/api/quotes/random?tags=%s&count=20",
			AuthorPath:   "/api/quotes/random?authors=%s&count=20",
			decodeRandom: decodeOne(slateRecord),
			decodeList:   decodeMany(slateRecord),
		},
		{
			Source:       quotes.SourceStoic,
			BaseURL:      "https://stoic-quotes.com",
			RandomPath:   "/api/quote",
			decodeRandom: decodeOne(stoicRecord),
		},
		{
			Source:       quotes.SourceTypeFit,
			BaseURL:      "https://type.fit",
			RandomPath:   "/api/quotes",
			ListAll:      true,
			decodeRandom: decodeMany(typefitRecord),
		},
		{
			Source:       quotes.SourceProgramming,
			BaseURL:      "https://programming-quotesapi.vercel.app",
			RandomPath:   "/api/random",
			decodeRandom: decodeOne(programmingRecord),
		},
	}

	out := make(map[quotes.Source]Definition, len(defs))
	for _, d := range defs {
		out[d.Source] = d
	}
	return out
}

// flexID accepts ids encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Payload shapes, one per API.

type quotablePayload struct {
	ID      string   `json:"_id"`
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

func quotableRecord(p quotablePayload) Record {
	return Record{ID: p.ID, Text: p.Content, Author: p.Author, Tags: p.Tags}
}

type zenPayload struct {
	Q string `json:"q"`
	A string `json:"a"`
}

func zenRecord(p zenPayload) Record {
	return Record{Text: p.Q, Author: p.A}
}

type favqsPayload struct {
	ID     flexID   `json:"id"`
	Body   string   `json:"body"`
	Author string   `json:"author"`
	Tags   []string `json:"tags"`
}

func favqsRecord(p favqsPayload) Record {
	return Record{ID: string(p.ID), Text: p.Body, Author: p.Author, Tags: p.Tags}
}

type dummyPayload struct {
	ID     flexID `json:"id"`
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

func dummyRecord(p dummyPayload) Record {
	return Record{ID: string(p.ID), Text: p.Quote, Author: p.Author}
}

type slatePayload struct {
	ID     flexID   `json:"id"`
	Quote  string   `json:"quote"`
	Author string   `json:"author"`
	Tags   []string `json:"tags"`
}

func slateRecord(p slatePayload) Record {
	return Record{ID: string(p.ID), Text: p.Quote, Author: p.Author, Tags: p.Tags}
}

type stoicPayload struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

func stoicRecord(p stoicPayload) Record {
	return Record{Text: p.Text, Author: p.Author, Category: "stoicism"}
}

type typefitPayload struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

func typefitRecord(p typefitPayload) Record {
	return Record{Text: p.Text, Author: p.Author}
}

type programmingPayload struct {
	ID     flexID `json:"id"`
	En     string `json:"en"`
	Author string `json:"author"`
}

func programmingRecord(p programmingPayload) Record {
	return Record{ID: string(p.ID), Text: p.En, Author: p.Author, Category: "programming"}
}

// Decoder builders.

func decodeOne[T any](conv func(T) Record) decoder {
	return func(body []byte) ([]Record, error) {
		var p T
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return []Record{conv(p)}, nil
	}
}

func decodeMany[T any](conv func(T) Record) decoder {
	return func(body []byte) ([]Record, error) {
		var ps []T
		if err := json.Unmarshal(body, &ps); err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(ps))
		for _, p := range ps {
			out = append(out, conv(p))
		}
		return out, nil
	}
}

func decodeWrappedOne[T any](field string, conv func(T) Record) decoder {
	return func(body []byte) ([]Record, error) {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		raw, ok := env[field]
		if !ok {
			return nil, fmt.Errorf("missing %q field", field)
		}
		return decodeOne(conv)(raw)
	}
}

func decodeWrapped[T any](field string, conv func(T) Record) decoder {
	return func(body []byte) ([]Record, error) {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		raw, ok := env[field]
		if !ok {
			return nil, fmt.Errorf("missing %q field", field)
		}
		return decodeMany(conv)(raw)
	}
}
