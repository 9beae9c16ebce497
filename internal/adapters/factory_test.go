package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

func TestFactoryLiveMode(t *testing.T) {
	t.Setenv("QOTD_PROVIDERS", "")
	off := false
	f := NewFactory(Config{
		Mode: "live",
		Sources: map[string]SourceConfig{
			"typefit":  {Enabled: &off},
			"quotable": {BaseURL: "http://localhost:9999"},
		},
	})
	providers, err := f.CreateProviders()
	require.NoError(t, err)
	assert.Len(t, providers, len(quotes.ExternalSources)-1)
	assert.NotContains(t, providers, quotes.SourceTypeFit)

	p, ok := providers[quotes.SourceQuotable].(*HTTPProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9999", p.baseURL)
}

func TestFactoryEnvOverride(t *testing.T) {
	t.Setenv("QOTD_PROVIDERS", "mock")
	providers, err := NewFactory(Config{Mode: "live"}).CreateProviders()
	require.NoError(t, err)
	require.Len(t, providers, len(quotes.ExternalSources))
	_, ok := providers[quotes.SourceStoic].(*MockProvider)
	assert.True(t, ok)
}

func TestFactoryRejectsUnknown(t *testing.T) {
	t.Setenv("QOTD_PROVIDERS", "")
	_, err := NewFactory(Config{Mode: "carrier-pigeon"}).CreateProviders()
	assert.Error(t, err)

	_, err = NewFactory(Config{Sources: map[string]SourceConfig{"nope": {}}}).CreateProviders()
	assert.Error(t, err)
}

func TestFactoryReadsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("QOTD_PROVIDERS", "")
	t.Setenv("MY_FAVQS_KEY", "k")
	providers, err := NewFactory(Config{Sources: map[string]SourceConfig{
		"favqs": {APIKeyEnv: "MY_FAVQS_KEY"},
	}}).CreateProviders()
	require.NoError(t, err)
	assert.Equal(t, "k", providers[quotes.SourceFavQs].(*HTTPProvider).apiKey)
}
