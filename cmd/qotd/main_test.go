package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

func TestParseWeights(t *testing.T) {
	got, err := parseWeights([]string{"quotable=2", "Stoic=0.5"})
	require.NoError(t, err)
	assert.Equal(t, map[quotes.Source]float64{quotes.SourceQuotable: 2, quotes.SourceStoic: 0.5}, got)

	for _, bad := range []string{"quotable", "gossip=1", "stoic=-1", "stoic=lots"} {
		_, err := parseWeights([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRenderFormats(t *testing.T) {
	q := quotes.Quote{ID: "x", Text: "Hello.", Author: "Me", Category: "greeting", Source: quotes.SourceLocal}

	for _, format := range []string{"text", "json", "yaml"} {
		output = format
		var buf bytes.Buffer
		require.NoError(t, renderQuote(&buf, q), format)
		assert.Contains(t, buf.String(), "Hello.", format)
	}

	output = "xml"
	assert.Error(t, renderQuote(&bytes.Buffer{}, q))
	output = "text"
}

func TestRenderEmptyList(t *testing.T) {
	output = "text"
	var buf bytes.Buffer
	require.NoError(t, renderQuotes(&buf, nil))
	assert.Equal(t, "No quotes found.\n", buf.String())
}

func TestTodayCommandOffline(t *testing.T) {
	t.Setenv("QOTD_PROVIDERS", "mock")
	t.Setenv("QOTD_BACKGROUND", "false")
	t.Setenv("QOTD_TIMEZONE", "utc")
	cfgFile = t.TempDir() + "/missing.yaml"
	envFile = t.TempDir() + "/missing.env"
	memory = true
	output = "json"
	defer func() { output = "text" }()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"today", "--memory", "-o", "json", "-c", cfgFile, "--env-file", envFile})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), `"source":`)
}
