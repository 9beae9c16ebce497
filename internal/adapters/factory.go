package adapters

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

// Config selects and tunes the provider adapters.
type Config struct {
	Mode           string                  `yaml:"mode"` // "live" | "mock"
	TimeoutSeconds int                     `yaml:"timeout_seconds"`
	Sources        map[string]SourceConfig `yaml:"sources"`
}

// SourceConfig overrides one source's definition.
type SourceConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

func (s SourceConfig) enabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Factory builds the provider set from configuration.
type Factory struct {
	config Config
}

func NewFactory(config Config) *Factory {
	return &Factory{config: config}
}

// CreateProviders returns one provider per enabled source. The QOTD_PROVIDERS
// environment variable overrides the configured mode.
func (f *Factory) CreateProviders() (map[quotes.Source]quotes.Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(f.config.Mode))
	if env := os.Getenv("QOTD_PROVIDERS"); env != "" {
		mode = strings.ToLower(strings.TrimSpace(env))
		observ.Log("providers_mode_override", map[string]any{
			"config_mode":  f.config.Mode,
			"env_override": mode,
		})
	}
	if mode == "" {
		mode = "live"
	}

	for name := range f.config.Sources {
		if _, err := quotes.ParseSource(name); err != nil {
			return nil, fmt.Errorf("providers config: %w", err)
		}
	}

	out := make(map[quotes.Source]quotes.Provider)
	switch mode {
	case "mock":
		for _, src := range quotes.ExternalSources {
			if !f.config.Sources[string(src)].enabled() {
				continue
			}
			out[src] = NewMockProvider(src)
		}
	case "live":
		defs := Definitions()
		timeout := time.Duration(f.config.TimeoutSeconds) * time.Second
		for _, src := range quotes.ExternalSources {
			sc := f.config.Sources[string(src)]
			if !sc.enabled() {
				continue
			}
			def := defs[src]
			keyEnv := def.APIKeyEnv
			if sc.APIKeyEnv != "" {
				keyEnv = sc.APIKeyEnv
			}
			var key string
			if keyEnv != "" {
				key = os.Getenv(keyEnv)
			}
			out[src] = NewHTTPProvider(def, ProviderOptions{
				BaseURL: sc.BaseURL,
				APIKey:  key,
				Timeout: timeout,
			})
		}
	default:
		return nil, fmt.Errorf("unknown providers mode: %s (supported: live, mock)", mode)
	}

	observ.Log("providers_created", map[string]any{
		"mode":  mode,
		"count": len(out),
	})
	return out, nil
}
