package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Rajchodisetti/dailyquote/internal/adapters"
	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

type Storage struct {
	Driver string `yaml:"driver"` // sqlite | memory
	Path   string `yaml:"path"`
}

type Root struct {
	BackgroundTasks *bool           `yaml:"background_tasks"`
	Storage         Storage         `yaml:"storage"`
	Providers       adapters.Config `yaml:"providers"`
	Engine          quotes.Config   `yaml:",inline"`
}

// Background reports whether periodic probing, cleanup and prefetch run.
func (c Root) Background() bool {
	return c.BackgroundTasks == nil || *c.BackgroundTasks
}

// Load reads path, fills defaults and applies environment overrides.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.validate()
}

// Default is the configuration used when no file is given.
func Default() (Root, error) {
	var c Root
	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c *Root) applyDefaults() {
	if c.BackgroundTasks == nil {
		on := true
		c.BackgroundTasks = &on
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/quotes.db"
	}

	// Provider defaults
	if c.Providers.Mode == "" {
		c.Providers.Mode = "live"
	}
	if c.Providers.TimeoutSeconds == 0 {
		c.Providers.TimeoutSeconds = 10
	}

	c.Engine = c.Engine.WithDefaults()
}

func (c *Root) applyEnv() error {
	if tz := os.Getenv("QOTD_TIMEZONE"); tz != "" {
		c.Engine.Timezone = tz
	}
	if p := os.Getenv("QOTD_STORAGE_PATH"); p != "" {
		c.Storage.Path = p
	}
	if v := os.Getenv("QOTD_BACKGROUND"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QOTD_BACKGROUND: %w", err)
		}
		c.BackgroundTasks = &on
	}
	return nil
}

func (c Root) validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q (supported: sqlite, memory)", c.Storage.Driver)
	}
	if _, err := quotes.ResolveLocation(c.Engine.Timezone); err != nil {
		return err
	}
	if h := c.Engine.Health; h.DownThreshold < 0 || h.DownThreshold >= h.DegradedThreshold || h.DegradedThreshold > 1 {
		return fmt.Errorf("health: need 0 <= down_threshold (%g) < degraded_threshold (%g) <= 1", h.DownThreshold, h.DegradedThreshold)
	}
	for name := range c.Engine.RateLimits {
		if _, err := quotes.ParseSource(name); err != nil {
			return fmt.Errorf("rate_limits: %w", err)
		}
	}
	for name, w := range c.Engine.Weights {
		if _, err := quotes.ParseSource(name); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
		if w < 0 {
			return fmt.Errorf("weights: %s is negative", name)
		}
	}
	return nil
}
