package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Rajchodisetti/dailyquote/internal/adapters"
	"github.com/Rajchodisetti/dailyquote/internal/config"
	"github.com/Rajchodisetti/dailyquote/internal/observ"
	"github.com/Rajchodisetti/dailyquote/internal/quotes"
	"github.com/Rajchodisetti/dailyquote/internal/storage"
)

var (
	cfgFile string
	envFile string
	output  string
	verbose bool
	memory  bool
)

var rootCmd = &cobra.Command{
	Use:   "qotd",
	Short: "Quote of the day from many sources, with offline fallback",
	Long: `qotd fetches a daily or random quote from a rotating set of public quote
APIs. Sources are rate limited, circuit broken and health tracked; when every
source fails a bundled local pool answers instead.

Examples:
  qotd today
  qotd random
  qotd from stoic
  qotd search courage
  qotd health --probe`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			observ.SetOutput(io.Discard)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/qotd.yaml", "Config file (defaults apply when missing)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before config")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write event logs to stderr")
	rootCmd.PersistentFlags().BoolVar(&memory, "memory", false, "Use in-memory storage instead of the configured store")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file and the config file, falling back to
// defaults when either is missing.
func loadConfig() (config.Root, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Root{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load(cfgFile)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return cfg, err
}

// openService wires storage, providers and the engine. The returned close
// function stops background work and releases storage.
func openService(ctx context.Context) (*quotes.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var (
		store   quotes.Store
		closers []func() error
	)
	if memory || strings.EqualFold(cfg.Storage.Driver, "memory") {
		store = storage.NewMemory()
	} else {
		db, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closers = append(closers, db.Close)
	}

	providers, err := adapters.NewFactory(cfg.Providers).CreateProviders()
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	svc := quotes.NewService(ctx, quotes.Options{
		Config:                cfg.Engine,
		Store:                 store,
		Providers:             providers,
		EnableBackgroundTasks: cfg.Background(),
	})
	return svc, func() {
		svc.Cleanup()
		for _, c := range closers {
			if err := c(); err != nil {
				observ.Log("storage_close_error", map[string]any{"error": err.Error()})
			}
		}
	}, nil
}

// withService runs fn against a freshly wired service, cancelled on SIGINT.
func withService(fn func(ctx context.Context, svc *quotes.Service) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func render(w io.Writer, v any, text func(io.Writer)) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (supported: text, json, yaml)", output)
	}
}
