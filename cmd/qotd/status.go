package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

var (
	probeFirst    bool
	metricsListen string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show per-source health, breaker and limiter state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			if probeFirst {
				svc.ProbeProviders(ctx)
			}
			health := svc.GetHealthStatus()
			perf := svc.GetPerformanceMetrics()
			return render(cmd.OutOrStdout(), map[string]any{"health": health, "performance": perf}, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SOURCE\tSTATUS\tSUCCESS\tAVG MS\tCIRCUIT\tTOKENS\tAVAILABLE")
				for _, src := range quotes.KnownSources() {
					h := health[src]
					fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%.0f\t%s\t%.1f\t%t\n",
						src, h.Status, h.SuccessRate*100, h.AvgResponseTimeMs,
						perf.CircuitBreakers[src].State, perf.RateLimiters[src].Tokens,
						svc.IsAvailable(src))
				}
				tw.Flush()
			})
		})
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Dump process metrics, or serve them over HTTP with --listen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if metricsListen != "" {
			srv := &http.Server{
				Addr:              metricsListen,
				Handler:           observ.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "serving metrics on %s\n", metricsListen)
			return srv.ListenAndServe()
		}
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			dump := observ.Snapshot()
			return render(cmd.OutOrStdout(), dump, func(w io.Writer) {
				writeSorted(w, "counters", dump.Counters)
				writeSorted(w, "gauges", dump.Gauges)
				writeSorted(w, "p95", dump.P95)
			})
		})
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Serve today's quote and report request analytics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			svc.GetQuoteByDay(ctx, false)
			a := svc.GetAnalytics()
			return render(cmd.OutOrStdout(), a, func(w io.Writer) {
				fmt.Fprintf(w, "requests: %d (today %d, bucket %s)\n", a.TotalRequests, a.DailyRequests, a.DailyBucketDate)
				fmt.Fprintf(w, "fallbacks: %d\n", a.FallbackCount)
				for path, n := range a.ByPath {
					fmt.Fprintf(w, "path %s: %d\n", path, n)
				}
				for src, n := range a.BySource {
					fmt.Fprintf(w, "source %s: %d\n", src, n)
				}
			})
		})
	},
}

var weightsCmd = &cobra.Command{
	Use:   "weights [source=weight ...]",
	Short: "Show or replace the random-source weights",
	Long: `Without arguments, print the current normalized weights. With arguments,
replace the table (weights are normalized and persisted).

Example:
  qotd weights quotable=2 stoic=1 zenquotes=1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var table map[quotes.Source]float64
		if len(args) > 0 {
			var err error
			if table, err = parseWeights(args); err != nil {
				return err
			}
		}
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			if table != nil {
				svc.SetSourceWeights(ctx, table)
			}
			weights := svc.SourceWeights()
			return render(cmd.OutOrStdout(), weights, func(w io.Writer) {
				for _, src := range quotes.KnownSources() {
					fmt.Fprintf(w, "%-12s %.3f\n", src, weights[src])
				}
			})
		})
	},
}

func init() {
	healthCmd.Flags().BoolVar(&probeFirst, "probe", false, "Health-check every provider before reporting")
	metricsCmd.Flags().StringVar(&metricsListen, "listen", "", "Serve the metrics dump on this address (e.g. :9090)")
	rootCmd.AddCommand(healthCmd, metricsCmd, analyticsCmd, weightsCmd)
}

func parseWeights(args []string) (map[quotes.Source]float64, error) {
	out := make(map[quotes.Source]float64, len(args))
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected source=weight, got %q", arg)
		}
		src, err := quotes.ParseSource(name)
		if err != nil {
			return nil, err
		}
		w, err := strconv.ParseFloat(val, 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("invalid weight for %s: %q", src, val)
		}
		out[src] = w
	}
	return out, nil
}

func writeSorted[V any](w io.Writer, title string, m map[string]V) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %v\n", k, m[k])
	}
}
