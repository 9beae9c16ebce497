package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/dailyquote/internal/quotes"
)

var (
	forceToday bool
	saveToday  bool
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's quote",
	Long: `Show the quote of the day. The same quote is returned for the rest of the
day unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			q := svc.GetQuoteByDay(ctx, forceToday)
			if saveToday {
				svc.SaveQuote(ctx, q)
				q.IsLiked = true
			}
			return renderQuote(cmd.OutOrStdout(), q)
		})
	},
}

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Show a random quote from a weighted source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			return renderQuote(cmd.OutOrStdout(), svc.Random(ctx))
		})
	},
}

var fromCmd = &cobra.Command{
	Use:   "from <source>",
	Short: "Show a random quote starting from a specific source",
	Long: fmt.Sprintf(`Show a random quote, trying the named source first and then the fallback
chain.

Sources: %s`, sourceNames()),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := quotes.ParseSource(args[0])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			return renderQuote(cmd.OutOrStdout(), svc.RandomFrom(ctx, src))
		})
	},
}

func lookupCmd(use, short string, run func(*quotes.Service, context.Context, string) []quotes.Quote) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			return withService(func(ctx context.Context, svc *quotes.Service) error {
				return renderQuotes(cmd.OutOrStdout(), run(svc, ctx, term))
			})
		},
	}
}

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved quotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *quotes.Service) error {
			return renderQuotes(cmd.OutOrStdout(), svc.SavedQuotes(ctx))
		})
	},
}

func init() {
	todayCmd.Flags().BoolVarP(&forceToday, "force", "f", false, "Fetch a new quote even if today's is cached")
	todayCmd.Flags().BoolVar(&saveToday, "save", false, "Save today's quote")

	rootCmd.AddCommand(
		todayCmd,
		randomCmd,
		fromCmd,
		lookupCmd("search <query>", "Search quotes by text or author", (*quotes.Service).Search),
		lookupCmd("author <name>", "List quotes by an author", (*quotes.Service).ByAuthor),
		lookupCmd("category <name>", "List quotes in a category", (*quotes.Service).ByCategory),
		savedCmd,
	)
}

func sourceNames() string {
	names := make([]string, 0, len(quotes.KnownSources()))
	for _, s := range quotes.KnownSources() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func writeQuote(w io.Writer, q quotes.Quote) {
	fmt.Fprintf(w, "%q\n", q.Text)
	author := q.Author
	if author == "" {
		author = "Unknown"
	}
	fmt.Fprintf(w, "  - %s", author)
	if q.Category != "" {
		fmt.Fprintf(w, " [%s]", q.Category)
	}
	fmt.Fprintf(w, " (%s)\n", q.Source)
}

func renderQuote(w io.Writer, q quotes.Quote) error {
	return render(w, q, func(w io.Writer) { writeQuote(w, q) })
}

func renderQuotes(w io.Writer, qs []quotes.Quote) error {
	return render(w, qs, func(w io.Writer) {
		if len(qs) == 0 {
			fmt.Fprintln(w, "No quotes found.")
			return
		}
		for i, q := range qs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeQuote(w, q)
		}
	})
}
