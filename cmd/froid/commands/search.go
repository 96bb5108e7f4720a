package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/froid/internal/cache"
	"github.com/jmylchreest/froid/internal/output"
	"github.com/jmylchreest/froid/pkg/froid"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search posts",
	Long: `Search the site for posts matching a query.

The fast mode (default) uses the site's search endpoint and returns id,
title and url. The legacy mode scrapes the HTML result pages concurrently
and also returns thumbnails and short descriptions.

Examples:
  froid search telegram
  froid search telegram --page 2 --per-page 20
  froid search "asphalt 8" --mode legacy --max-results 20 --format table`,
	Args: exactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	flags := searchCmd.Flags()
	flags.StringP("mode", "m", "fast", "search mode: fast, legacy")
	flags.Int("page", 0, "result page (fast mode)")
	flags.Int("per-page", 0, "results per page, max 100 (fast mode)")
	flags.Int("max-results", 0, "maximum results to collect (legacy mode, default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := froid.ParseMode(modeName)
	if err != nil {
		return err
	}

	var opts []froid.SearchOption
	if page, _ := cmd.Flags().GetInt("page"); page != 0 {
		opts = append(opts, froid.WithPage(page))
	}
	if perPage, _ := cmd.Flags().GetInt("per-page"); perPage != 0 {
		opts = append(opts, froid.WithPerPage(perPage))
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n != 0 {
		opts = append(opts, froid.WithMaxResults(n))
	}

	return call(cmd, func(ctx context.Context, b cache.Backend, w output.Writer) error {
		res, err := b.Search(ctx, args[0], mode, opts...)
		if err != nil {
			return err
		}
		report("search", res.Outcome, res.Diagnostics)
		return w.WriteAll(output.Items(res.Value))
	})
}
