package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/froid/internal/cache"
	"github.com/jmylchreest/froid/internal/output"
	"github.com/jmylchreest/froid/pkg/froid"
)

var postCmd = &cobra.Command{
	Use:   "post <id>",
	Short: "Fetch a post page",
	Long: `Fetch a post page by numeric id and extract its title, statistics,
media, related posts, download links and metadata.

Blocks missing from the page are reported on stderr; the command only
fails when the page itself is missing or no longer parseable.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, func(ctx context.Context, b cache.Backend, w output.Writer) error {
			res, err := b.FetchPost(ctx, args[0])
			if err != nil {
				return err
			}
			report("post", res.Outcome, res.Diagnostics)
			return w.Write(res.Value)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <id>",
	Short: "Fetch a post's view, like and download counters",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, func(ctx context.Context, b cache.Backend, w output.Writer) error {
			res, err := b.FetchStats(ctx, args[0])
			if err != nil {
				return err
			}
			return w.Write(res.Value)
		})
	},
}

var commentsCmd = &cobra.Command{
	Use:   "comments <id>",
	Short: "Fetch a page of a post's comments",
	Long: `Fetch one page of a post's approved comments. A page past the last
one prints an empty list.

Examples:
  froid comments 12355
  froid comments 12355 --page 3 --per-page 50 --order asc`,
	Args: exactArgs(1),
	RunE: runComments,
}

func init() {
	rootCmd.AddCommand(postCmd, statsCmd, commentsCmd)

	flags := commentsCmd.Flags()
	flags.Int("page", 1, "comment page")
	flags.Int("per-page", 10, "comments per page, max 100")
	flags.String("search", "", "only comments containing this text (min 3 characters)")
	flags.String("order", "", "sort direction: asc, desc")
	flags.String("order-by", "", "sort field: date, date_gmt, id")
}

func runComments(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	page, _ := flags.GetInt("page")
	perPage, _ := flags.GetInt("per-page")
	search, _ := flags.GetString("search")
	order, _ := flags.GetString("order")
	orderBy, _ := flags.GetString("order-by")

	opts := []froid.CommentOption{
		froid.WithCommentsPerPage(perPage),
		froid.WithCommentSearch(search),
		froid.WithOrder(order),
		froid.WithOrderBy(orderBy),
	}

	return call(cmd, func(ctx context.Context, b cache.Backend, w output.Writer) error {
		res, err := b.FetchComments(ctx, args[0], page, opts...)
		if err != nil {
			return err
		}
		report("comments", res.Outcome, res.Diagnostics)
		return w.WriteAll(output.Items(res.Value))
	})
}
