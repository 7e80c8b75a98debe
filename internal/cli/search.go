package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/launchlist/internal/render"
	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/spf13/cobra"
)

func newSearchCommand(a *app) *cobra.Command {
	var flags struct {
		pages  int
		format string
	}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Load pages of launches and filter them by mission name",
		Long: `search loads up to --pages pages (stopping early at the last page) and
prints the launches whose mission name contains the query, ignoring case.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			if flags.pages < 1 {
				return fmt.Errorf("invalid --pages %d: must be at least 1", flags.pages)
			}
			query := strings.Join(args, " ")
			if feed.NormalizeQuery(query) == "" {
				return errors.New("query must not be empty")
			}

			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			coord := feed.New(c, a.cfg.FeedOptions(nil))
			defer coord.Close()

			ctx := cmd.Context()
			if err := coord.LoadInitial(ctx); err != nil {
				return fmt.Errorf("%s: %w", feed.ErrorMessage, err)
			}
			for i := 1; i < flags.pages; i++ {
				fetched, err := coord.LoadNext(ctx)
				if err != nil {
					return fmt.Errorf("%s: %w", feed.ErrorMessage, err)
				}
				if !fetched {
					break
				}
			}

			if err := coord.ApplyQuery(ctx, query); err != nil {
				return err
			}
			snap := coord.Snapshot()

			out := cmd.OutOrStdout()
			if snap.NoResults && format != render.FormatJSON {
				fmt.Fprintln(out, render.NoResultsText)
				return nil
			}
			return a.renderer(out).Write(format, snap.Items)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.pages, "pages", 5, "maximum number of pages to load before filtering")
	f.StringVarP(&flags.format, "format", "f", "cards", "output format (cards, table, json)")

	return cmd
}
