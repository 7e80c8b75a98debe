package cli

import (
	"fmt"

	"github.com/Sternrassler/launchlist/internal/render"
	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/Sternrassler/launchlist/pkg/pagination"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	var flags struct {
		page   int
		format string
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of launches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			if flags.page < 1 {
				return fmt.Errorf("invalid page %d: pages start at 1", flags.page)
			}

			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			offset := pagination.OffsetFor(flags.page, feed.PageSize)
			launches, err := c.FetchPage(cmd.Context(), offset, feed.PageSize)
			if err != nil {
				return fmt.Errorf("fetching page %d: %w", flags.page, err)
			}

			r := a.renderer(cmd.OutOrStdout())
			if err := r.Write(format, launches); err != nil {
				return err
			}
			if format == render.FormatCards && !pagination.HasMore(len(launches), feed.PageSize) {
				fmt.Fprintln(cmd.OutOrStdout(), render.NoMoreText)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.page, "page", 1, "page number (10 launches per page)")
	f.StringVarP(&flags.format, "format", "f", "cards", "output format (cards, table, json)")

	return cmd
}
