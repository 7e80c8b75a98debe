package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/launchlist/internal/render"
	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/Sternrassler/launchlist/pkg/pagination"
	"github.com/spf13/cobra"
)

func newExportCommand(a *app) *cobra.Command {
	var flags struct {
		out    string
		format string
	}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch every launch and write them out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			cfg := pagination.DefaultConfig()
			cfg.MaxConcurrency = a.cfg.Export.Concurrency
			cfg.PageSize = feed.PageSize
			cfg.Timeout = a.cfg.API.Timeout

			launches, err := pagination.NewBatchFetcher(c, cfg).FetchAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("exporting launches: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if flags.out != "" && flags.out != "-" {
				f, err := os.Create(flags.out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", flags.out, err)
				}
				defer f.Close()
				w = f
			}

			r := render.New(w, render.Options{Colors: false})
			if err := r.Write(format, launches); err != nil {
				return fmt.Errorf("writing launches: %w", err)
			}

			a.logger.Info().
				Int("launches", len(launches)).
				Str("out", flags.out).
				Msg("Export complete")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.out, "out", "o", "", "output file (default: stdout)")
	f.StringVarP(&flags.format, "format", "f", "json", "output format (cards, table, json)")
	f.Int("concurrency", 4, "parallel page requests per wave")
	_ = a.v.BindPFlag("export.concurrency", f.Lookup("concurrency"))

	return cmd
}
