package cli

import (
	"github.com/Sternrassler/launchlist/internal/proxy"
	"github.com/Sternrassler/launchlist/pkg/logging"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a caching proxy for the launch collection",
		Long: `serve exposes GET /v3/launches?limit=&offset= through the rate limited,
caching client, plus /health, /ready, /status and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			logger := logging.NewLogger("proxy")
			router := proxy.NewRouter(c, proxy.Options{
				RequestTimeout: a.cfg.API.Timeout * 2,
				Logger:         logger,
			})

			logger.Info().
				Str("upstream", a.cfg.API.BaseURL).
				Str("user_agent", a.cfg.API.UserAgent).
				Msg("Proxy configured")

			return proxy.NewServer(a.cfg.Serve.Addr, router, logger).Run(cmd.Context())
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = a.v.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
