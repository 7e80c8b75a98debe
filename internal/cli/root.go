// Package cli contains all commands of the launchlist binary
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/Sternrassler/launchlist/internal/config"
	"github.com/Sternrassler/launchlist/internal/render"
	"github.com/Sternrassler/launchlist/pkg/client"
	"github.com/Sternrassler/launchlist/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via -ldflags.
var version = "dev"

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// app carries the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "launchlist",
		Short: "Browse and search SpaceX launches in the terminal",
		Long: `launchlist pages through the SpaceX launch API, lazily loading more
launches as you scroll and filtering everything loaded so far by mission name.

Example usage:
  launchlist browse                  # Interactive list with search
  launchlist list --page 2           # Print one page
  launchlist search starlink         # Load pages and filter by mission name
  launchlist export --out all.json   # Fetch every launch
  launchlist serve                   # Caching proxy with /metrics`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.ErrOrStderr())
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is .launchlist.yaml)")
	f.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	f.String("base-url", client.DefaultBaseURL, "launch API base URL")
	f.String("redis", "", "Redis address for the response cache (empty disables caching)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("order", "oldest-first", "display order (oldest-first, newest-first)")

	_ = a.v.BindPFlag("api.base_url", f.Lookup("base-url"))
	_ = a.v.BindPFlag("redis.addr", f.Lookup("redis"))
	_ = a.v.BindPFlag("logging.level", f.Lookup("log-level"))
	_ = a.v.BindPFlag("display.order", f.Lookup("order"))

	rootCmd.AddCommand(
		newBrowseCommand(a),
		newListCommand(a),
		newSearchCommand(a),
		newExportCommand(a),
		newServeCommand(a),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// initConfig loads the configuration and sets up logging.
func (a *app) initConfig(stderr io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	lc := cfg.LoggingSetup()
	lc.Output = stderr
	if a.noColor {
		lc.NoColor = true
	}
	logging.Setup(lc)
	a.logger = logging.NewLogger("cli")

	a.logger.Debug().
		Str("base_url", cfg.API.BaseURL).
		Bool("cache", cfg.Redis.Addr != "").
		Str("order", cfg.Display.Order).
		Msg("Configuration loaded")

	return nil
}

// newClient builds the API client. The returned cleanup closes it and the
// Redis connection, if any.
func (a *app) newClient() (*client.Client, func(), error) {
	var rdb *redis.Client
	if rdb = a.cfg.RedisClient(); rdb != nil {
		a.logger.Debug().Str("addr", a.cfg.Redis.Addr).Msg("Response cache enabled")
	}

	c, err := client.New(a.cfg.ClientConfig(rdb))
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, fmt.Errorf("creating client: %w", err)
	}

	cleanup := func() {
		c.Close()
		if rdb != nil {
			rdb.Close()
		}
	}
	return c, cleanup, nil
}

func (a *app) renderer(w io.Writer) *render.Renderer {
	return render.New(w, render.Options{
		Colors: render.ResolveColors(a.noColor, a.cfg.Output.Colors),
	})
}
