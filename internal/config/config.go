// Package config provides Viper-based configuration management for launchlist
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/launchlist/pkg/client"
	"github.com/Sternrassler/launchlist/pkg/feed"
	"github.com/Sternrassler/launchlist/pkg/logging"
	"github.com/Sternrassler/launchlist/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. LAUNCHLIST_API_BASE_URL.
const EnvPrefix = "LAUNCHLIST"

// DefaultUserAgent identifies the client to the API.
const DefaultUserAgent = "launchlist/dev (+https://github.com/Sternrassler/launchlist)"

// Config represents the complete launchlist configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Search  SearchConfig  `mapstructure:"search"`
	Display DisplayConfig `mapstructure:"display"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Export  ExportConfig  `mapstructure:"export"`
}

// APIConfig contains upstream API settings
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
}

// RedisConfig enables the response cache when Addr is set
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// SearchConfig contains search input settings
type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DisplayConfig contains list presentation settings
type DisplayConfig struct {
	Order string `mapstructure:"order"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// ServeConfig contains proxy settings
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// ExportConfig contains bulk export settings
type ExportConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// NewViper returns a viper instance with defaults and environment lookup.
// Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the config file (if any) into v and returns the validated
// configuration. An empty cfgFile searches for .launchlist.yaml in the
// working directory and $HOME/.config/launchlist.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".launchlist")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/launchlist")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	retry := client.DefaultRetryConfig()

	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.user_agent", DefaultUserAgent)
	v.SetDefault("api.max_attempts", retry.MaxAttempts)
	v.SetDefault("api.rate_limit", 5.0)
	v.SetDefault("api.burst", 2)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("search.debounce", feed.DefaultDebounce)
	v.SetDefault("display.order", string(feed.OrderOldestFirst))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)

	v.SetDefault("output.colors", true)

	v.SetDefault("serve.addr", ":8080")

	v.SetDefault("export.concurrency", pagination.DefaultConfig().MaxConcurrency)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q (must be an absolute http(s) URL)", cfg.API.BaseURL)
	}
	if cfg.API.UserAgent == "" {
		return errors.New("api.user_agent must not be empty")
	}
	if cfg.API.MaxAttempts < 1 {
		return fmt.Errorf("invalid api.max_attempts: %d (must be at least 1)", cfg.API.MaxAttempts)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout: %s", cfg.API.Timeout)
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("invalid api.rate_limit: %v (0 disables pacing)", cfg.API.RateLimit)
	}
	if cfg.Search.Debounce < 0 {
		return fmt.Errorf("invalid search.debounce: %s", cfg.Search.Debounce)
	}
	if _, err := feed.ParseOrder(cfg.Display.Order); err != nil {
		return fmt.Errorf("invalid display.order: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if cfg.Export.Concurrency < 1 {
		return fmt.Errorf("invalid export.concurrency: %d (must be at least 1)", cfg.Export.Concurrency)
	}
	return nil
}

// RedisClient returns a client for the configured cache, or nil when no
// address is set.
func (c *Config) RedisClient() *redis.Client {
	if c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		DB:       c.Redis.DB,
		Password: c.Redis.Password,
	})
}

// ClientConfig maps the API section onto a client configuration.
func (c *Config) ClientConfig(rdb *redis.Client) client.Config {
	cc := client.DefaultConfig(rdb, c.API.UserAgent)
	cc.BaseURL = c.API.BaseURL
	cc.Timeout = c.API.Timeout
	cc.MaxAttempts = c.API.MaxAttempts
	cc.RateLimit = c.API.RateLimit
	if c.API.Burst > 0 {
		cc.Burst = c.API.Burst
	}
	return cc
}

// FeedOptions maps the search and display sections onto coordinator options.
func (c *Config) FeedOptions(logger *zerolog.Logger) feed.Options {
	order, _ := feed.ParseOrder(c.Display.Order)
	return feed.Options{
		Debounce: c.Search.Debounce,
		Order:    order,
		Logger:   logger,
	}
}

// LoggingSetup maps the logging section onto a logger configuration.
func (c *Config) LoggingSetup() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Pretty = c.Logging.Pretty
	lc.NoColor = !c.Output.Colors
	return lc
}
