package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/api2xlsx/internal/config"
	"github.com/Sternrassler/api2xlsx/pkg/cache"
	"github.com/Sternrassler/api2xlsx/pkg/client"
	"github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/normalize"
	"github.com/Sternrassler/api2xlsx/pkg/pipeline"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via -ldflags.
var version = "dev"

// flagKeys maps command-line flags onto config keys. A flag only takes
// effect on commands that define it.
var flagKeys = map[string]string{
	"url":         "url",
	"auth":        "auth.mode",
	"username":    "auth.username",
	"password":    "auth.password",
	"token":       "auth.token",
	"key-name":    "auth.key_name",
	"key-value":   "auth.key_value",
	"out":         "output",
	"preview":     "preview",
	"user-agent":  "user_agent",
	"timeout":     "http.timeout",
	"rate":        "http.rate",
	"max-pages":   "pagination.max_pages",
	"max-elapsed": "pagination.max_elapsed",
	"separator":   "normalize.separator",
	"redis":       "cache.redis_addr",
	"cache-ttl":   "cache.default_ttl",
	"addr":        "server.addr",
	"log-level":   "log.level",
	"log-pretty":  "log.pretty",
}

// app carries the loaded configuration between cobra hooks.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "api2xlsx",
		Short: "Fetch JSON from an HTTP API and export it as an Excel workbook",
		Long: `api2xlsx fetches a JSON document from an HTTP endpoint, follows
"results"/"next" pagination, flattens the records into a table and writes
them to a single-sheet .xlsx workbook.

Settings come from flags, API2XLSX_* environment variables and an optional
YAML or TOML config file.

Examples:
  api2xlsx export --url https://jsonplaceholder.typicode.com/posts
  api2xlsx export --url https://api.example.com/items --auth bearer --token $TOKEN
  api2xlsx serve --addr :8080
  api2xlsx inspect dados_api.xlsx`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml or toml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-pretty", false, "human-readable log output")

	root.AddCommand(
		a.newExportCmd(),
		a.newServeCmd(),
		newInspectCmd(),
		newVersionCmd(),
	)
	return root
}

// load binds the flags of the running command, reads the configuration and
// sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logCfg := cfg.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logCfg.Version = version
	if _, err := logging.Setup(logCfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// newPipeline wires the fetcher, optional Redis cache, normalizer and
// exporter. The returned func releases the Redis connection.
func (a *app) newPipeline(ctx context.Context) (*pipeline.Pipeline, *cache.Manager, func(), error) {
	var cm *cache.Manager
	closeFn := func() {}

	if addr := a.cfg.Cache.RedisAddr; addr != "" {
		rc := redis.NewClient(&redis.Options{Addr: addr, DB: a.cfg.Cache.RedisDB})
		if err := rc.Ping(ctx).Err(); err != nil {
			rc.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
		}
		cm = cache.NewManager(rc)
		closeFn = func() { rc.Close() }
	}

	c, err := client.New(a.cfg.ClientConfig(cm))
	if err != nil {
		closeFn()
		return nil, nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	p := pipeline.New(c, normalize.New(a.cfg.NormalizeOptions()), export.New())
	return p, cm, closeFn, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "api2xlsx %s\n", version)
		},
	}
}
