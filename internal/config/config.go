// Package config loads api2xlsx settings from defaults, an optional config
// file, API2XLSX_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/cache"
	"github.com/Sternrassler/api2xlsx/pkg/client"
	"github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/normalize"
	"github.com/Sternrassler/api2xlsx/pkg/pagination"
	"github.com/Sternrassler/api2xlsx/pkg/preview"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. API2XLSX_HTTP_TIMEOUT.
const EnvPrefix = "API2XLSX"

// DefaultURL is the endpoint used when none is configured.
const DefaultURL = "https://jsonplaceholder.typicode.com/posts"

// Config is the complete runtime configuration.
type Config struct {
	URL        string       `mapstructure:"url"`
	Auth       auth.Fields  `mapstructure:"auth"`
	Output     string       `mapstructure:"output"`
	Preview    int          `mapstructure:"preview"`
	UserAgent  string       `mapstructure:"user_agent"`
	HTTP       HTTPConfig   `mapstructure:"http"`
	Pagination PageConfig   `mapstructure:"pagination"`
	Normalize  NormConfig   `mapstructure:"normalize"`
	Cache      CacheConfig  `mapstructure:"cache"`
	Server     ServerConfig `mapstructure:"server"`
	Log        LogConfig    `mapstructure:"log"`
}

// HTTPConfig controls the fetcher.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Rate         float64       `mapstructure:"rate"`
	Burst        int           `mapstructure:"burst"`
}

// PageConfig bounds pagination.
type PageConfig struct {
	MaxPages   int           `mapstructure:"max_pages"`
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// NormConfig controls flattening.
type NormConfig struct {
	Separator string `mapstructure:"separator"`
	MaxDepth  int    `mapstructure:"max_depth"`
}

// CacheConfig enables the Redis response cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// ServerConfig configures `api2xlsx serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SetDefaults registers the default of every key. Keys without a default
// are not picked up from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("url", DefaultURL)
	v.SetDefault("auth.mode", string(auth.ModeNone))
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.key_name", auth.DefaultKeyName)
	v.SetDefault("auth.key_value", "")
	v.SetDefault("output", export.DefaultFileName)
	v.SetDefault("preview", preview.DefaultRows)
	v.SetDefault("user_agent", "api2xlsx/0.1.0")

	clientDefaults := client.DefaultConfig("")
	v.SetDefault("http.timeout", clientDefaults.RequestTimeout)
	v.SetDefault("http.max_body_bytes", clientDefaults.MaxBodyBytes)
	v.SetDefault("http.rate", 0.0)
	v.SetDefault("http.burst", clientDefaults.RateBurst)

	pageDefaults := pagination.DefaultConfig()
	v.SetDefault("pagination.max_pages", pageDefaults.MaxPages)
	v.SetDefault("pagination.max_elapsed", pageDefaults.MaxElapsed)

	v.SetDefault("normalize.separator", normalize.DefaultSeparator)
	v.SetDefault("normalize.max_depth", normalize.DefaultMaxDepth)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.default_ttl", time.Duration(0))

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the optional config file (YAML, TOML or JSON by extension)
// into v and unmarshals the merged result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Credentials builds the credential bundle from the auth section.
func (c *Config) Credentials() (auth.Credentials, error) {
	return auth.FromFields(c.Auth)
}

// ClientConfig maps the settings onto a fetcher configuration. cm may be nil.
func (c *Config) ClientConfig(cm *cache.Manager) client.Config {
	cfg := client.DefaultConfig(c.UserAgent)
	cfg.RequestTimeout = c.HTTP.Timeout
	cfg.MaxBodyBytes = c.HTTP.MaxBodyBytes
	cfg.RateLimit = c.HTTP.Rate
	cfg.RateBurst = c.HTTP.Burst
	cfg.Cache = cm
	cfg.CacheDefaultTTL = c.Cache.DefaultTTL
	cfg.Pagination = pagination.Config{
		MaxPages:   c.Pagination.MaxPages,
		MaxElapsed: c.Pagination.MaxElapsed,
	}
	return cfg
}

// NormalizeOptions maps the settings onto normalizer options.
func (c *Config) NormalizeOptions() normalize.Options {
	opts := normalize.DefaultOptions()
	opts.Separator = c.Normalize.Separator
	opts.MaxDepth = c.Normalize.MaxDepth
	return opts
}

// LoggingConfig maps the settings onto the logger setup.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
	}
}
