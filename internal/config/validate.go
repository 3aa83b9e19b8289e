package config

import (
	"fmt"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/logging"
)

// Validate checks that the configuration is usable. Credentials are only
// checked for a known mode here; missing credential fields are reported
// when a run starts.
func (c *Config) Validate() error {
	if _, err := auth.ParseMode(c.Auth.Mode); err != nil {
		return err
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0, got %d", c.HTTP.MaxBodyBytes)
	}
	// 0 disables pacing
	if c.HTTP.Rate < 0 {
		return fmt.Errorf("http.rate must be >= 0, got %g", c.HTTP.Rate)
	}
	if c.HTTP.Burst < 1 {
		return fmt.Errorf("http.burst must be >= 1, got %d", c.HTTP.Burst)
	}

	// 0 = use default
	if c.Pagination.MaxPages < 0 {
		return fmt.Errorf("pagination.max_pages must be >= 0, got %d", c.Pagination.MaxPages)
	}
	if c.Pagination.MaxElapsed < 0 {
		return fmt.Errorf("pagination.max_elapsed must be >= 0, got %s", c.Pagination.MaxElapsed)
	}

	if c.Normalize.MaxDepth < 0 {
		return fmt.Errorf("normalize.max_depth must be >= 0, got %d", c.Normalize.MaxDepth)
	}
	if c.Preview < 0 {
		return fmt.Errorf("preview must be >= 0, got %d", c.Preview)
	}

	if c.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache.default_ttl must be >= 0, got %s", c.Cache.DefaultTTL)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
