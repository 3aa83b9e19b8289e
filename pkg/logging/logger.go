// Package logging sets up the zerolog logger shared by every api2xlsx
// component and derives per-component and per-run child loggers from it.
//
// Command output (previews, summaries) goes to stdout, so logs default to
// stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Levels lists the accepted level names, most verbose first.
var Levels = []string{"debug", "info", "warn", "error"}

// Config selects level and format of the log output.
type Config struct {
	// Level is one of Levels; "warning" is accepted for warn and "" means info.
	Level string

	// Pretty switches from JSON lines to zerolog's console format.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Version is attached to every event when set.
	Version string
}

// ParseLevel maps a level name to its zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q, want one of %s", name, strings.Join(Levels, ", "))
	}
}

// Setup installs the global logger every component logger derives from.
func Setup(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(out).With().Timestamp().Str("app", "api2xlsx")
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}
	log.Logger = ctx.Logger()

	return log.Logger, nil
}

// NewLogger returns a child of the global logger tagged with component.
// Call it after Setup; loggers created earlier keep the old output.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForRun is NewLogger plus the run_id of one export run.
func ForRun(component, runID string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Str("run_id", runID).
		Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit, stale revalidation, TTL)
//   - Request flow (conditional requests, pacing delays)
//   - Pagination steps and normalization shape
//
// Info: Normal operation events
//   - Successful fetches (status, shape, record count)
//   - Records collected and workbook exported
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Pagination stopped early (partial data)
//   - Nothing to export
//   - Failed fetches and validation errors
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Failed runs (fetch, normalize or export stage)
//   - Export I/O failures
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package
//   - run_id: UUID of one export run
//   - url: request URL with API key values masked
//   - status: HTTP status code
//   - duration: request or run duration
//   - error_class: fetch error class (request, client, server, network, decode)
//   - pages: pages fetched during pagination
//   - rows: normalized or exported row count
//   - stop: pagination stop reason
