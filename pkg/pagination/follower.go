package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	"github.com/Sternrassler/api2xlsx/pkg/payload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "api2xlsx_pages_fetched_total",
		Help: "Total number of follow-up pages fetched",
	})

	paginationStopsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "api2xlsx_pagination_stops_total",
		Help: "Pagination walks by stop reason",
	}, []string{"reason"})
)

// ErrNotEnvelope is returned when a follow-up page is not a JSON object.
var ErrNotEnvelope = errors.New("page is not a paginated envelope")

// StopReason tells why a walk ended.
type StopReason string

const (
	StopComplete  StopReason = "complete"
	StopPageLimit StopReason = "page_limit"
	StopTimeLimit StopReason = "time_limit"
	StopCycle     StopReason = "cycle"
	StopError     StopReason = "error"
)

// Config holds follower configuration.
type Config struct {
	// MaxPages bounds the walk, the first page included.
	MaxPages int
	// MaxElapsed bounds the wall time spent following links.
	MaxElapsed time.Duration
}

// DefaultConfig returns the default bounds.
func DefaultConfig() Config {
	return Config{
		MaxPages:   1000,
		MaxElapsed: 5 * time.Minute,
	}
}

// PageFetcher fetches and decodes a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, creds auth.Credentials) (payload.Payload, error)
}

// Result is the outcome of a walk.
type Result struct {
	// Items are all accumulated results in page order.
	Items []any
	// Pages is the number of pages consumed, the first page included.
	Pages int
	Stop  StopReason
	// Err is set when Stop is StopError.
	Err error
}

// Partial reports whether the walk ended before the last page.
func (r Result) Partial() bool {
	return r.Stop != StopComplete
}

// Follower walks next links.
type Follower struct {
	fetcher PageFetcher
	config  Config
}

// NewFollower creates a follower. Zero config fields take their defaults.
func NewFollower(fetcher PageFetcher, config Config) *Follower {
	defaults := DefaultConfig()
	if config.MaxPages <= 0 {
		config.MaxPages = defaults.MaxPages
	}
	if config.MaxElapsed <= 0 {
		config.MaxElapsed = defaults.MaxElapsed
	}

	return &Follower{
		fetcher: fetcher,
		config:  config,
	}
}

// Follow accumulates first.Results and then the results of every page
// reachable through next links. It never returns fewer items than the
// first page carried.
func (f *Follower) Follow(ctx context.Context, first *payload.Envelope, creds auth.Credentials) Result {
	start := time.Now()

	result := Result{
		Items: append([]any(nil), first.Results...),
		Pages: 1,
		Stop:  StopComplete,
	}

	visited := make(map[string]bool)
	if first.Source != "" {
		visited[first.Source] = true
	}

	base, next := first.Source, first.Next
	for next != "" {
		if result.Pages >= f.config.MaxPages {
			result.Stop = StopPageLimit
			break
		}
		if time.Since(start) >= f.config.MaxElapsed {
			result.Stop = StopTimeLimit
			break
		}

		target, err := resolve(base, next)
		if err != nil {
			result.Stop, result.Err = StopError, err
			break
		}
		if visited[target] {
			result.Stop = StopCycle
			break
		}
		visited[target] = true

		if err := ctx.Err(); err != nil {
			result.Stop, result.Err = StopError, err
			break
		}

		page, err := f.fetcher.Fetch(ctx, target, creds)
		if err != nil {
			result.Stop, result.Err = StopError, err
			break
		}

		items, pageNext, err := unwrapPage(page)
		if err != nil {
			result.Stop, result.Err = StopError, fmt.Errorf("page %d (%s): %w", result.Pages+1, target, err)
			break
		}

		pagesFetchedTotal.Inc()
		result.Items = append(result.Items, items...)
		result.Pages++
		base, next = target, pageNext

		log.Debug().
			Int("page", result.Pages).
			Int("items", len(items)).
			Bool("has_next", next != "").
			Msg("Page fetched")
	}

	paginationStopsTotal.WithLabelValues(string(result.Stop)).Inc()

	event := log.Info()
	if result.Partial() {
		event = log.Warn().Err(result.Err)
	}
	event.
		Int("pages", result.Pages).
		Int("items", len(result.Items)).
		Str("stop", string(result.Stop)).
		Dur("duration", time.Since(start)).
		Msg("Pagination finished")

	return result
}

// unwrapPage extracts results and the next link from a follow-up page.
// A missing "results" key counts as an empty page.
func unwrapPage(page payload.Payload) ([]any, string, error) {
	switch page.Kind {
	case payload.KindEnvelope:
		return page.Envelope.Results, page.Envelope.Next, nil
	case payload.KindObject:
		next := ""
		if v, ok := page.Object.Get(payload.NextKey); ok {
			if s, ok := v.(string); ok {
				next = s
			}
		}
		return nil, next, nil
	case payload.KindEmpty:
		return nil, "", nil
	default:
		return nil, "", fmt.Errorf("%w: got %s", ErrNotEnvelope, page.Kind)
	}
}

// resolve turns a relative next link into an absolute URL against base.
// Without an absolute base the link is used as given.
func resolve(base, next string) (string, error) {
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", next, err)
	}
	if base == "" || ref.IsAbs() {
		return ref.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse page url %q: %w", base, err)
	}
	if !baseURL.IsAbs() {
		return ref.String(), nil
	}
	return baseURL.ResolveReference(ref).String(), nil
}
