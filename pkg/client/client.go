// Package client provides the HTTP fetcher that retrieves JSON from an API
// endpoint with one of the supported credential modes, optional request
// pacing and an optional response cache.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/cache"
	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	"github.com/Sternrassler/api2xlsx/pkg/pagination"
	"github.com/Sternrassler/api2xlsx/pkg/payload"
	"github.com/Sternrassler/api2xlsx/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "api2xlsx_requests_total",
		Help: "Total API requests by status",
	}, []string{"status"})

	requestDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "api2xlsx_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	fetchErrorsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "api2xlsx_fetch_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassRequest represents a URL or request that could not be built.
	ErrorClassRequest ErrorClass = "request"

	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents unreadable or non-JSON bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// Client fetches and decodes JSON documents.
type Client struct {
	httpClient *http.Client
	pacer      *ratelimit.Pacer
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request
	UserAgent string

	// RequestTimeout bounds every single HTTP call
	RequestTimeout time.Duration

	// MaxBodyBytes rejects responses larger than this
	MaxBodyBytes int64

	// Pacing: requests per second (0 disables) and burst
	RateLimit float64
	RateBurst int

	// Cache is optional; nil disables response caching
	Cache *cache.Manager

	// CacheDefaultTTL applies to responses without freshness headers (0 = don't cache them)
	CacheDefaultTTL time.Duration

	// Pagination bounds used by FetchAll
	Pagination pagination.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:      userAgent,
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   64 << 20,
		RateBurst:      1,
		Pagination:     pagination.DefaultConfig(),
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %g)", cfg.RateLimit)
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig(cfg.UserAgent).MaxBodyBytes
	}

	logger := logging.NewLogger("api-client")

	pacer := ratelimit.NewPacer(cfg.RateLimit, cfg.RateBurst, logger)
	if pacer != nil {
		logger.Debug().Float64("rate", pacer.Limit()).Int("burst", cfg.RateBurst).Msg("Request pacing enabled")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		pacer:  pacer,
		cache:  cfg.Cache,
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch performs one authenticated GET and decodes the body. Envelopes are
// returned as-is with Envelope.Source set to rawURL; use FetchAll to follow
// their next links.
func (c *Client) Fetch(ctx context.Context, rawURL string, creds auth.Credentials) (payload.Payload, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = stripQuery(ue.URL)
		}
		return payload.Payload{}, c.fail(&FetchError{URL: stripQuery(rawURL), Class: ErrorClassRequest, Message: "invalid url", Err: err})
	}
	safeURL := redactURL(u, creds)

	// Cache lookup
	var cacheKey cache.CacheKey
	var cached *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.NewKey(u, creds)
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("url", safeURL).Dur("ttl", entry.TTL()).Msg("Serving from cache")
			requestsTotal.WithLabelValues("cache").Inc()
			return c.decode(entry.Data, rawURL, safeURL)
		case err == nil:
			cached = entry
			c.logger.Debug().Str("url", safeURL).Str("etag", cached.ETag).Msg("Revalidating stale cache entry")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", safeURL).Msg("Cache get error")
		}
	}

	// Pacing happens on the caller's context; RequestTimeout covers the call only.
	if err := c.pacer.Wait(ctx); err != nil {
		return payload.Payload{}, c.fail(&FetchError{URL: safeURL, Class: ErrorClassNetwork, Message: "pacing interrupted", Err: err})
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return payload.Payload{}, c.fail(&FetchError{URL: safeURL, Class: ErrorClassRequest, Message: "create request", Err: err})
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	creds.Apply(req)
	if cached != nil {
		cached.AddConditionalHeaders(req)
	}

	c.logger.Debug().
		Str("url", safeURL).
		Str("auth", string(creds.Mode())).
		Msg("Executing request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		// *url.Error prints the request URL, which carries the API key.
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = safeURL
		}
		return payload.Payload{}, c.fail(&FetchError{URL: safeURL, Class: c.classifyError(nil, err), Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.Revalidations.WithLabelValues("not_modified").Inc()
		if cache.Refresh(cached, resp.Header, c.config.CacheDefaultTTL) {
			if err := c.cache.Set(ctx, cacheKey, cached); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			}
		}
		c.logger.Debug().Str("url", safeURL).Msg("304 Not Modified - using cache")
		return c.decode(cached.Data, rawURL, safeURL)
	}
	if cached != nil {
		cache.Revalidations.WithLabelValues("modified").Inc()
	}

	body, err := c.readBody(resp)
	if err != nil {
		return payload.Payload{}, c.fail(&FetchError{URL: safeURL, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "read body", Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return payload.Payload{}, c.fail(&FetchError{
			URL:        safeURL,
			StatusCode: resp.StatusCode,
			Class:      c.classifyError(resp, nil),
			Message:    resp.Status,
			Body:       snippet(body),
		})
	}

	p, err := c.decode(body, rawURL, safeURL)
	if err != nil {
		return payload.Payload{}, err
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		if entry, ok := cache.ResponseToEntry(resp, body, c.config.CacheDefaultTTL); ok {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().Str("url", safeURL).Dur("ttl", entry.TTL()).Msg("Cached response")
			}
		}
	}

	c.logger.Info().
		Str("url", safeURL).
		Int("status", resp.StatusCode).
		Str("shape", string(p.Kind)).
		Int("records", p.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Fetched")

	return p, nil
}

// FetchAll fetches rawURL and, when the response is a paginated envelope,
// follows its next links with the same credentials. The accumulated items
// are returned as a list payload. Pagination failures after the first page
// are reported in the returned Result, not as an error.
func (c *Client) FetchAll(ctx context.Context, rawURL string, creds auth.Credentials) (payload.Payload, pagination.Result, error) {
	first, err := c.Fetch(ctx, rawURL, creds)
	if err != nil {
		return payload.Payload{}, pagination.Result{}, err
	}

	if first.Kind != payload.KindEnvelope {
		return first, pagination.Result{Pages: 1, Stop: pagination.StopComplete}, nil
	}

	result := pagination.NewFollower(c, c.config.Pagination).Follow(ctx, first.Envelope, creds)
	return payload.FromItems(result.Items), result, nil
}

func (c *Client) decode(body []byte, rawURL, safeURL string) (payload.Payload, error) {
	p, err := payload.Decode(body)
	if err != nil {
		return payload.Payload{}, c.fail(&FetchError{URL: safeURL, Class: ErrorClassDecode, Message: "invalid json", Err: err})
	}
	if p.Kind == payload.KindEnvelope {
		p.Envelope.Source = rawURL
	}
	return p, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", c.config.MaxBodyBytes)
	}
	return body, nil
}

// fail records and logs a fetch error before handing it back.
func (c *Client) fail(err *FetchError) error {
	fetchErrorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Warn().
		Str("url", err.URL).
		Int("status", err.StatusCode).
		Str("error_class", string(err.Class)).
		Err(err.Err).
		Msg(err.Message)
	return err
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx and 3xx that the transport did not follow
		return ErrorClassClient
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// redactURL renders u with the API key value masked.
func redactURL(u *url.URL, creds auth.Credentials) string {
	param := creds.SecretParam()
	if param == "" {
		return u.String()
	}
	q := u.Query()
	if q.Has(param) {
		q.Set(param, "***")
	}
	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}

// stripQuery drops the query of a URL that could not be parsed, so a
// secret parameter never reaches an error message.
func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i] + "?..."
	}
	return rawURL
}

func snippet(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
