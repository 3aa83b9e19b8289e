// Package ratelimit paces outgoing requests so that following a long chain
// of pages does not hammer the upstream API.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	pacerThrottlesTotal = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "api2xlsx_pacer_throttles_total",
		Help: "Total number of requests delayed by the pacer",
	})

	pacerWaitSeconds = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "api2xlsx_pacer_wait_seconds",
		Help:    "Time requests spent waiting for the pacer",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Pacer gates requests to a steady rate. A nil *Pacer never blocks.
type Pacer struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewPacer creates a pacer allowing perSecond requests with the given burst.
// It returns nil when perSecond <= 0, which disables pacing.
func NewPacer(perSecond float64, burst int, logger zerolog.Logger) *Pacer {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}

	r := p.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("pacer: burst exceeds limiter capacity")
	}

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	pacerThrottlesTotal.Inc()
	pacerWaitSeconds.Observe(delay.Seconds())
	p.logger.Debug().Dur("delay", delay).Msg("Pacing request")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return fmt.Errorf("pacer wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Limit returns the configured rate, or 0 for a disabled pacer.
func (p *Pacer) Limit() float64 {
	if p == nil {
		return 0
	}
	return float64(p.limiter.Limit())
}
