package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/cache"
	"github.com/Sternrassler/api2xlsx/pkg/client"
	"github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	"github.com/Sternrassler/api2xlsx/pkg/pipeline"
	"github.com/spf13/cobra"
)

// maxRequestBody bounds POST /export bodies.
const maxRequestBody = 1 << 20

// exportRequest is the JSON body of POST /export.
type exportRequest struct {
	URL  string      `json:"url"`
	Auth auth.Fields `json:"auth"`
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve exports over HTTP",
		Long: `Start an HTTP server exposing:

  GET  /health   liveness
  GET  /ready    readiness (pings Redis when the cache is enabled)
  GET  /metrics  Prometheus metrics
  POST /export   {"url": "...", "auth": {"mode": "bearer", "token": "..."}}
                 returns the workbook as an attachment`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("user-agent", "", "User-Agent header")
	f.Duration("timeout", 0, "per-request timeout (default 30s)")
	f.Float64("rate", 0, "max requests per second while paginating (0 = unlimited)")
	f.Int("max-pages", 0, "max pages to follow (default 1000)")
	f.Duration("max-elapsed", 0, "max time spent paginating (default 5m)")
	f.String("redis", "", "Redis address for the response cache (empty disables)")
	f.Duration("cache-ttl", 0, "cache TTL for responses without freshness headers")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.NewLogger("server")

	p, cm, closeFn, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	runTimeout := a.cfg.Pagination.MaxElapsed + a.cfg.HTTP.Timeout
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           newMux(p, cm, runTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(p *pipeline.Pipeline, cm *cache.Manager, runTimeout time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(cm))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /export", exportHandler(p, runTimeout))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cm != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cm.Ping(ctx); err != nil {
				http.Error(w, fmt.Sprintf("cache unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func exportHandler(p *pipeline.Pipeline, runTimeout time.Duration) http.HandlerFunc {
	logger := logging.NewLogger("server")

	return func(w http.ResponseWriter, r *http.Request) {
		var body exportRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}

		creds, err := auth.FromFields(body.Auth)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx := r.Context()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		var buf bytes.Buffer
		res, err := p.RunToWriter(ctx, pipeline.Request{URL: body.URL, Credentials: creds}, &buf)
		if err != nil {
			status := statusFor(err)
			logger.Warn().Err(err).Int("status", status).Msg("Export request failed")
			writeError(w, status, err)
			return
		}

		w.Header().Set("Content-Type", export.MIMEType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFileName))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Header().Set("X-Run-ID", res.RunID)
		w.Header().Set("X-Record-Count", strconv.Itoa(res.Table.Len()))
		if res.Pagination.Partial() {
			w.Header().Set("X-Pagination-Stop", string(res.Pagination.Stop))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

// statusFor maps a run error onto an HTTP status.
func statusFor(err error) int {
	var valErr *auth.ValidationError
	var fetchErr *client.FetchError
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
