// Package pipeline runs one fetch-to-spreadsheet export: validate the
// request, fetch (following pagination), normalize and write the workbook.
//
// Runs are synchronous and independent. A Pipeline holds no per-run state
// and may be shared by concurrent callers such as the HTTP server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/normalize"
	"github.com/Sternrassler/api2xlsx/pkg/pagination"
	"github.com/Sternrassler/api2xlsx/pkg/payload"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher retrieves a payload and follows its pagination.
// *client.Client implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, rawURL string, creds auth.Credentials) (payload.Payload, pagination.Result, error)
}

// Request is the immutable input of one run.
type Request struct {
	URL         string
	Credentials auth.Credentials

	// OutputPath is where Run writes the workbook (default
	// export.DefaultFileName). Ignored by RunToWriter.
	OutputPath string
}

// Result describes a completed run.
type Result struct {
	RunID      string
	Table      *normalize.Table
	Export     export.Result
	Pagination pagination.Result
	StartedAt  time.Time
	Duration   time.Duration
}

// Pipeline wires the fetcher, normalizer and exporter together.
type Pipeline struct {
	fetcher    Fetcher
	normalizer *normalize.Normalizer
	exporter   *export.Exporter
}

// New creates a Pipeline. A nil normalizer or exporter gets the default.
func New(fetcher Fetcher, normalizer *normalize.Normalizer, exporter *export.Exporter) *Pipeline {
	if normalizer == nil {
		normalizer = normalize.New(normalize.DefaultOptions())
	}
	if exporter == nil {
		exporter = export.New()
	}
	return &Pipeline{
		fetcher:    fetcher,
		normalizer: normalizer,
		exporter:   exporter,
	}
}

// Run executes a full run and writes the workbook to req.OutputPath.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.OutputPath == "" {
		req.OutputPath = export.DefaultFileName
	}

	res, logger, err := p.collect(ctx, req)
	if err != nil {
		return nil, err
	}

	exp, err := p.exporter.Export(res.Table, req.OutputPath)
	if err != nil {
		return nil, p.stageFailed(logger, StageExport, err)
	}
	res.Export = exp

	p.finish(logger, res)
	return res, nil
}

// RunToWriter executes a full run and streams the workbook into w.
func (p *Pipeline) RunToWriter(ctx context.Context, req Request, w io.Writer) (*Result, error) {
	res, logger, err := p.collect(ctx, req)
	if err != nil {
		return nil, err
	}

	n, err := p.exporter.WriteTo(res.Table, w)
	if err != nil {
		return nil, p.stageFailed(logger, StageExport, err)
	}
	res.Export = export.Result{Rows: res.Table.Len(), Columns: len(res.Table.Columns), Bytes: n}

	p.finish(logger, res)
	return res, nil
}

// Collect runs every stage except export and returns the normalized table.
func (p *Pipeline) Collect(ctx context.Context, req Request) (*Result, error) {
	res, logger, err := p.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	p.finish(logger, res)
	return res, nil
}

func (p *Pipeline) collect(ctx context.Context, req Request) (*Result, zerolog.Logger, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := logging.ForRun("pipeline", res.RunID)

	if err := Validate(req); err != nil {
		return nil, logger, p.stageFailed(logger, StageValidate, err)
	}

	logger.Info().
		Str("url", req.URL).
		Str("auth", string(req.Credentials.Mode())).
		Msg("Starting run")

	data, pages, err := p.fetcher.FetchAll(ctx, req.URL, req.Credentials)
	if err != nil {
		return nil, logger, p.stageFailed(logger, StageFetch, err)
	}
	res.Pagination = pages

	if pages.Partial() {
		logger.Warn().
			Err(pages.Err).
			Str("stop", string(pages.Stop)).
			Int("pages", pages.Pages).
			Int("records", len(pages.Items)).
			Msg("Pagination stopped early, continuing with partial data")
	}

	table, err := p.normalizer.Normalize(data)
	if errors.Is(err, normalize.ErrNothingToExport) {
		logger.Warn().Str("url", req.URL).Msg("Nothing to export")
		return nil, logger, &StageError{Stage: StageExport, Err: export.ErrNothingToExport}
	}
	if err != nil {
		return nil, logger, p.stageFailed(logger, StageNormalize, err)
	}
	res.Table = table

	logger.Info().
		Int("rows", table.Len()).
		Int("columns", len(table.Columns)).
		Int("pages", pages.Pages).
		Msg("Records collected")

	return res, logger, nil
}

func (p *Pipeline) finish(logger zerolog.Logger, res *Result) {
	res.Duration = time.Since(res.StartedAt)
	logger.Info().
		Int("rows", res.Table.Len()).
		Int64("bytes", res.Export.Bytes).
		Dur("duration", res.Duration).
		Msg("Run complete")
}

func (p *Pipeline) stageFailed(logger zerolog.Logger, stage Stage, err error) error {
	evt := logger.Error()
	if stage == StageValidate {
		evt = logger.Warn()
	}
	evt.Err(err).Str("stage", string(stage)).Msg("Run failed")
	return &StageError{Stage: stage, Err: err}
}

// Validate checks a request before any network call is made.
func Validate(req Request) error {
	if req.URL == "" {
		return &auth.ValidationError{Field: "url", Reason: "required"}
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return &auth.ValidationError{Field: "url", Reason: fmt.Sprintf("invalid: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &auth.ValidationError{Field: "url", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &auth.ValidationError{Field: "url", Reason: "host is required"}
	}
	return req.Credentials.Validate()
}
