package main

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/api2xlsx/internal/config"
	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/client"
	"github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/pipeline"
	"github.com/Sternrassler/api2xlsx/pkg/preview"
	"github.com/spf13/cobra"
)

func (a *app) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch an endpoint and write the records to an xlsx file",
		Args:  cobra.NoArgs,
		RunE:  a.runExport,
	}

	f := cmd.Flags()
	f.String("url", config.DefaultURL, "API endpoint to fetch")
	f.String("auth", "none", "auth mode: none, basic, bearer, api_key")
	f.String("username", "", "basic auth username")
	f.String("password", "", "basic auth password")
	f.String("token", "", "bearer token")
	f.String("key-name", auth.DefaultKeyName, "API key query parameter name")
	f.String("key-value", "", "API key value")
	f.StringP("out", "o", export.DefaultFileName, "output file")
	f.Int("preview", preview.DefaultRows, "rows to preview after fetching (0 disables)")
	f.String("user-agent", "", "User-Agent header")
	f.Duration("timeout", 0, "per-request timeout (default 30s)")
	f.Float64("rate", 0, "max requests per second while paginating (0 = unlimited)")
	f.Int("max-pages", 0, "max pages to follow (default 1000)")
	f.Duration("max-elapsed", 0, "max time spent paginating (default 5m)")
	f.String("separator", "", "separator for flattened column names (default \".\")")
	f.String("redis", "", "Redis address for the response cache (empty disables)")
	f.Duration("cache-ttl", 0, "cache TTL for responses without freshness headers")

	return cmd
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	creds, err := a.cfg.Credentials()
	if err != nil {
		return err
	}

	p, _, closeFn, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := p.Run(ctx, pipeline.Request{
		URL:         a.cfg.URL,
		Credentials: creds,
		OutputPath:  a.cfg.Output,
	})
	if errors.Is(err, export.ErrNothingToExport) {
		fmt.Fprintln(out, "Nothing to export: the API returned no records.")
		return nil
	}
	if err != nil {
		var fetchErr *client.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Temporary() {
			fmt.Fprintln(out, "The API looks temporarily unavailable; try again later.")
		}
		return err
	}

	fmt.Fprintf(out, "Fetched %d records from %d page(s).\n", res.Table.Len(), res.Pagination.Pages)
	if res.Pagination.Partial() {
		fmt.Fprintf(out, "Warning: pagination stopped early (%s)", res.Pagination.Stop)
		if res.Pagination.Err != nil {
			fmt.Fprintf(out, ": %v", res.Pagination.Err)
		}
		fmt.Fprintln(out)
	}

	if a.cfg.Preview > 0 {
		preview.Render(out, res.Table, a.cfg.Preview)
	}

	if res.Export.Truncated > 0 {
		fmt.Fprintf(out, "Warning: %d cell(s) exceeded %d characters and were truncated.\n",
			res.Export.Truncated, export.MaxCellChars)
	}

	fmt.Fprintf(out, "Saved %s (%d rows, %d columns, %d bytes).\n",
		res.Export.Path, res.Export.Rows, res.Export.Columns, res.Export.Bytes)
	return nil
}
