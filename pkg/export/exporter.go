// Package export writes normalized tables to single-sheet xlsx workbooks.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	"github.com/Sternrassler/api2xlsx/pkg/normalize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the only sheet in exported workbooks.
	SheetName = "Dados_API"

	// DefaultFileName is the suggested name for downloads.
	DefaultFileName = "dados_api.xlsx"

	// MIMEType is the content type of xlsx workbooks.
	MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// MaxColumnWidth is the widest column xlsx allows.
	MaxColumnWidth = excelize.MaxColumnWidth

	// MaxCellChars is the longest text a cell holds; excelize cuts the rest.
	MaxCellChars = excelize.TotalCellChars

	columnPadding = 2
)

var (
	exportsTotal = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "api2xlsx_exports_total",
			Help: "Workbook exports by result",
		},
		[]string{"result"},
	)

	exportedRows = promauto.With(metrics.Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "api2xlsx_exported_rows",
			Help:    "Rows per exported workbook",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

// Result describes a written workbook.
type Result struct {
	Path    string
	Rows    int
	Columns int
	Bytes   int64

	// Truncated counts text cells cut to MaxCellChars.
	Truncated int
}

// Exporter serializes tables into xlsx workbooks.
type Exporter struct {
	logger zerolog.Logger
}

// New creates an Exporter.
func New() *Exporter {
	return &Exporter{
		logger: logging.NewLogger("export"),
	}
}

// Export writes t to path, replacing any existing file. Nothing is created
// for an empty table.
func (e *Exporter) Export(t *normalize.Table, path string) (Result, error) {
	if t.Len() == 0 {
		e.logger.Warn().Str("path", path).Msg("Nothing to export")
		exportsTotal.WithLabelValues("empty").Inc()
		return Result{}, ErrNothingToExport
	}

	f, truncated, err := e.build(t)
	if err != nil {
		return Result{}, e.fail(err, path)
	}
	defer f.Close()

	out, err := os.Create(path)
	if err != nil {
		return Result{}, e.fail(&ExportError{Op: "create", Path: path, Err: err}, path)
	}

	n, err := writeWorkbook(f, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Result{}, e.fail(&ExportError{Op: "write", Path: path, Err: err}, path)
	}

	res := Result{Path: path, Rows: t.Len(), Columns: len(t.Columns), Bytes: n, Truncated: truncated}
	e.done(res)
	return res, nil
}

// WriteTo serializes t into w and returns the number of bytes written.
func (e *Exporter) WriteTo(t *normalize.Table, w io.Writer) (int64, error) {
	if t.Len() == 0 {
		exportsTotal.WithLabelValues("empty").Inc()
		return 0, ErrNothingToExport
	}

	f, truncated, err := e.build(t)
	if err != nil {
		return 0, e.fail(err, "")
	}
	defer f.Close()

	n, err := writeWorkbook(f, w)
	if err != nil {
		return n, e.fail(&ExportError{Op: "write", Err: err}, "")
	}

	e.done(Result{Rows: t.Len(), Columns: len(t.Columns), Bytes: n, Truncated: truncated})
	return n, nil
}

// writeWorkbook serializes f into w. File.WriteTo does not report the
// byte count, so the workbook goes through a buffer first.
func writeWorkbook(f *excelize.File, w io.Writer) (int64, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

func (e *Exporter) done(res Result) {
	exportsTotal.WithLabelValues("success").Inc()
	exportedRows.Observe(float64(res.Rows))
	e.logger.Info().
		Str("path", res.Path).
		Int("rows", res.Rows).
		Int("columns", res.Columns).
		Int64("bytes", res.Bytes).
		Int("truncated", res.Truncated).
		Msg("Workbook exported")
}

func (e *Exporter) fail(err error, path string) error {
	exportsTotal.WithLabelValues("error").Inc()
	e.logger.Error().Err(err).Str("path", path).Msg("Export failed")
	return err
}

// build lays out the workbook in memory and reports how many text cells
// had to be truncated.
func (e *Exporter) build(t *normalize.Table) (*excelize.File, int, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, 0, &ExportError{Op: "sheet", Err: err}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, 0, &ExportError{Op: "style", Err: err}
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, col); err != nil {
			return nil, 0, &ExportError{Op: "header", Err: err}
		}
		widths[i] = utf8.RuneCountInString(col)
	}

	truncated := 0
	for r, rec := range t.Rows {
		for c, col := range t.Columns {
			raw, present := rec[col]
			if !present || raw == nil {
				continue
			}
			v := cellValue(raw)
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if text, isText := v.(string); isText {
				if n := utf8.RuneCountInString(text); n > MaxCellChars {
					truncated++
					e.logger.Warn().
						Str("cell", cell).
						Str("column", col).
						Int("chars", n).
						Int("limit", MaxCellChars).
						Msg("Text exceeds the cell limit and was truncated")
				}
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, 0, &ExportError{Op: "cell", Err: fmt.Errorf("%s: %w", cell, err)}
			}
			if l := utf8.RuneCountInString(displayText(raw)); l > widths[c] {
				widths[c] = l
			}
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return nil, 0, &ExportError{Op: "style", Err: err}
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, float64(ColumnWidth(w))); err != nil {
			return nil, 0, &ExportError{Op: "width", Err: err}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, 0, &ExportError{Op: "panes", Err: err}
	}

	ok = true
	return f, truncated, nil
}

// ColumnWidth returns the width for a column whose longest text is n
// characters long.
func ColumnWidth(n int) int {
	w := n + columnPadding
	if w > MaxColumnWidth {
		return MaxColumnWidth
	}
	return w
}

// cellValue maps a record value to a native cell type. Integers too large
// for int64 are written as text so no digits are lost.
func cellValue(v any) any {
	num, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := num.Int64(); err == nil {
		return i
	}
	s := num.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return s
}

func displayText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
