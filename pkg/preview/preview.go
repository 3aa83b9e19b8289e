// Package preview renders the leading rows of a normalized table for
// terminal display.
package preview

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/Sternrassler/api2xlsx/pkg/normalize"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	// DefaultRows is how many rows a preview shows.
	DefaultRows = 5

	maxCellWidth = 40
)

// Render writes up to rows leading records of t to w as a table, followed
// by the total record count.
func Render(w io.Writer, t *normalize.Table, rows int) {
	if t.Len() == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)

	for _, rec := range t.Head(rows) {
		row := make(table.Row, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = cell(rec[c])
		}
		tw.AppendRow(row)
	}

	tw.AppendFooter(table.Row{fmt.Sprintf("%d records", t.Len())})
	tw.SetStyle(table.StyleRounded)
	tw.Render()
}

// Sheet writes headers and rows read back from a workbook.
func Sheet(w io.Writer, headers []string, rows [][]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = truncate(v)
		}
		tw.AppendRow(row)
	}

	tw.SetStyle(table.StyleRounded)
	tw.Render()
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return truncate(fmt.Sprint(v))
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxCellWidth {
		return s
	}
	r := []rune(s)
	return string(r[:maxCellWidth-1]) + "…"
}
