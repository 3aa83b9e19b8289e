package export

import (
	"github.com/xuri/excelize/v2"
)

// Sheet is a workbook sheet read back as text.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// Read opens the workbook at path and returns the exported sheet as text.
// Rows are padded to the header width.
func Read(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ExportError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ExportError{Op: "read", Path: path, Err: err}
	}
	if err := formatBools(f, rows); err != nil {
		return nil, &ExportError{Op: "read", Path: path, Err: err}
	}

	s := &Sheet{}
	if len(rows) == 0 {
		return s, nil
	}
	s.Headers = rows[0]
	for _, row := range rows[1:] {
		for len(row) < len(s.Headers) {
			row = append(row, "")
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// formatBools renders raw boolean cells ("1"/"0") as TRUE/FALSE. Raw
// values are read so numbers keep their full precision.
func formatBools(f *excelize.File, rows [][]string) error {
	for r, row := range rows {
		for c, v := range row {
			if v != "1" && v != "0" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			typ, err := f.GetCellType(SheetName, cell)
			if err != nil {
				return err
			}
			if typ == excelize.CellTypeBool {
				row[c] = "FALSE"
				if v == "1" {
					row[c] = "TRUE"
				}
			}
		}
	}
	return nil
}

// ColumnWidths returns the configured width of each header column.
func ColumnWidths(path string) ([]float64, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ExportError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, &ExportError{Op: "read", Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	widths := make([]float64, len(rows[0]))
	for i := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		w, err := f.GetColWidth(SheetName, name)
		if err != nil {
			return nil, &ExportError{Op: "read", Path: path, Err: err}
		}
		widths[i] = w
	}
	return widths, nil
}
