package export

import (
	"fmt"

	"github.com/Sternrassler/api2xlsx/pkg/normalize"
)

// ErrNothingToExport is returned for empty tables. It wraps
// normalize.ErrNothingToExport so errors.Is matches either sentinel.
var ErrNothingToExport = fmt.Errorf("export: %w", normalize.ErrNothingToExport)

// ExportError reports a failure while building or writing a workbook.
type ExportError struct {
	// Op is the step that failed (e.g. "write", "create", "style").
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExportError) Unwrap() error {
	return e.Err
}
