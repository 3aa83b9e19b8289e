package normalize

import (
	"errors"
	"fmt"
)

// ErrNothingToExport is returned when a payload carries no records.
var ErrNothingToExport = errors.New("nothing to export")

// NormalizeError reports a record that cannot be turned into a row.
type NormalizeError struct {
	// Row is the zero-based index of the offending record.
	Row int

	// Column is the flattened column name involved, if any.
	Column string

	Reason string
	Err    error
}

// Error implements the error interface.
func (e *NormalizeError) Error() string {
	msg := fmt.Sprintf("normalize row %d", e.Row)
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q", e.Column)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *NormalizeError) Unwrap() error {
	return e.Err
}
