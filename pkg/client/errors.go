package client

import (
	"fmt"
)

// FetchError describes why a fetch failed. It is never retried; callers
// surface it and abort the run.
type FetchError struct {
	// URL is the requested URL with secrets masked
	URL        string
	StatusCode int
	Class      ErrorClass
	Message    string
	// Body holds the start of a non-2xx response body
	Body string
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	var msg string
	if e.StatusCode > 0 && e.Class != ErrorClassDecode {
		msg = fmt.Sprintf("%s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	} else {
		msg = fmt.Sprintf("%s error: %s", e.Class, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether a later, user-initiated attempt might succeed.
func (e *FetchError) Temporary() bool {
	switch e.Class {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return e.StatusCode == 429
	}
}
