package pipeline

import "fmt"

// Stage names a step of a run.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageExport    Stage = "export"
)

// StageError wraps the error that stopped a run with the stage it came
// from. errors.As still reaches the stage's own error type.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
