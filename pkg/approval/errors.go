package approval

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModelNotFound is returned by the locator when no candidate model file
	// exists and the service is configured to fail in that case.
	ErrModelNotFound = errors.New("approval: model not found")

	// ErrStageTimeout marks a classifier or scaler call that exceeded the
	// configured per-stage deadline.
	ErrStageTimeout = errors.New("approval: stage timed out")

	// ErrInvalidProbabilities marks a classifier result that is not a usable
	// probability pair.
	ErrInvalidProbabilities = errors.New("approval: invalid class probabilities")

	// ErrNoProbabilities is returned by classifiers that only produce labels.
	ErrNoProbabilities = errors.New("approval: classifier does not estimate probabilities")
)

// MissingFieldsError reports required input fields absent from a request.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// InvalidFieldError reports a field whose value cannot be coerced to the
// declared type.
type InvalidFieldError struct {
	Field string
	Value any
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("Invalid value for field %s: %v", e.Field, e.Value)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var missing *MissingFieldsError
	var invalid *InvalidFieldError
	return errors.As(err, &missing) || errors.As(err, &invalid)
}
