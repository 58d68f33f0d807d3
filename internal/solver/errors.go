package solver

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks at the HTTP layer.
var (
	ErrMalformedResponse  = errors.New("malformed model response")
	ErrIncompleteSolution = errors.New("incomplete solution")
	ErrUpstream           = errors.New("upstream failure")
	ErrEmptyQuestion      = errors.New("question text is required")
	ErrNoProvider         = errors.New("no model provider configured")
)

// MalformedResponseError means the model output could not be parsed as a
// JSON object at all.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }

// IncompleteSolutionError means the output parsed but lacks required fields.
type IncompleteSolutionError struct {
	Missing []string
}

func (e *IncompleteSolutionError) Error() string {
	return fmt.Sprintf("incomplete solution: missing %v", e.Missing)
}

func (e *IncompleteSolutionError) Unwrap() error { return ErrIncompleteSolution }

// UpstreamError wraps a failed call to the model, OCR service or store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }
