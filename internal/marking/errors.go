package marking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMarkingResponse = errors.New("invalid marking response")
	ErrEmptyWork              = errors.New("student work is required")
)

// InvalidMarkingResponseError lists the structural problems found in a
// marking or analysis reply.
type InvalidMarkingResponseError struct {
	Problems []string
	Err      error
}

func (e *InvalidMarkingResponseError) Error() string {
	msg := "invalid marking response"
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InvalidMarkingResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidMarkingResponse}
	}
	return []error{ErrInvalidMarkingResponse, e.Err}
}
