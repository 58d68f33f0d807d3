package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/denimozh/mathstutor-sub000/internal/marking"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// apiError carries the status and public code for a failed request. Err is
// logged; Message is what the client sees.
type apiError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *apiError) Unwrap() error { return e.Err }

func badRequest(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "bad_request", Message: msg}
}

var (
	errUnauthorized = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "missing or invalid token"}
	errForbidden    = &apiError{Status: http.StatusForbidden, Code: "forbidden", Message: "forbidden"}
	errNotFound     = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "not found"}
)

// toAPIError maps pipeline errors onto HTTP responses. Upstream and
// validation failures get a generic message.
func toAPIError(err error) *apiError {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, solver.ErrEmptyQuestion), errors.Is(err, marking.ErrEmptyWork):
		return &apiError{Status: http.StatusBadRequest, Code: "bad_request", Message: err.Error(), Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "not found", Err: err}
	case errors.Is(err, solver.ErrUpstream):
		return &apiError{Status: http.StatusInternalServerError, Code: "upstream_error", Message: "the AI service is unavailable, try again shortly", Err: err}
	case errors.Is(err, solver.ErrMalformedResponse),
		errors.Is(err, solver.ErrIncompleteSolution),
		errors.Is(err, marking.ErrInvalidMarkingResponse):
		return &apiError{Status: http.StatusInternalServerError, Code: "generation_failed", Message: "could not produce a valid answer, try again", Err: err}
	default:
		return &apiError{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error", Err: err}
	}
}

func respondError(c *gin.Context, err error) {
	ae := toAPIError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(ae.Status, errorEnvelope{Error: errorBody{Message: ae.Message, Code: ae.Code}})
}

func respondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
