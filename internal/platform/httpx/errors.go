// Package httpx holds the JSON and RFC 7807 helpers shared by API handlers.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by domain services and mapped to status codes here.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrExport     = errors.New("could not export the quotation, please try again")
)

// FieldErrors carries per-field validation messages keyed by field name.
type FieldErrors map[string]string

// ValidationError wraps ErrValidation with the offending fields.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string { return ErrValidation.Error() }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RespondError maps a domain error to a problem response.
func RespondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusUnprocessableEntity, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Errors: verr.Fields,
		})
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrExport):
		Problem(w, http.StatusBadGateway, "Export Failed", "Could not export the quotation. Please try again.")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusFor reports the status RespondError would write for err.
func StatusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrExport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
