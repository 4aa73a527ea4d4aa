// Package server hosts the edge handlers and the role-guarded HTTP surface.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ErrNotFound indicates a referenced user or row does not exist
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Backend client errors keep their status; every other failure is a 500.
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		field      *types.FieldError
		notFound   *ErrNotFound
		upstream   *backend.HTTPError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &field):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		if upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
			return upstream.StatusCode
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the message shown to callers for err.
func ErrorMessage(err error) string {
	var upstream *backend.HTTPError
	if errors.As(err, &upstream) {
		return upstream.Message()
	}
	return err.Error()
}
