// Package apperr defines the single failure shape understood by the HTTP
// error boundary: an error carrying an HTTP status code and a message that is
// safe to show to users.
//
// Anything that is not an *Error (driver failures, programming errors) is
// treated as an unhandled failure and resolves to 500 with a generic message,
// so raw internal errors never reach a rendered page.
package apperr

import (
	"errors"
	"net/http"
)

// DefaultMessage is shown for failures that carry no status of their own.
const DefaultMessage = "Something went wrong!"

// Error is a failure with a known HTTP status.
type Error struct {
	Status  int
	Message string
}

// New returns an *Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// BadRequest returns a 400 *Error.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

// NotFound returns a 404 *Error.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Well-known failures raised by the HTTP layer.
var (
	ErrPageNotFound    = NotFound("Page not found!")
	ErrListingNotFound = NotFound("Listing not found!")
	ErrTesting         = BadRequest("Testing error")
)

// Resolve extracts the status and message to present for err.
//
// An *Error anywhere in the chain wins; zero or missing fields fall back to
// 500 and DefaultMessage individually. Resolve never panics, including on a
// nil error or a nil *Error.
func Resolve(err error) (status int, message string) {
	status, message = http.StatusInternalServerError, DefaultMessage

	var e *Error
	if err == nil || !errors.As(err, &e) || e == nil {
		return status, message
	}
	if e.Status >= 400 && e.Status <= 599 {
		status = e.Status
	}
	if e.Message != "" {
		message = e.Message
	}
	return status, message
}
