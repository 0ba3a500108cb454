// Package apperr defines the error kinds surfaced by the HTTP API.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping
type Kind int

const (
	// KindValidation is a user-correctable request error (400)
	KindValidation Kind = iota
	// KindStorage is a local file or database failure (500)
	KindStorage
	// KindProvider is a failed or timed-out third-party call (500)
	KindProvider
	// KindMalformedResponse is an unparseable structured provider response (500)
	KindMalformedResponse
	// KindNotFound is a missing room, summary or user (404)
	KindNotFound
)

// Error is an error with a kind and an optional diagnostic payload
type Error struct {
	Kind Kind
	Msg  string
	// Raw carries the offending provider output for malformed-response errors
	Raw string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a status code
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error of the given kind
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates an error of the given kind wrapping a cause
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation creates a validation error
func Validation(msg string) *Error {
	return New(KindValidation, msg)
}

// NotFound creates a not-found error
func NotFound(msg string) *Error {
	return New(KindNotFound, msg)
}

// MalformedResponse creates a malformed-response error carrying the raw output
func MalformedResponse(msg, raw string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Msg: msg, Raw: raw, Err: err}
}

// KindOf returns the kind of err if it is an *Error, or KindProvider otherwise
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// As unwraps err into an *Error if possible
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
