// Package ctxerr implements the status-coded, cumulative error values used
// throughout the tile cache: every component that fails appends its message
// to whatever error it received rather than discarding it, while preserving
// the earliest (most specific) status code.
package ctxerr

import (
	"errors"
	"fmt"
)

// Status mirrors the HTTP-style codes of spec §7 without depending on net/http.
type Status int

const (
	StatusInvalidArgument Status = 400
	StatusNotFound        Status = 404
	StatusUpstreamFailure Status = 502
	StatusInternal        Status = 500
)

// Error is a status-coded error that accumulates messages across components.
type Error struct {
	Status  Status
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a fresh error with the given status.
func New(status Status, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap appends a new message to err, keeping err's status if it is already a
// *Error, or starting a new one at status otherwise. This implements the
// "errors append, earliest status wins" rule of spec §7.
func Wrap(err error, status Status, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Status:  existing.Status,
			Message: msg + ": " + existing.Message,
			cause:   err,
		}
	}
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Status: status, Message: msg, cause: err}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(StatusInvalidArgument, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(StatusNotFound, format, args...)
}

func UpstreamFailure(format string, args ...interface{}) *Error {
	return New(StatusUpstreamFailure, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return New(StatusInternal, format, args...)
}

// StatusOf extracts the status of err, defaulting to Internal for plain errors.
func StatusOf(err error) Status {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusInternal
}
