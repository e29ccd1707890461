// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperrors provides the error taxonomy shared by the engine and the
// HTTP gateway.
package apperrors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidState          Code = "INVALID_STATE"
	CodePollNotActive         Code = "POLL_NOT_ACTIVE"
	CodeDuplicateVoteRejected Code = "DUPLICATE_VOTE_REJECTED"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInternal              Code = "INTERNAL"
)

// Sentinels for errors.Is checks. Matching is by code, so any *Error with the
// same code satisfies errors.Is(err, ErrNotFound).
var (
	ErrInvalidInput          = New(CodeInvalidInput, "invalid input")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrInvalidState          = New(CodeInvalidState, "invalid state")
	ErrPollNotActive         = New(CodePollNotActive, "poll is not active")
	ErrDuplicateVoteRejected = New(CodeDuplicateVoteRejected, "you have already voted")
	ErrUnauthorized          = New(CodeUnauthorized, "unauthorized")
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // User-facing message
	Metadata map[string]string // Additional context (poll_id, status, ...)
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a domain error carrying extra context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// InvalidInput is shorthand for a CodeInvalidInput error.
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

// PollNotFound reports an unknown poll id or code.
func PollNotFound(ref string) *Error {
	return WithMetadata(CodeNotFound, "Poll not found", map[string]string{"poll": ref})
}

// CodeOf extracts the code from err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status the gateway responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodePollNotActive, CodeDuplicateVoteRejected:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
