// Package dErrors provides code-carrying domain errors.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// these before returning to handlers, so the HTTP layer maps codes to status
// lines without inspecting error strings. For validation failures construct
// them directly with New. Conventionally imported as dErrors.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and retry decisions.
type Code string

const (
	// CodeBadRequest: malformed or out-of-range input, rejected pre-network.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: uniqueness or state conflict (e.g. duplicate domain).
	CodeConflict Code = "conflict"
	// CodeConfiguration: missing credentials or unsupported registrar type.
	// Never retried; the caller must fix their setup first.
	CodeConfiguration Code = "configuration_error"
	// CodeUpstream: a provider tried and failed; the provider's own message
	// is carried through so users see the registrar's literal error.
	CodeUpstream Code = "upstream_error"
	// CodeUnavailable: a provider is assumed down (circuit open); carries a
	// retry-after hint.
	CodeUnavailable Code = "unavailable"
	// CodeInternal: everything else. Details are logged, not exposed.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.wrapped
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost domain code in the chain, or CodeInternal when
// the error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, or a generic fallback for
// unclassified errors so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
