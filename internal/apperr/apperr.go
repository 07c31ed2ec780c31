// Package apperr defines the single error taxonomy shared by every core
// component. Components return *Error (or wrap one with fmt.Errorf("%w", ...));
// the HTTP transport is the only layer that translates a Code to a status.
package apperr

import (
	"errors"
	"fmt"
)

// Code is one of the stable taxonomy names from the error handling design.
type Code string

const (
	Unauthenticated         Code = "Unauthenticated"
	Forbidden               Code = "Forbidden"
	NotFound                Code = "NotFound"
	Conflict                Code = "Conflict"
	AlreadyExists           Code = "AlreadyExists"
	ValidationFailed        Code = "ValidationFailed"
	IllegalTransition       Code = "IllegalTransition"
	OverlappingShift        Code = "OverlappingShift"
	PaymentAlreadyExists    Code = "PaymentAlreadyExists"
	RefundFailed            Code = "RefundFailed"
	ProviderUnavailable     Code = "ProviderUnavailable"
	InvalidWebhookSignature Code = "InvalidWebhookSignature"
	RateLimited             Code = "RateLimited"
	Internal                Code = "Internal"
)

// Error is the concrete error type carried through every return path in the
// core. Message is safe to show to a caller; Details is optional structured
// context (e.g. per-field validation failures).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy code to an underlying error, preserving it for
// errors.Unwrap/errors.Is chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetails returns a copy of e with Details set.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// CodeOf extracts the taxonomy code of err, defaulting to Internal for any
// error that didn't originate from this package.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return Internal
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
