// Package apperr defines the error codes shared by handlers, services and clients.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Code identifies a class of failure independent of its transport.
type Code string

// Severity drives log level and alerting.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeTimeout             Code = "TIMEOUT"
	CodeInternal            Code = "INTERNAL"
)

// Attributes are the defaults attached to a code.
type Attributes struct {
	Message    string
	HTTPStatus int
	Severity   Severity
	Retryable  bool
}

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:             {"unknown error", http.StatusInternalServerError, SeverityCritical, false},
		CodeInvalidArgument:     {"invalid argument", http.StatusBadRequest, SeverityInfo, false},
		CodeUnauthorized:        {"unauthorized", http.StatusUnauthorized, SeverityInfo, false},
		CodeNotFound:            {"resource not found", http.StatusNotFound, SeverityInfo, false},
		CodeConflict:            {"resource conflict", http.StatusConflict, SeverityWarning, false},
		CodeRateLimited:         {"rate limit exceeded", http.StatusTooManyRequests, SeverityInfo, true},
		CodeUpstreamUnavailable: {"upstream service unavailable", http.StatusBadGateway, SeverityWarning, true},
		CodeTimeout:             {"operation timed out", http.StatusGatewayTimeout, SeverityWarning, true},
		CodeInternal:            {"internal server error", http.StatusInternalServerError, SeverityCritical, false},
	}
)

// Register adds or replaces the attributes for a code.
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf returns the attributes for code, or those of CodeUnknown.
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error. An empty message uses the code's default.
func New(code Code, message string) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code to cause. Wrapping nil returns nil.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	e := New(code, message)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches sentinels: a target carrying its code's default message matches
// any error with that code, otherwise the message must match too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code != e.Code {
		return false
	}
	return t.Message == AttributesOf(t.Code).Message || t.Message == e.Message
}

// CodeOf extracts the outermost code in err's chain. Context errors map to
// TIMEOUT and uncoded errors to INTERNAL.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeInternal
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	return AttributesOf(CodeOf(err)).HTTPStatus
}

// Retryable reports whether the failure is worth retrying.
func Retryable(err error) bool {
	return AttributesOf(CodeOf(err)).Retryable
}

// PublicMessage is the message safe to return to clients.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return AttributesOf(CodeInternal).Message
}

var (
	ErrNotFound          = New(CodeNotFound, "")
	ErrInvalidArgument   = New(CodeInvalidArgument, "")
	ErrUnauthorized      = New(CodeUnauthorized, "")
	ErrNoModelConfigured = New(CodeUpstreamUnavailable, "no language model configured: set LANGDB_API_KEY and LANGDB_PROJECT_ID, OPENROUTER_API_KEY, or OPENAI_API_KEY")
	ErrPortInUse         = New(CodeConflict, "address already in use")
)
