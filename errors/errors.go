// Package errors provides error handling for dunner.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrFatalConfig) {
//	    // abort before processing any record
//	}
//
// It also defines the domain failure taxonomy shared by the request
// executor, the transition engine, and the run orchestrator: typed API
// failures, partial two-phase transition failures, and fatal
// configuration errors.
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Error inspection
var (
	Is         = crdb.Is
	IsAny      = crdb.IsAny
	As         = crdb.As
	Unwrap     = crdb.Unwrap
	UnwrapOnce = crdb.UnwrapOnce
	UnwrapAll  = crdb.UnwrapAll
)

// Sentinel errors for the campaign pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrFatalConfig indicates required configuration or credentials are
	// absent. Workflows abort before touching any record.
	ErrFatalConfig = New("fatal configuration error")

	// ErrNoMatch indicates a cross-account lookup found no record. This is
	// a "no data" outcome for the caller, not a failure of the lookup.
	ErrNoMatch = New("no matching record")

	// ErrMissingField indicates a record lacks a field a transition
	// requires. Workflows with a terminal Error stage escalate on it.
	ErrMissingField = New("required field missing")

	// ErrMalformedResponse indicates a 2xx body that failed to decode.
	// The executor absorbs it into soft success for writes and an empty
	// result for reads; it only surfaces in debug logs.
	ErrMalformedResponse = New("malformed response body")
)

// APIError is a non-retryable API failure: any 4xx/5xx status other than
// 429. The executor returns it instead of retrying; the caller decides
// whether to skip the record, log, or escalate it to the Error stage.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// NewAPIError builds an APIError with the response body truncated to a
// loggable excerpt.
func NewAPIError(method, path string, status int, body []byte) *APIError {
	const maxExcerpt = 512
	excerpt := string(body)
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt] + "..."
	}
	return &APIError{Status: status, Method: method, Path: path, Body: excerpt}
}

// IsAPIError reports whether err is or wraps an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return err != nil && As(err, &apiErr)
}

// IsAPIStatus reports whether err is or wraps an APIError with the given
// HTTP status.
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	if err == nil || !As(err, &apiErr) {
		return false
	}
	return apiErr.Status == status
}

// PartialFailure records a two-phase transition where the child record
// write succeeded but the parent write failed. Remote state has partially
// advanced; operators must reconcile. It always counts as a failure.
type PartialFailure struct {
	ChildID  string
	ParentID string
	ChildOK  bool
	ParentOK bool
	Cause    error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partial transition: child %s ok=%t, parent %s ok=%t",
		e.ChildID, e.ChildOK, e.ParentID, e.ParentOK)
}

func (e *PartialFailure) Unwrap() error { return e.Cause }

// IsPartialFailure reports whether err is or wraps a PartialFailure.
func IsPartialFailure(err error) bool {
	var pf *PartialFailure
	return err != nil && As(err, &pf)
}

// IsFatalConfig reports whether err is or wraps ErrFatalConfig.
func IsFatalConfig(err error) bool {
	return err != nil && Is(err, ErrFatalConfig)
}

// NewFatalConfig creates a fatal configuration error with a formatted
// message, preserving the ErrFatalConfig sentinel for Is checks.
func NewFatalConfig(format string, args ...interface{}) error {
	return Wrap(ErrFatalConfig, Newf(format, args...).Error())
}

// IsNoMatch reports whether err is or wraps ErrNoMatch.
func IsNoMatch(err error) bool {
	return err != nil && Is(err, ErrNoMatch)
}

// IsMissingField reports whether err is or wraps ErrMissingField.
func IsMissingField(err error) bool {
	return err != nil && Is(err, ErrMissingField)
}

// NewMissingField creates a missing-field error naming the field, keeping
// the ErrMissingField sentinel for Is checks.
func NewMissingField(field string) error {
	return Wrapf(ErrMissingField, "field %q", field)
}
