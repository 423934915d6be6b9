// Package errs defines the engine's error taxonomy. Callers branch on these
// types to distinguish "your input was wrong" (validation), "the world
// changed under you" (conflict), and "try again later" (gateway).
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports a caller-fixable problem with an application.
// It names the first violated rule only.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Reason)
}

// NewValidation builds a ValidationError for the given rule.
func NewValidation(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// GatewayError reports that the lending partner did not return a usable
// result (timeout, transport failure, or non-2xx). Retryable by the caller;
// the request may or may not have reached the partner.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("lending partner unavailable during %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewGateway wraps a transport-level failure.
func NewGateway(op string, err error) *GatewayError {
	return &GatewayError{Op: op, Err: err}
}

// ConflictError reports a state-machine invariant violation: accepting an
// expired or already-accepted offer, replaying a settled webhook event,
// or losing an optimistic-concurrency race.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

// NewConflict builds a ConflictError.
func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// ComputationError reports an internal numeric failure. For amortization it
// must propagate: a loan never activates with an unverifiable schedule.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed in %s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// NewComputation wraps a numeric failure.
func NewComputation(op string, err error) *ComputationError {
	return &ComputationError{Op: op, Err: err}
}

// Sentinels for conditions that need no further context.
var (
	// ErrBadSignature marks a webhook whose signature did not verify. The
	// external response never distinguishes this from a malformed payload.
	ErrBadSignature = errors.New("webhook signature verification failed")

	// ErrEventAlreadyProcessed marks a duplicate partner event delivery.
	ErrEventAlreadyProcessed = errors.New("event already processed")

	// ErrNotFound marks a missing application, offer, or loan.
	ErrNotFound = errors.New("not found")
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsGateway reports whether err is (or wraps) a GatewayError.
func IsGateway(err error) bool {
	var g *GatewayError
	return errors.As(err, &g)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
