package capability

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies provider failures for the retry policy: transient
// failures (timeouts, momentary unavailability) are retried up to a bound,
// structural failures (malformed response, missing output) never are.
type FailureKind string

const (
	FailureTransient  FailureKind = "transient"
	FailureStructural FailureKind = "structural"
)

// Failure is a typed provider failure with a reason code.
type Failure struct {
	Kind   FailureKind
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("provider failure (%s): %s", f.Kind, f.Reason)
}

// NewTransientFailure creates a retryable failure.
func NewTransientFailure(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailureTransient, Reason: fmt.Sprintf(format, args...)}
}

// NewStructuralFailure creates a non-retryable failure.
func NewStructuralFailure(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailureStructural, Reason: fmt.Sprintf(format, args...)}
}

// KindOf classifies an arbitrary provider error. Deadline expiry counts as
// transient; anything untyped is structural, so it escalates rather than
// being retried blindly.
func KindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailureStructural
}

// IsTransient reports whether the error is eligible for the bounded retry
// policy.
func IsTransient(err error) bool {
	return KindOf(err) == FailureTransient
}
