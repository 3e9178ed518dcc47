package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrResultAfterCancel marks a provider that reported cancellation yet
// still produced rows.
var ErrResultAfterCancel = errors.New("provider returned a result together with a cancellation error")

// AuthoringError is a defect in the check descriptor. It is reported before
// any query runs, or, for a missing baseline, before anything is compared.
type AuthoringError struct {
	Reason string
}

func (e *AuthoringError) Error() string {
	return "invalid check: " + e.Reason
}

// IsAuthoringError returns true if err is an *AuthoringError.
func IsAuthoringError(err error) bool {
	var ae *AuthoringError
	return errors.As(err, &ae)
}

// MismatchError reports the first disagreement between the two sides.
// Index is -1 when the sides disagree on element count.
type MismatchError struct {
	Path     string // nested collection or include path, empty at top level
	Index    int
	Key      string
	Reason   string
	Expected any
	Actual   any
	Diff     string
	Messages []string // failures reported by a custom asserter
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	b.WriteString("results differ")
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, " at [%d]", e.Index)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " (key %s)", e.Key)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	fmt.Fprintf(&b, "\n  expected: %+v\n  actual:   %+v", e.Expected, e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&b, "\ndiff (-expected +actual):\n%s", e.Diff)
	}
	for _, m := range e.Messages {
		fmt.Fprintf(&b, "\n%s", m)
	}
	return b.String()
}

// IsMismatch returns true if err is a *MismatchError.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// TrackingError reports a wrong number of tracked entries.
type TrackingError struct {
	ContextID string
	Expected  int
	Actual    int
	Sample    []string // up to ten tracked keys
}

func (e *TrackingError) Error() string {
	msg := fmt.Sprintf("context %s tracks %d entries, expected %d", e.ContextID, e.Actual, e.Expected)
	if len(e.Sample) > 0 {
		msg += " (" + strings.Join(e.Sample, ", ") + ")"
	}
	return msg
}

// IsTrackingError returns true if err is a *TrackingError.
func IsTrackingError(err error) bool {
	var te *TrackingError
	return errors.As(err, &te)
}

// CancellationError reports a clean cancellation: no result, cancel cause
// preserved.
type CancellationError struct {
	Err error
}

func (e *CancellationError) Error() string {
	return "check canceled: " + e.Err.Error()
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// IsCancellation returns true if err is a *CancellationError.
func IsCancellation(err error) bool {
	var ce *CancellationError
	return errors.As(err, &ce)
}

// GuardError reports a broken concurrency or cancellation contract.
type GuardError struct {
	Attempt int
	Reason  string
	Err     error
}

func (e *GuardError) Error() string {
	msg := fmt.Sprintf("attempt %d: %s", e.Attempt, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// IsGuardError returns true if err is a *GuardError.
func IsGuardError(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}
