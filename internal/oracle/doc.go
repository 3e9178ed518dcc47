// Package oracle checks a live query against its reference evaluation.
//
// Every check runs the same logical query twice: once against a fresh,
// tracked live context and once against the read-only baseline snapshot.
// The two results must agree, in order when ordering is asserted and as
// multisets otherwise, and the live context must end up tracking exactly
// the expected number of entities.
//
// Each Assert function reports through a TestingT and has a Check twin
// returning a typed error:
//
//	*AuthoringError     the descriptor itself is wrong; no query ran
//	*MismatchError      the two sides disagree
//	*TrackingError      the tracked entry count is off
//	*CancellationError  the check was canceled cleanly
//	*GuardError         the concurrency or cancellation contract broke
//
// Checks run sequentially on the caller goroutine unless a descriptor asks
// for asynchronous materialization.
package oracle
