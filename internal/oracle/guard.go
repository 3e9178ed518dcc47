package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
)

// cancelStep is how much later each cancellation attempt fires than the
// previous one.
const cancelStep = 200 * time.Microsecond

// GuardCase describes a concurrency check. Hold is streamed and kept open
// while Compete runs on the same context.
type GuardCase struct {
	Hold    queryir.Select
	Compete func(ctx context.Context, src query.Source) error
}

// AssertConcurrencyGuard runs CheckConcurrencyGuard and reports a failure
// to t.
func AssertConcurrencyGuard(t TestingT, fx *Fixture, gc GuardCase) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckConcurrencyGuard(ctx, fx, gc)
	})
}

// CheckConcurrencyGuard verifies, once per configured attempt, that a
// context with an operation in flight rejects a second one with
// *query.ConcurrentAccessError naming the context.
//
// Task A opens the cursor, reads one row and signals ready, then holds the
// cursor until task B has competed. The semaphore is the hand-off: the
// caller takes it up front and B gives it back.
func CheckConcurrencyGuard(ctx context.Context, fx *Fixture, gc GuardCase) error {
	compete := gc.Compete
	if compete == nil {
		compete = func(ctx context.Context, src query.Source) error {
			_, err := src.Fetch(ctx, gc.Hold)
			return err
		}
	}
	for attempt, n := 0, fx.cfg.Attempts; attempt < n; attempt++ {
		if err := guardAttempt(ctx, fx, gc.Hold, compete, attempt); err != nil {
			return err
		}
	}
	fx.logger.Debug("concurrency guard held", "attempts", fx.cfg.Attempts)
	return nil
}

func guardAttempt(ctx context.Context, fx *Fixture, hold queryir.Select, compete func(context.Context, query.Source) error, attempt int) error {
	live, err := fx.NewContext()
	if err != nil {
		return err
	}
	defer live.Close()

	gate := semaphore.NewWeighted(1)
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	ready := make(chan struct{})
	var competeErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := live.Stream(gctx, hold)
		if err != nil {
			return &GuardError{Attempt: attempt, Reason: "blocking query failed", Err: err}
		}
		defer cur.Close()
		if _, err := cur.Next(gctx); err != nil {
			if errors.Is(err, io.EOF) {
				return &GuardError{Attempt: attempt, Reason: "blocking query must return at least one row"}
			}
			return &GuardError{Attempt: attempt, Reason: "blocking query failed", Err: err}
		}
		close(ready)
		if err := gate.Acquire(gctx, 1); err != nil {
			return err
		}
		gate.Release(1)
		return nil
	})
	g.Go(func() error {
		defer gate.Release(1)
		select {
		case <-ready:
		case <-gctx.Done():
			return nil
		}
		competeErr = compete(gctx, live)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	var ca *query.ConcurrentAccessError
	switch {
	case competeErr == nil:
		return &GuardError{Attempt: attempt, Reason: "competing operation was not rejected"}
	case !errors.As(competeErr, &ca):
		return &GuardError{Attempt: attempt, Reason: "competing operation failed with the wrong error", Err: competeErr}
	case ca.ContextID != live.ID():
		return &GuardError{Attempt: attempt, Reason: fmt.Sprintf("rejection names context %q, want %q", ca.ContextID, live.ID()), Err: competeErr}
	}

	// Once A is done the context must accept work again.
	if _, err := live.Fetch(ctx, hold); err != nil {
		return &GuardError{Attempt: attempt, Reason: "context unusable after the blocking query finished", Err: err}
	}
	return nil
}

// AssertCancellation runs CheckCancellation and reports a failure to t.
func AssertCancellation[R any](t TestingT, fx *Fixture, q Query[R]) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckCancellation(ctx, fx, q)
	})
}

// CheckCancellation cancels q's provider side at a later point on every
// attempt, starting before it runs. Each attempt must end in a clean
// cancellation or a result equal to the baseline, and the same context
// must afterwards produce the baseline result and the expected tracking.
func CheckCancellation[R any](ctx context.Context, fx *Fixture, q Query[R]) error {
	if err := q.validate(); err != nil {
		return err
	}
	baseline := q.Baseline
	if baseline == nil {
		baseline = q.Provider
	}
	expected, err := run(ctx, baseline, fx.Snapshot(), false)
	if err != nil {
		if q.Baseline == nil && queryir.IsNonPortable(err) {
			return &AuthoringError{Reason: fmt.Sprintf("query is not portable (%v); supply a Baseline", err)}
		}
		return fmt.Errorf("baseline query: %w", err)
	}

	cm := q.comparer()
	for attempt, n := 0, fx.cfg.Attempts; attempt < n; attempt++ {
		if err := cancelAttempt(ctx, fx, q, cm, expected, attempt); err != nil {
			return err
		}
	}
	return nil
}

func cancelAttempt[R any](ctx context.Context, fx *Fixture, q Query[R], cm comparer[R], expected []R, attempt int) error {
	live, err := fx.NewContext()
	if err != nil {
		return err
	}
	defer live.Close()

	actx, cancel := context.WithCancel(ctx)
	if attempt == 0 {
		cancel()
	} else {
		timer := time.AfterFunc(time.Duration(attempt)*cancelStep, cancel)
		defer timer.Stop()
	}
	rows, err := run(actx, q.Provider, live, q.Async)
	cancel()

	switch {
	case IsCancellation(err):
		fx.logger.Debug("attempt canceled", "attempt", attempt)
	case err != nil:
		var ge *GuardError
		if errors.As(err, &ge) {
			ge.Attempt = attempt
			return ge
		}
		return &GuardError{Attempt: attempt, Reason: "canceled query failed with a non-cancellation error", Err: err}
	default:
		if _, _, err := cm.align(expected, rows); err != nil {
			return &GuardError{Attempt: attempt, Reason: "result completed under cancellation differs from baseline", Err: err}
		}
	}

	rows, err = q.Provider(ctx, live)
	if err != nil {
		return &GuardError{Attempt: attempt, Reason: "context unusable after cancellation", Err: err}
	}
	if _, _, err := cm.align(expected, rows); err != nil {
		return &GuardError{Attempt: attempt, Reason: "rerun after cancellation differs from baseline", Err: err}
	}
	if err := checkTracking(live, q.EntryCount); err != nil {
		return &GuardError{Attempt: attempt, Reason: "tracking after cancellation", Err: err}
	}
	return nil
}
