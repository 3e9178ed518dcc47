package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
)

// MaterializedPair holds both sides of a check. A side whose query failed
// has a nil slice and a non-nil error.
type MaterializedPair[R any] struct {
	Expected    []R
	Actual      []R
	ExpectedErr error
	ActualErr   error
	Async       bool
}

// materialize drains the provider side into a fresh live context and the
// baseline side against the snapshot. Without an explicit baseline the
// snapshot side runs first, so a non-portable query is rejected before any
// live context exists. The returned error is fatal: cancellation, a broken
// cancellation contract or a missing baseline. Plain query failures are
// recorded in the pair. The caller closes live whenever it is non-nil.
func materialize[R any](ctx context.Context, fx *Fixture, provider, baseline QueryFunc[R], async bool) (pair MaterializedPair[R], live Context, err error) {
	pair.Async = async

	explicit := baseline != nil
	if !explicit {
		expected, err := run(ctx, provider, fx.Snapshot(), async)
		if err != nil {
			if fatal(err) {
				return pair, nil, err
			}
			if queryir.IsNonPortable(err) {
				return pair, nil, &AuthoringError{Reason: fmt.Sprintf("query is not portable (%v); supply a Baseline", err)}
			}
			pair.ExpectedErr = err
		}
		pair.Expected = expected
	}

	live, err = fx.NewContext()
	if err != nil {
		return pair, nil, err
	}

	actual, err := run(ctx, provider, live, async)
	if err != nil {
		if fatal(err) {
			return pair, live, err
		}
		pair.ActualErr = err
	}
	pair.Actual = actual

	if explicit {
		expected, err := run(ctx, baseline, fx.Snapshot(), async)
		if err != nil {
			if fatal(err) {
				return pair, live, err
			}
			pair.ExpectedErr = err
		}
		pair.Expected = expected
	}

	fx.logger.Debug("materialized", "context", live.ID(), "expected", len(pair.Expected), "actual", len(actual), "async", async)
	return pair, live, nil
}

// run evaluates fn against src. With async the evaluation runs on its own
// goroutine; the caller waits for completion or cancellation and joins the
// goroutine either way.
func run[R any](ctx context.Context, fn QueryFunc[R], src query.Source, async bool) ([]R, error) {
	if !async {
		rows, err := fn(ctx, src)
		return classify(rows, err)
	}

	type outcome struct {
		rows []R
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		rows, err := fn(ctx, src)
		done <- outcome{rows, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = <-done
	}
	return classify(out.rows, out.err)
}

// classify maps a raw outcome onto the cancellation contract: a
// cancellation error must come without rows. An empty slice counts as no
// result.
func classify[R any](rows []R, err error) ([]R, error) {
	switch {
	case err == nil:
		return rows, nil
	case !isCancel(err):
		return nil, err
	case len(rows) > 0:
		return nil, &GuardError{Reason: fmt.Sprintf("%d rows returned with %v", len(rows), err), Err: ErrResultAfterCancel}
	default:
		return nil, &CancellationError{Err: err}
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fatal(err error) bool {
	return IsCancellation(err) || IsGuardError(err)
}

// single adapts a terminal operation to a one-element sequence.
func single[R any](fn SingleFunc[R]) QueryFunc[R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, src query.Source) ([]R, error) {
		v, err := fn(ctx, src)
		if err != nil {
			return nil, err
		}
		return []R{v}, nil
	}
}
