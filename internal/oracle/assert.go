package oracle

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
)

// TestingT is the subset of *testing.T the Assert functions use.
type TestingT interface {
	Errorf(format string, args ...any)
	Helper()
}

// AssertQuery runs CheckQuery under the fixture timeout and reports a
// failure to t.
func AssertQuery[R any](t TestingT, fx *Fixture, q Query[R]) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckQuery(ctx, fx, q)
	})
}

// CheckQuery runs q on a fresh live context and on the snapshot and
// compares the results, then checks the tracked entry count.
func CheckQuery[R any](ctx context.Context, fx *Fixture, q Query[R]) error {
	if err := q.validate(); err != nil {
		return err
	}
	return checkSequence(ctx, fx, q, nil)
}

// AssertQueryScalar is AssertQuery for sequences of primitives.
func AssertQueryScalar[R Scalar](t TestingT, fx *Fixture, q Query[R]) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckQueryScalar(ctx, fx, q)
	})
}

// CheckQueryScalar compares primitives by natural order and ==. A custom
// Asserter is rejected.
func CheckQueryScalar[R Scalar](ctx context.Context, fx *Fixture, q Query[R]) error {
	if q.Asserter != nil {
		return &AuthoringError{Reason: "scalar queries compare with ==; remove the Asserter"}
	}
	return CheckQuery(ctx, fx, q)
}

// AssertQueryNullable is AssertQueryScalar for optional primitives, such as
// a nullable column read through maybe.Flat. nil sorts first.
func AssertQueryNullable[R Scalar](t TestingT, fx *Fixture, q Query[*R]) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckQueryNullable(ctx, fx, q)
	})
}

// CheckQueryNullable is CheckQueryScalar for optional primitives.
func CheckQueryNullable[R Scalar](ctx context.Context, fx *Fixture, q Query[*R]) error {
	if q.Asserter != nil {
		return &AuthoringError{Reason: "scalar queries compare with ==; remove the Asserter"}
	}
	return CheckQuery(ctx, fx, q)
}

// AssertSingleResult runs CheckSingle and reports a failure to t.
func AssertSingleResult[R any](t TestingT, fx *Fixture, s Single[R]) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckSingle(ctx, fx, s)
	})
}

// CheckSingle compares a terminal operation. Both sides failing with the
// same kind of error is a pass.
func CheckSingle[R any](ctx context.Context, fx *Fixture, s Single[R]) error {
	if err := s.validate(); err != nil {
		return err
	}

	pair, live, err := materialize(ctx, fx, single(s.Provider), single(s.Baseline), s.Async)
	if live != nil {
		defer live.Close()
	}
	if err != nil {
		return err
	}

	switch {
	case pair.ExpectedErr != nil && pair.ActualErr != nil:
		ek, ak := errorKind(pair.ExpectedErr), errorKind(pair.ActualErr)
		if ek != ak {
			return &MismatchError{
				Index:    0,
				Reason:   "both sides failed differently",
				Expected: pair.ExpectedErr.Error(),
				Actual:   pair.ActualErr.Error(),
			}
		}
		fx.logger.Debug("both sides failed alike", "kind", ek)
	case pair.ExpectedErr != nil:
		return &MismatchError{
			Index:    0,
			Reason:   "baseline failed but provider succeeded",
			Expected: pair.ExpectedErr.Error(),
			Actual:   display(pair.Actual[0]),
		}
	case pair.ActualErr != nil:
		return &MismatchError{
			Index:    0,
			Reason:   "provider failed but baseline succeeded",
			Expected: display(pair.Expected[0]),
			Actual:   pair.ActualErr.Error(),
		}
	default:
		cm := comparer[R]{ordered: true, asserter: s.Asserter}
		if err := cm.pair(0, pair.Expected[0], pair.Actual[0]); err != nil {
			return err
		}
	}

	return checkTracking(live, s.EntryCount)
}

// AssertIncludeQuery runs CheckIncludeQuery and reports a failure to t.
func AssertIncludeQuery[R any](t TestingT, fx *Fixture, q IncludeQuery[R]) bool {
	t.Helper()
	return report(t, fx, func(ctx context.Context) error {
		return CheckIncludeQuery(ctx, fx, q)
	})
}

// CheckIncludeQuery is CheckQuery plus a check that every declared include
// is loaded on the live side exactly as it is linked in the snapshot.
func CheckIncludeQuery[R any](ctx context.Context, fx *Fixture, q IncludeQuery[R]) error {
	if err := q.validate(); err != nil {
		return err
	}
	tree, err := q.includeTree()
	if err != nil {
		return err
	}
	return checkSequence(ctx, fx, q.Query, func(expected, actual []R) error {
		for i := range expected {
			eroots, err := q.rootsOf(expected[i])
			if err != nil {
				return err
			}
			aroots, err := q.rootsOf(actual[i])
			if err != nil {
				return err
			}
			if len(eroots) != len(aroots) {
				return &MismatchError{
					Index:    i,
					Reason:   fmt.Sprintf("expected %d include roots, got %d", len(eroots), len(aroots)),
					Expected: model.Keys(eroots),
					Actual:   model.Keys(aroots),
				}
			}
			if err := verifyIncludes(i, tree, eroots, aroots); err != nil {
				return err
			}
		}
		return nil
	})
}

// checkSequence materializes q, aligns both sides, runs extra on the
// aligned results and finally checks tracking.
func checkSequence[R any](ctx context.Context, fx *Fixture, q Query[R], extra func(expected, actual []R) error) error {
	pair, live, err := materialize(ctx, fx, q.Provider, q.Baseline, q.Async)
	if live != nil {
		defer live.Close()
	}
	if err != nil {
		return err
	}
	if pair.ActualErr != nil {
		return fmt.Errorf("provider query: %w", pair.ActualErr)
	}
	if pair.ExpectedErr != nil {
		return fmt.Errorf("baseline query: %w", pair.ExpectedErr)
	}

	expected, actual, err := q.comparer().align(pair.Expected, pair.Actual)
	if err != nil {
		return err
	}
	if extra != nil {
		if err := extra(expected, actual); err != nil {
			return err
		}
	}
	if err := checkTracking(live, q.EntryCount); err != nil {
		return err
	}
	fx.logger.Debug("check passed", "context", live.ID(), "rows", len(actual))
	return nil
}

// errorKind classifies a terminal-operation failure for CheckSingle.
func errorKind(err error) string {
	switch {
	case errors.Is(err, query.ErrNoElements):
		return "no elements"
	case errors.Is(err, query.ErrMoreThanOneElement):
		return "more than one element"
	case queryir.IsSchemaError(err):
		return "schema"
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return reflect.TypeOf(err).String()
		}
		err = next
	}
}

func report(t TestingT, fx *Fixture, check func(ctx context.Context) error) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), fx.cfg.Timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		t.Errorf("%v", err)
		return false
	}
	return true
}
