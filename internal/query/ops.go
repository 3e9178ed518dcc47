package query

import (
	"context"
	"fmt"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
)

// From fetches sel and narrows every entity to T.
func From[T model.Entity](ctx context.Context, src Source, sel queryir.Select) ([]T, error) {
	rows, err := src.Fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, e := range rows {
		v, ok := e.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("%s: got %T, want %T", sel.From, e, zero)
		}
		out[i] = v
	}
	return out, nil
}

// Count returns the number of rows sel selects.
func Count(ctx context.Context, src Source, sel queryir.Select) (int64, error) {
	v, err := src.Aggregate(ctx, sel, queryir.Aggregate{Func: queryir.AggCount})
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// Any reports whether sel selects at least one row.
func Any(ctx context.Context, src Source, sel queryir.Select) (bool, error) {
	n, err := Count(ctx, src, sel)
	return n > 0, err
}

// Sum adds field over sel; an empty or all-NULL input sums to 0.
func Sum(ctx context.Context, src Source, sel queryir.Select, field string) (int64, error) {
	v, err := src.Aggregate(ctx, sel, queryir.Aggregate{Func: queryir.AggSum, Field: field})
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// Min returns the smallest non-NULL field value, or ErrNoElements.
func Min(ctx context.Context, src Source, sel queryir.Select, field string) (int64, error) {
	return extreme(ctx, src, sel, queryir.AggMin, field)
}

// Max returns the largest non-NULL field value, or ErrNoElements.
func Max(ctx context.Context, src Source, sel queryir.Select, field string) (int64, error) {
	return extreme(ctx, src, sel, queryir.AggMax, field)
}

func extreme(ctx context.Context, src Source, sel queryir.Select, fn queryir.AggFunc, field string) (int64, error) {
	v, err := src.Aggregate(ctx, sel, queryir.Aggregate{Func: fn, Field: field})
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%s(%s): %w", fn, field, ErrNoElements)
	}
	return *v, nil
}

// First returns the first entity of sel, or ErrNoElements.
// Without OrderBy the first entity is the one with the lowest key.
func First[T model.Entity](ctx context.Context, src Source, sel queryir.Select) (T, error) {
	v, ok, err := first[T](ctx, src, sel)
	if err == nil && !ok {
		err = fmt.Errorf("first %s: %w", sel.From, ErrNoElements)
	}
	return v, err
}

// FirstOrNil is First returning the zero T instead of ErrNoElements.
func FirstOrNil[T model.Entity](ctx context.Context, src Source, sel queryir.Select) (T, error) {
	v, _, err := first[T](ctx, src, sel)
	return v, err
}

func first[T model.Entity](ctx context.Context, src Source, sel queryir.Select) (T, bool, error) {
	var zero T
	sel.Limit = 1
	rows, err := From[T](ctx, src, sel)
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	return rows[0], true, nil
}

// Single returns the only entity of sel. It fails with ErrNoElements or
// ErrMoreThanOneElement otherwise.
func Single[T model.Entity](ctx context.Context, src Source, sel queryir.Select) (T, error) {
	var zero T
	if sel.Limit == 0 || sel.Limit > 2 {
		sel.Limit = 2
	}
	rows, err := From[T](ctx, src, sel)
	if err != nil {
		return zero, err
	}
	switch len(rows) {
	case 0:
		return zero, fmt.Errorf("single %s: %w", sel.From, ErrNoElements)
	case 1:
		return rows[0], nil
	default:
		return zero, fmt.Errorf("single %s: %w", sel.From, ErrMoreThanOneElement)
	}
}

// Select projects every element of xs.
func Select[T, R any](xs []T, f func(T) R) []R {
	out := make([]R, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

// Where keeps the elements of xs for which keep returns true.
func Where[T any](xs []T, keep func(T) bool) []T {
	var out []T
	for _, x := range xs {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

// Distinct removes repeated elements, keeping first occurrences in order.
func Distinct[T comparable](xs []T) []T {
	seen := make(map[T]struct{}, len(xs))
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}
