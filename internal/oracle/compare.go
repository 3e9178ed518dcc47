package oracle

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/qoracle/internal/model"
)

// entityScalars compares entities by column values and ignores loaded
// navigations, which differ between a fully linked snapshot and a context
// that loaded only what it was asked to.
var entityScalars = gocmp.Transformer("Scalars", func(e model.Entity) map[string]any {
	return model.Scalars(e)
})

// diffOptions lets projections with unexported fields be diffed instead of
// panicking inside go-cmp.
var diffOptions = []gocmp.Option{
	entityScalars,
	gocmp.Exporter(func(reflect.Type) bool { return true }),
}

// Collection configures AssertCollection.
type Collection[R any] struct {
	// Path names the collection in failure messages.
	Path     string
	Ordered  bool
	Sorter   func(R) any
	Asserter func(t assert.TestingT, expected, actual R)
}

// AssertCollection compares a nested sequence from inside an element
// asserter. Failures are reported to t with the collection path.
func AssertCollection[R any](t assert.TestingT, expected, actual []R, c Collection[R]) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if c.Ordered && c.Sorter != nil {
		t.Errorf("%s", &AuthoringError{Reason: fmt.Sprintf("collection %s: Sorter has no effect when Ordered is set", c.Path)})
		return false
	}
	cm := comparer[R]{ordered: c.Ordered, sorter: c.Sorter, asserter: c.Asserter, path: c.Path}
	if _, _, err := cm.align(expected, actual); err != nil {
		t.Errorf("%s", err)
		return false
	}
	return true
}

type comparer[R any] struct {
	ordered  bool
	sorter   func(R) any
	asserter func(t assert.TestingT, expected, actual R)
	path     string
}

// align compares expected with actual and returns both in comparison
// order: result order when ordered, sort-key order otherwise.
func (c comparer[R]) align(expected, actual []R) ([]R, []R, error) {
	if len(expected) != len(actual) {
		return nil, nil, &MismatchError{
			Path:     c.path,
			Index:    -1,
			Reason:   fmt.Sprintf("expected %d elements, got %d", len(expected), len(actual)),
			Expected: c.describe(expected),
			Actual:   c.describe(actual),
		}
	}

	if !c.ordered {
		var err error
		if expected, err = c.sort(expected); err != nil {
			return nil, nil, err
		}
		if actual, err = c.sort(actual); err != nil {
			return nil, nil, err
		}
	}

	for i := range expected {
		if err := c.pair(i, expected[i], actual[i]); err != nil {
			return nil, nil, err
		}
	}
	return expected, actual, nil
}

// sort returns a sorted copy. Equal keys keep result order.
func (c comparer[R]) sort(xs []R) ([]R, error) {
	if len(xs) < 2 {
		return xs, nil
	}
	keys := make([]any, len(xs))
	for i, x := range xs {
		k, ok := c.key(x)
		if !ok {
			return nil, &AuthoringError{Reason: fmt.Sprintf("cannot order %T without a Sorter", x)}
		}
		keys[i] = k
	}
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return compareKeys(keys[a], keys[b])
	})
	out := make([]R, len(xs))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out, nil
}

func (c comparer[R]) key(x R) (any, bool) {
	if c.sorter != nil {
		return c.sorter(x), true
	}
	return defaultKey(x)
}

func (c comparer[R]) pair(i int, expected, actual R) error {
	var key string
	if k, ok := c.key(expected); ok {
		key = fmt.Sprint(k)
	}

	if c.asserter != nil {
		rec := &recorder{}
		c.asserter(rec, expected, actual)
		if len(rec.messages) == 0 {
			return nil
		}
		return &MismatchError{
			Path: c.path, Index: i, Key: key,
			Reason:   "asserter failed",
			Expected: expected, Actual: actual,
			Messages: rec.messages,
		}
	}

	if diff := gocmp.Diff(expected, actual, diffOptions...); diff != "" {
		return &MismatchError{
			Path: c.path, Index: i, Key: key,
			Expected: display(expected), Actual: display(actual),
			Diff: diff,
		}
	}
	return nil
}

// describe summarizes a sequence for a length mismatch.
func (c comparer[R]) describe(xs []R) string {
	const shown = 10
	parts := make([]string, 0, min(len(xs), shown)+1)
	for i, x := range xs {
		if i == shown {
			parts = append(parts, fmt.Sprintf("... %d more", len(xs)-shown))
			break
		}
		if k, ok := c.key(x); ok {
			parts = append(parts, fmt.Sprint(k))
		} else {
			parts = append(parts, fmt.Sprint(display(x)))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// display replaces entities by their scalars so failure output does not
// walk the object graph.
func display(v any) any {
	if e, ok := v.(model.Entity); ok && !model.IsNil(e) {
		return model.Scalars(e)
	}
	return v
}

// recorder collects failures reported by a custom asserter.
type recorder struct {
	messages []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recorder) Helper() {}

// defaultKey is the identity used when no Sorter is given: the key of an
// entity, SortKey of a Keyed value, or the value itself for scalars and
// pointers to scalars.
func defaultKey(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case model.Entity:
		if model.IsNil(x) {
			return nil, true
		}
		return x.Key(), true
	case Keyed:
		return x.SortKey(), true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	k, ok := natural(rv)
	return k, ok
}

// natural normalizes a scalar to int64, uint64, float64, string or bool.
func natural(rv reflect.Value) (any, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	}
	return nil, false
}

// compareKeys orders sort keys. nil sorts first; []any compares element by
// element; values of different kinds order by type name.
func compareKeys(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch x := a.(type) {
	case model.Key:
		if y, ok := b.(model.Key); ok {
			return x.Compare(y)
		}
	case []any:
		if y, ok := b.([]any); ok {
			for i, n := 0, min(len(x), len(y)); i < n; i++ {
				if c := compareKeys(x[i], y[i]); c != 0 {
					return c
				}
			}
			return cmp.Compare(len(x), len(y))
		}
	}

	av, aok := defaultKey(a)
	bv, bok := defaultKey(b)
	if aok && bok && av != nil && bv != nil {
		switch x := av.(type) {
		case int64:
			if y, ok := bv.(int64); ok {
				return cmp.Compare(x, y)
			}
		case uint64:
			if y, ok := bv.(uint64); ok {
				return cmp.Compare(x, y)
			}
		case float64:
			if y, ok := bv.(float64); ok {
				return cmp.Compare(x, y)
			}
		case string:
			if y, ok := bv.(string); ok {
				return cmp.Compare(x, y)
			}
		case bool:
			if y, ok := bv.(bool); ok {
				return compareBool(x, y)
			}
		}
	}

	if ta, tb := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b); ta != tb {
		return cmp.Compare(ta, tb)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
