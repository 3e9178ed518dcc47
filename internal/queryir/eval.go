package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
)

// Truth is a three-valued logic value.
type Truth int8

// Truth values.
const (
	False Truth = iota
	Unknown
	True
)

func (t Truth) String() string {
	switch t {
	case False:
		return "FALSE"
	case True:
		return "TRUE"
	default:
		return "UNKNOWN"
	}
}

func (t Truth) not() Truth {
	switch t {
	case False:
		return True
	case True:
		return False
	default:
		return Unknown
	}
}

// NonPortableError is returned when in-memory evaluation meets a
// provider-specific construct.
type NonPortableError struct {
	Feature string
}

func (e *NonPortableError) Error() string {
	return fmt.Sprintf("%s is provider-specific and has no in-memory evaluation", e.Feature)
}

// IsNonPortable returns true if err is a *NonPortableError.
func IsNonPortable(err error) bool {
	var np *NonPortableError
	return errors.As(err, &np)
}

// Matches reports whether e satisfies p. A nil predicate matches everything.
func Matches(p Predicate, e model.Entity) (bool, error) {
	if p == nil {
		return true, nil
	}
	t, err := Eval(p, e)
	return t == True, err
}

// Eval evaluates p against e with SQL three-valued logic.
// Navigation hops must be loaded on e; an unloaded or missing reference
// yields NULL.
func Eval(p Predicate, e model.Entity) (Truth, error) {
	switch pred := p.(type) {
	case Equals:
		return evalCompare(e, pred.Field, pred.Value, func(c int) bool { return c == 0 })
	case NotEquals:
		return evalCompare(e, pred.Field, pred.Value, func(c int) bool { return c != 0 })
	case Compare:
		var accept func(int) bool
		switch pred.Op {
		case OpLt:
			accept = func(c int) bool { return c < 0 }
		case OpLe:
			accept = func(c int) bool { return c <= 0 }
		case OpGt:
			accept = func(c int) bool { return c > 0 }
		case OpGe:
			accept = func(c int) bool { return c >= 0 }
		default:
			return Unknown, fmt.Errorf("unknown operator %q", pred.Op)
		}
		return evalCompare(e, pred.Field, pred.Value, accept)
	case IsNull:
		v, err := Value(e, pred.Field)
		if err != nil {
			return Unknown, err
		}
		return truth(v == nil), nil
	case IsNotNull:
		v, err := Value(e, pred.Field)
		if err != nil {
			return Unknown, err
		}
		return truth(v != nil), nil
	case And:
		result := True
		for _, sub := range pred.Predicates {
			t, err := Eval(sub, e)
			if err != nil {
				return Unknown, err
			}
			if t == False {
				return False, nil
			}
			if t == Unknown {
				result = Unknown
			}
		}
		return result, nil
	case Or:
		result := False
		for _, sub := range pred.Predicates {
			t, err := Eval(sub, e)
			if err != nil {
				return Unknown, err
			}
			if t == True {
				return True, nil
			}
			if t == Unknown {
				result = Unknown
			}
		}
		return result, nil
	case Not:
		t, err := Eval(pred.Predicate, e)
		if err != nil {
			return Unknown, err
		}
		return t.not(), nil
	case Raw:
		return Unknown, &NonPortableError{Feature: "raw SQL fragment " + fmt.Sprintf("%q", pred.SQL)}
	case nil:
		return True, nil
	default:
		return Unknown, fmt.Errorf("unknown predicate type %T", p)
	}
}

func truth(b bool) Truth {
	if b {
		return True
	}
	return False
}

func evalCompare(e model.Entity, field string, literal ir.IRValue, accept func(int) bool) (Truth, error) {
	v, err := Value(e, field)
	if err != nil {
		return Unknown, err
	}
	lit, err := ir.Native(literal)
	if err != nil {
		return Unknown, err
	}
	if v == nil || lit == nil {
		return Unknown, nil
	}
	c, err := CompareValues(v, lit)
	if err != nil {
		return Unknown, fmt.Errorf("field %q: %w", field, err)
	}
	return truth(accept(c)), nil
}

// Value resolves a field path on e. Each reference hop behaves like
// maybe.Ref: a missing target makes the whole path NULL (nil).
func Value(e model.Entity, field string) (any, error) {
	hops, column := SplitPath(field)
	current := e
	for _, hop := range hops {
		if model.IsNil(current) {
			return nil, nil
		}
		nav, err := model.NavigationOf(current.EntitySet(), hop)
		if err != nil {
			return nil, err
		}
		if nav.Collection {
			return nil, fmt.Errorf("%s.%s is a collection navigation", nav.From, hop)
		}
		targets := current.Navigate(hop)
		if len(targets) == 0 {
			return nil, nil
		}
		current = targets[0]
	}
	if model.IsNil(current) {
		return nil, nil
	}
	v, ok := current.Field(column)
	if !ok {
		return nil, &model.UnknownColumnError{Set: current.EntitySet(), Column: column}
	}
	return v, nil
}

// CompareValues compares two non-NULL column values. Strings compare by
// bytes; booleans compare as 0 and 1 and may be mixed with integers, since
// SQLite stores them that way.
func CompareValues(a, b any) (int, error) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare text with %T", b)
		}
		return strings.Compare(av, bv), nil
	case int64, int, bool:
		ai, bi, err := asInts(a, b)
		if err != nil {
			return 0, err
		}
		switch {
		case ai < bi:
			return -1, nil
		case ai > bi:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("unsupported value type %T", a)
	}
}

func asInts(a, b any) (int64, int64, error) {
	ai, ok := asInt(a)
	if !ok {
		return 0, 0, fmt.Errorf("unsupported value type %T", a)
	}
	bi, ok := asInt(b)
	if !ok {
		return 0, 0, fmt.Errorf("cannot compare integer with %T", b)
	}
	return ai, bi, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// CompareNullable orders values with NULL before any non-NULL value.
func CompareNullable(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	return CompareValues(a, b)
}

// CompareEntities orders a and b by terms, then by key columns ascending.
// Descending terms put NULLs last.
func CompareEntities(a, b model.Entity, terms []Order) (int, error) {
	for _, term := range terms {
		av, err := Value(a, term.Field)
		if err != nil {
			return 0, err
		}
		bv, err := Value(b, term.Field)
		if err != nil {
			return 0, err
		}
		c, err := CompareNullable(av, bv)
		if err != nil {
			return 0, fmt.Errorf("order by %q: %w", term.Field, err)
		}
		if term.Descending {
			c = -c
		}
		if c != 0 {
			return c, nil
		}
	}
	return CompareKeys(a, b)
}

// CompareKeys orders entities of one set by their key column values.
// This matches ORDER BY on the key columns, which differs from comparing
// model.Key strings for numeric ids.
func CompareKeys(a, b model.Entity) (int, error) {
	t, err := model.TypeOf(a.EntitySet())
	if err != nil {
		return 0, err
	}
	for _, col := range t.KeyColumns {
		av, _ := a.Field(col)
		bv, _ := b.Field(col)
		c, err := CompareNullable(av, bv)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}
