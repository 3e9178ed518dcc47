package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
)

// ValidationResult contains portability analysis of a query.
//
// A portable query can be evaluated both by the SQL backend and in memory
// against the baseline snapshot.
type ValidationResult struct {
	// IsPortable indicates if the query uses only portable fragment features.
	IsPortable bool

	// Warnings lists non-portable features used in the query.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks if a query conforms to the portable fragment rules.
//
// Non-portable queries are allowed and execute correctly with the SQL
// backend; they just cannot stand in for their own baseline.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addWarning("nil query - portable fragment requires valid query nodes")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validatePredicate(query.Filter)
	case *Select:
		v.validatePredicate(query.Filter)
	case Aggregate, *Aggregate:
		// Aggregates carry no predicates of their own.
	default:
		v.addWarning("Unknown query type: %T - portability cannot be verified", q)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return
	}

	switch pred := p.(type) {
	case Equals, NotEquals, Compare, IsNull, IsNotNull:
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Not:
		v.validatePredicate(pred.Predicate)
	case Raw:
		v.addWarning("Raw SQL fragment %q - provider-specific, no in-memory evaluation", pred.SQL)
	default:
		v.addWarning("Unknown predicate type: %T - portability cannot be verified", p)
	}
}

// SchemaError reports a Select that references sets, columns or navigations
// the model does not declare.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// IsSchemaError returns true if err is a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// CheckSchema resolves every set, field, navigation and include path of sel
// against the model metadata.
func CheckSchema(sel Select) error {
	c := &schemaChecker{}
	if _, err := model.TypeOf(sel.From); err != nil {
		c.add("%v", err)
		return c.err()
	}
	c.predicate(sel.From, sel.Filter)
	for _, o := range sel.OrderBy {
		c.field(sel.From, o.Field)
	}
	for _, inc := range sel.Includes {
		if _, err := ResolveInclude(sel.From, inc); err != nil {
			c.add("include %q: %v", inc, err)
		}
	}
	if sel.Limit < 0 {
		c.add("negative limit %d", sel.Limit)
	}
	if sel.Offset < 0 {
		c.add("negative offset %d", sel.Offset)
	}
	return c.err()
}

// CheckAggregate validates an aggregate over sel.
func CheckAggregate(sel Select, agg Aggregate) error {
	c := &schemaChecker{}
	if err := CheckSchema(sel); err != nil {
		return err
	}
	switch agg.Func {
	case AggCount:
		if agg.Field != "" {
			c.field(sel.From, agg.Field)
		}
	case AggSum, AggMin, AggMax:
		if agg.Field == "" {
			c.add("%s requires a field", agg.Func)
		} else {
			c.field(sel.From, agg.Field)
		}
	default:
		c.add("unknown aggregate %q", agg.Func)
	}
	return c.err()
}

type schemaChecker struct {
	problems []string
}

func (c *schemaChecker) add(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *schemaChecker) err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return &SchemaError{Problems: c.problems}
}

func (c *schemaChecker) field(set, field string) {
	if _, err := ResolvePath(set, field); err != nil {
		c.add("field %q: %v", field, err)
	}
}

func (c *schemaChecker) value(field string, v ir.IRValue) {
	if _, err := ir.Native(v); err != nil {
		c.add("field %q: %v", field, err)
	}
}

func (c *schemaChecker) predicate(set string, p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		c.field(set, pred.Field)
		c.value(pred.Field, pred.Value)
	case NotEquals:
		c.field(set, pred.Field)
		c.value(pred.Field, pred.Value)
	case Compare:
		c.field(set, pred.Field)
		c.value(pred.Field, pred.Value)
		switch pred.Op {
		case OpLt, OpLe, OpGt, OpGe:
		default:
			c.add("field %q: unknown operator %q", pred.Field, pred.Op)
		}
	case IsNull:
		c.field(set, pred.Field)
	case IsNotNull:
		c.field(set, pred.Field)
	case And:
		for _, sub := range pred.Predicates {
			c.predicate(set, sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			c.predicate(set, sub)
		}
	case Not:
		if pred.Predicate == nil {
			c.add("NOT without operand")
		}
		c.predicate(set, pred.Predicate)
	case Raw:
		for i, a := range pred.Args {
			c.value(fmt.Sprintf("raw arg %d", i), a)
		}
	default:
		c.add("unknown predicate type %T", p)
	}
}

// Path is a resolved field path: reference hops followed by a column.
type Path struct {
	Hops   []model.Navigation
	Column string
}

// ResolvePath resolves field against set. Hops must be reference
// navigations; collections cannot be compared against a scalar.
func ResolvePath(set, field string) (Path, error) {
	hopNames, column := SplitPath(field)
	var p Path
	current := set
	for _, name := range hopNames {
		nav, err := model.NavigationOf(current, name)
		if err != nil {
			return Path{}, err
		}
		if nav.Collection {
			return Path{}, fmt.Errorf("%s.%s is a collection navigation", current, name)
		}
		p.Hops = append(p.Hops, nav)
		current = nav.Target
	}
	t, err := model.TypeOf(current)
	if err != nil {
		return Path{}, err
	}
	if !t.HasColumn(column) {
		return Path{}, &model.UnknownColumnError{Set: current, Column: column}
	}
	p.Column = column
	return p, nil
}

// ResolveInclude resolves a dotted include path into navigations.
// Unlike field paths, includes may traverse collections.
func ResolveInclude(set, path string) ([]model.Navigation, error) {
	if path == "" {
		return nil, errors.New("empty include path")
	}
	var navs []model.Navigation
	current := set
	for _, name := range strings.Split(path, ".") {
		nav, err := model.NavigationOf(current, name)
		if err != nil {
			return nil, err
		}
		navs = append(navs, nav)
		current = nav.Target
	}
	return navs, nil
}
