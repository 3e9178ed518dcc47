package queryir

import (
	"strings"

	"github.com/roach88/qoracle/internal/ir"
)

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Order is one ORDER BY term.
type Order struct {
	Field      string // column or navigation path
	Descending bool
}

// Select reads entities of one set.
//
// Semantics:
//
//	SELECT [DISTINCT] t.* FROM <from> t [LEFT JOIN ...]
//	WHERE <filter> ORDER BY <order_by>, <key> LIMIT <limit> OFFSET <offset>
//
// Evaluation order is filter, distinct, order, offset, limit. Whenever
// OrderBy, Limit or Offset is set, rows that tie on OrderBy are broken by the
// key columns ascending, so paging is deterministic on every backend.
//
// Includes names navigation paths ("orders", "orders.details") whose targets
// are loaded and linked into the returned entities.
type Select struct {
	From       string
	Filter     Predicate // nil = no filter
	OrderBy    []Order
	Limit      int // 0 = no limit
	Offset     int
	Distinct   bool
	Includes   []string
	NoTracking bool // provider only; results are not added to the change tracker
}

func (Select) queryNode() {}

// Paged reports whether the result depends on row order.
func (s Select) Paged() bool {
	return len(s.OrderBy) > 0 || s.Limit > 0 || s.Offset > 0
}

// AggFunc names an aggregate function.
type AggFunc string

// Aggregate functions.
const (
	AggCount AggFunc = "COUNT"
	AggSum   AggFunc = "SUM"
	AggMin   AggFunc = "MIN"
	AggMax   AggFunc = "MAX"
)

// Aggregate reduces the rows of a Select to one integer.
//
// COUNT with an empty Field counts rows; with a Field it counts non-NULL
// values. SUM, MIN and MAX ignore NULLs and yield NULL over no values.
type Aggregate struct {
	Func  AggFunc
	Field string
}

func (Aggregate) queryNode() {}

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Equals represents <field> = <value>.
// Comparing with ir.IRNull is Unknown, never True.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals represents <field> <> <value>.
type NotEquals struct {
	Field string
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// Compare represents <field> <op> <value>.
type Compare struct {
	Field string
	Op    Op
	Value ir.IRValue
}

func (Compare) predicateNode() {}

// IsNull represents <field> IS NULL. A missing optional navigation on the
// path makes the field NULL.
type IsNull struct {
	Field string
}

func (IsNull) predicateNode() {}

// IsNotNull represents <field> IS NOT NULL.
type IsNotNull struct {
	Field string
}

func (IsNotNull) predicateNode() {}

// And is a conjunction; empty And is True.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction; empty Or is False.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate; Not(Unknown) is Unknown.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Raw is a SQL fragment spliced into the WHERE clause with positional
// arguments. Columns of the root set are addressed through alias t.
//
// Raw is provider-specific: it has no in-memory meaning, so a query using it
// needs an explicit baseline.
type Raw struct {
	SQL  string
	Args []ir.IRValue
}

func (Raw) predicateNode() {}

// SplitPath splits a field path into navigation hops and the final column.
func SplitPath(field string) (hops []string, column string) {
	parts := strings.Split(field, ".")
	return parts[:len(parts)-1], parts[len(parts)-1]
}
