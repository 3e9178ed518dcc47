// Package queryir provides the abstract query representation that both the
// live provider and the baseline snapshot execute.
//
// A Select is the boundary between test code and a backend: the provider
// compiles it to SQL (querysql), the snapshot evaluates it in memory (Eval).
// Running the same Select on both sides is what makes an explicit baseline
// optional.
//
// PORTABLE FRAGMENT:
//
// The portable fragment includes:
//   - Select(from, filter, order, limit, offset, distinct, includes)
//   - Predicates: Equals, NotEquals, Compare, IsNull, IsNotNull, And, Or, Not
//   - Navigation paths in fields ("customer.city"), reference hops only
//   - Aggregates: COUNT, SUM, MIN, MAX
//
// The portable fragment EXCLUDES:
//   - Raw SQL fragments (provider-specific, no in-memory meaning)
//
// NULL SEMANTICS:
//
// Predicates follow SQL three-valued logic. A comparison with NULL, or with a
// path whose optional navigation is missing, is Unknown; Not(Unknown) is
// Unknown; a row is selected only when its filter is True. Ordering puts
// NULLs first ascending and last descending, as SQLite does. Strings compare
// by bytes (SQLite BINARY collation).
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so backends can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case And:
//	...
//	}
//
// All literal values use ir.IRValue types (no floats).
package queryir
