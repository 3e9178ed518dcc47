// Package provider is the live side of every check: a tracked context over
// the SQLite store.
//
// A Context behaves like a unit-of-work session:
//   - queries are compiled by querysql and run against the store
//   - materialized entities are identity-resolved against the change
//     tracker, so one key maps to one instance for the context's lifetime
//   - Includes load as split queries and are fixed up into the graph
//   - only one operation may be in flight; a competing call fails at once
//     with *query.ConcurrentAccessError
//
// Tracking is staged per operation and committed when the operation
// finishes. A canceled or failed operation leaves the tracker untouched.
package provider
