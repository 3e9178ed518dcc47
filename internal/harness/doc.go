// Package harness runs declarative query scenarios through the oracle.
//
// A scenario is a YAML file describing one portable query (or an aggregate
// over it) and what running it must produce:
//
//	name: london-customers
//	description: Six customers live in London
//	query:
//	  from: customers
//	  where:
//	    eq: {field: city, value: London}
//	expect:
//	  rows: 6
//	  entries: 6
//
// Files are decoded strictly (unknown fields are errors) and validated
// against an embedded CUE schema before they are converted to a
// queryir.Select. Run checks the scenario with oracle.CheckQuery or
// oracle.CheckSingle against a shared fixture, then evaluates the expect
// clause against the live rows. RunWithGolden additionally snapshots the
// row keys with goldie.
//
// A scenario whose query is not portable (it uses a raw SQL fragment) must
// give a portable baseline query producing the same rows.
package harness
