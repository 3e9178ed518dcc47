// Package ir provides the literal value types used by the query IR and the
// canonical encoding used to fingerprint materialized rows.
//
// ir imports nothing internal; queryir, querysql, snapshot and harness all
// build on it.
//
// Key design constraints:
//   - NO float types anywhere - money is stored in integer cents
//   - Canonical JSON follows RFC 8785 key ordering and NFC-normalizes strings
//   - Unlike identity hashing in general, NULL is a legal row value here,
//     because nullable columns are the whole point of the null-semantics checks
package ir
