// Package store provides the SQLite database the live provider queries.
//
// The schema is a small Northwind: customers, employees, products, orders
// and order_details. Seed loads the deterministic fixture data set in one
// transaction, so every test starts from identical rows.
//
// # Drivers
//
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo, default)
//   - "sqlite":  modernc.org/sqlite (pure Go)
//
// Both decode the same schema; the only observable difference is that
// go-sqlite3 returns BOOLEAN columns as bool and modernc as int64, which
// model.Entity.Assign accepts either way.
//
// # Database Configuration
//
//   - WAL mode for file databases
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: an in-memory database lives exactly as long as
//     its single connection
package store
