package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/qoracle/internal/model"
)

// ScanEntity scans the current row into a new entity of t.
// The row's columns must be t.Columns in order.
func ScanEntity(rows *sql.Rows, t model.Type) (model.Entity, error) {
	values := make([]any, len(t.Columns))
	ptrs := make([]any, len(t.Columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.Set, err)
	}

	e := t.New()
	for i, col := range t.Columns {
		if err := e.Assign(col, values[i]); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Set, err)
		}
	}
	return e, nil
}

// ScanAggregate reads the single integer result of an aggregate query.
// A NULL result (SUM, MIN or MAX over no values) returns nil.
func ScanAggregate(rows *sql.Rows) (*int64, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("aggregate returned no row")
	}
	var v sql.NullInt64
	if err := rows.Scan(&v); err != nil {
		return nil, fmt.Errorf("scan aggregate: %w", err)
	}
	if !v.Valid {
		return nil, nil
	}
	n := v.Int64
	return &n, nil
}
