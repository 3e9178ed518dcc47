package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/model"
)

// ErrAlreadySeeded is returned by Seed when the database already holds rows.
var ErrAlreadySeeded = errors.New("database already seeded")

// Seed inserts every row of d in one transaction, sets in
// fixture.InsertOrder. Either all rows land or none do.
func (s *Store) Seed(ctx context.Context, d *fixture.Dataset) error {
	var existing int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&existing); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if existing > 0 {
		return ErrAlreadySeeded
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	for _, set := range fixture.InsertOrder {
		t, err := model.TypeOf(set)
		if err != nil {
			return err
		}
		rows, err := d.Rows(set)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, insertSQL(t))
		if err != nil {
			return fmt.Errorf("seed %s: prepare: %w", set, err)
		}
		for _, e := range rows {
			args := make([]any, len(t.Columns))
			for i, col := range t.Columns {
				args[i], _ = e.Field(col)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				stmt.Close()
				return fmt.Errorf("seed %s %s: %w", set, e.Key().ID, err)
			}
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("seed %s: %w", set, err)
		}
	}

	// Deferred constraints are checked here rather than by COMMIT: a failed
	// COMMIT leaves SQLite inside the transaction.
	if err := foreignKeyCheck(ctx, tx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}

// Counts returns the row count of every set.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(model.Types))
	for _, set := range model.SetNames() {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+set).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", set, err)
		}
		counts[set] = n
	}
	return counts, nil
}

func foreignKeyCheck(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var table, parent string
		var rowid, fkid any
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("foreign key check: %w", err)
		}
		return fmt.Errorf("foreign key violation: %s row %v references missing %s", table, rowid, parent)
	}
	return rows.Err()
}

func insertSQL(t model.Type) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Set, strings.Join(t.Columns, ", "), placeholders)
}
