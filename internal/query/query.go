// Package query is the contract between query-running code and the two
// sides it can run against: a tracked live context and the baseline
// snapshot.
//
// Test queries are written once as functions over Source, then executed
// against either side. The terminal helpers (Count, Sum, First, Single ...)
// fail with the same sentinel errors on both sides, so "both sides threw the
// same kind of error" is a comparable outcome.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
)

// Terminal operation failures.
var (
	ErrNoElements         = errors.New("sequence contains no elements")
	ErrMoreThanOneElement = errors.New("sequence contains more than one element")
)

// Source executes queries. Both the live context and the snapshot
// implement it.
type Source interface {
	// Fetch materializes every entity sel selects.
	Fetch(ctx context.Context, sel queryir.Select) ([]model.Entity, error)

	// Aggregate reduces sel to one integer; nil is SQL NULL.
	Aggregate(ctx context.Context, sel queryir.Select, agg queryir.Aggregate) (*int64, error)
}

// Streamer is implemented by sources that can hand out a lazy cursor.
type Streamer interface {
	Stream(ctx context.Context, sel queryir.Select) (Cursor, error)
}

// Cursor yields entities one at a time. Next returns io.EOF after the last
// entity. Close must be called even after io.EOF.
type Cursor interface {
	Next(ctx context.Context) (model.Entity, error)
	Close() error
}

// EntryState is the change tracker's view of an entity.
type EntryState int

// Entry states.
const (
	Unchanged EntryState = iota
	Added
	Modified
	Deleted
	Detached
)

func (s EntryState) String() string {
	switch s {
	case Unchanged:
		return "Unchanged"
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	case Detached:
		return "Detached"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

// Entry is one tracked entity.
type Entry struct {
	Key    model.Key
	Entity model.Entity
	State  EntryState
}

// ConcurrentAccessError is returned when a context is asked to start an
// operation while another one is still in flight.
type ConcurrentAccessError struct {
	ContextID string
	Operation string
}

func (e *ConcurrentAccessError) Error() string {
	return fmt.Sprintf("context %s: %s started while a previous operation is still in progress; a context supports one operation at a time", e.ContextID, e.Operation)
}

// IsConcurrentAccess returns true if err is a *ConcurrentAccessError.
func IsConcurrentAccess(err error) bool {
	var ca *ConcurrentAccessError
	return errors.As(err, &ca)
}
