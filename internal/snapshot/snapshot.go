// Package snapshot holds the baseline: an immutable, fully linked in-memory
// copy of the fixture data set that reference queries run against.
//
// The graph is built lazily on first access and shared by every check that
// uses the snapshot. Nothing in this package mutates an entity after the
// build, so concurrent readers need no locking beyond the build itself.
package snapshot

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
)

// Snapshot is the baseline data set.
type Snapshot struct {
	source func() *fixture.Dataset

	mu    sync.Mutex
	once  *sync.Once
	sets  map[string][]model.Entity
	err   error
	built int
}

var _ query.Source = (*Snapshot)(nil)

// New returns a snapshot built from source on first access.
func New(source func() *fixture.Dataset) *Snapshot {
	return &Snapshot{source: source, once: new(sync.Once)}
}

// Northwind returns a snapshot of the Northwind fixture.
func Northwind() *Snapshot {
	return New(fixture.Northwind)
}

func (s *Snapshot) graph() (map[string][]model.Entity, error) {
	s.mu.Lock()
	once := s.once
	s.mu.Unlock()

	once.Do(func() {
		sets, err := link(s.source())
		s.mu.Lock()
		s.sets, s.err = sets, err
		s.built++
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets, s.err
}

// Builds reports how many times the graph has been built.
func (s *Snapshot) Builds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built
}

// Set returns the entities of one set in key order. Each call returns a new
// slice over the same instances.
func (s *Snapshot) Set(name string) ([]model.Entity, error) {
	sets, err := s.graph()
	if err != nil {
		return nil, err
	}
	rows, ok := sets[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity set %q", name)
	}
	return slices.Clone(rows), nil
}

// Close drops the graph. The next access rebuilds it.
func (s *Snapshot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once = new(sync.Once)
	s.sets = nil
	s.err = nil
}

// Fetch evaluates sel in memory with the same semantics the SQL backend
// has. A provider-specific predicate fails with *queryir.NonPortableError.
// Includes need no work: the graph is already fully linked.
func (s *Snapshot) Fetch(ctx context.Context, sel queryir.Select) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := queryir.CheckSchema(sel); err != nil {
		return nil, err
	}
	rows, err := s.Set(sel.From)
	if err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, e := range rows {
		ok, err := queryir.Matches(sel.Filter, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}

	if sel.Distinct {
		if out, err = distinct(out); err != nil {
			return nil, err
		}
	}

	if sel.Paged() {
		var sortErr error
		slices.SortStableFunc(out, func(a, b model.Entity) int {
			c, err := queryir.CompareEntities(a, b, sel.OrderBy)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return c
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	if sel.Offset > 0 {
		if sel.Offset >= len(out) {
			out = out[:0]
		} else {
			out = out[sel.Offset:]
		}
	}
	if sel.Limit > 0 && len(out) > sel.Limit {
		out = out[:sel.Limit]
	}
	return out, nil
}

// Aggregate evaluates agg over sel in memory. NULL field values are skipped;
// SUM, MIN and MAX over no values return nil.
func (s *Snapshot) Aggregate(ctx context.Context, sel queryir.Select, agg queryir.Aggregate) (*int64, error) {
	if err := queryir.CheckAggregate(sel, agg); err != nil {
		return nil, err
	}
	rows, err := s.Fetch(ctx, sel)
	if err != nil {
		return nil, err
	}

	var acc *int64
	var count int64
	for _, e := range rows {
		if agg.Field == "" {
			count++
			continue
		}
		v, err := queryir.Value(e, agg.Field)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		n, ok := v.(int64)
		if !ok {
			if agg.Func != queryir.AggCount {
				return nil, fmt.Errorf("%s(%s): non-integer value %T", agg.Func, agg.Field, v)
			}
		}
		count++
		switch agg.Func {
		case queryir.AggSum:
			if acc == nil {
				acc = new(int64)
			}
			*acc += n
		case queryir.AggMin:
			if acc == nil || n < *acc {
				acc = &n
			}
		case queryir.AggMax:
			if acc == nil || n > *acc {
				acc = &n
			}
		}
	}

	if agg.Func == queryir.AggCount {
		return &count, nil
	}
	return acc, nil
}

func distinct(rows []model.Entity) ([]model.Entity, error) {
	seen := make(map[string]bool, len(rows))
	out := make([]model.Entity, 0, len(rows))
	for _, e := range rows {
		fp, err := ir.RowFingerprint(model.Scalars(e))
		if err != nil {
			return nil, err
		}
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, e)
	}
	return out, nil
}
