package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/oracle"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
	"github.com/roach88/qoracle/internal/snapshot"
)

// Harness runs scenarios against one fixture. Every scenario gets a fresh
// live context from the fixture; the snapshot is shared.
type Harness struct {
	fx     *oracle.Fixture
	logger *slog.Logger
}

// New creates a harness. A nil logger discards output.
func New(fx *oracle.Fixture, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{fx: fx, logger: logger}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Convert the query and baseline specs to queryir.Select
// 2. Derive the expected tracked entry count unless the scenario gives one
// 3. Check live against baseline through the oracle
// 4. Evaluate the expect clause against the live result
//
// Oracle failures are recorded in the result. The returned error is for
// scenarios that cannot be checked at all: authoring defects and
// cancellation of ctx.
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	sel, err := s.Query.Select()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: query: %w", s.Name, err)
	}
	base := sel
	if s.Baseline != nil {
		if base, err = s.Baseline.Select(); err != nil {
			return nil, fmt.Errorf("scenario %s: baseline: %w", s.Name, err)
		}
	}

	result := NewResult(s.Name)
	var checkErr error
	if s.Aggregate != nil {
		checkErr = h.runAggregate(ctx, s, sel, base, result)
	} else {
		checkErr = h.runQuery(ctx, s, sel, base, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	if checkErr != nil {
		if oracle.IsAuthoringError(checkErr) || oracle.IsCancellation(checkErr) {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, checkErr)
		}
		result.AddError(checkErr.Error())
	}

	for _, msg := range EvaluateExpect(s.Expect, result) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", s.Name,
		"pass", result.Pass,
		"rows", len(result.Rows),
		"entries", result.Entries,
	)
	return result, nil
}

func (h *Harness) runQuery(ctx context.Context, s *Scenario, sel, base queryir.Select, result *Result) error {
	entries := 0
	if s.Expect.Entries != nil {
		entries = *s.Expect.Entries
	} else {
		n, err := expectedEntries(ctx, h.fx.Snapshot(), sel, base)
		if err != nil {
			return fmt.Errorf("derive entry count: %w", err)
		}
		entries = n
	}

	var live []model.Entity
	q := oracle.Query[model.Entity]{
		Provider: func(ctx context.Context, src query.Source) ([]model.Entity, error) {
			rows, err := src.Fetch(ctx, sel)
			if lc, ok := src.(oracle.Context); ok && err == nil {
				live = rows
				result.Entries = tracked(lc)
			}
			return rows, err
		},
		Baseline:    fetch(base),
		AssertOrder: s.Expect.Ordered,
		EntryCount:  entries,
	}

	var err error
	if len(s.Expect.Includes) > 0 {
		includes := make([]oracle.ExpectedInclude, len(s.Expect.Includes))
		for i, inc := range s.Expect.Includes {
			includes[i] = oracle.ExpectedInclude{ID: inc.ID, Set: inc.Set, Navigation: inc.Navigation, Parent: inc.Parent}
		}
		err = oracle.CheckIncludeQuery(ctx, h.fx, oracle.IncludeQuery[model.Entity]{Query: q, Includes: includes})
	} else {
		err = oracle.CheckQuery(ctx, h.fx, q)
	}

	rows, rowErr := rowsOf(live, s.Expect.Ordered)
	if rowErr != nil && err == nil {
		err = rowErr
	}
	result.Rows = rows
	return err
}

func (h *Harness) runAggregate(ctx context.Context, s *Scenario, sel, base queryir.Select, result *Result) error {
	agg := s.Aggregate.Aggregate()
	return oracle.CheckSingle(ctx, h.fx, oracle.Single[*int64]{
		Provider: func(ctx context.Context, src query.Source) (*int64, error) {
			v, err := src.Aggregate(ctx, sel, agg)
			if _, ok := src.(oracle.Context); ok && err == nil {
				result.Value = v
			}
			return v, err
		},
		Baseline: func(ctx context.Context, src query.Source) (*int64, error) {
			return src.Aggregate(ctx, base, agg)
		},
	})
}

// tracked counts the entries a context still tracks.
func tracked(lc oracle.Context) int {
	n := 0
	for _, e := range lc.Entries() {
		if e.State != query.Detached {
			n++
		}
	}
	return n
}

// rowsOf converts live entities to rows. Unordered results are reported in
// key order so golden files do not depend on the database's scan order.
func rowsOf(live []model.Entity, ordered bool) ([]Row, error) {
	entities := slices.Clone(live)
	if !ordered {
		var sortErr error
		slices.SortStableFunc(entities, func(a, b model.Entity) int {
			c, err := queryir.CompareKeys(a, b)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return c
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	rows := make([]Row, len(entities))
	for i, e := range entities {
		fp, err := ir.RowFingerprint(model.Scalars(e))
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", e.Key(), err)
		}
		rows[i] = Row{Key: e.Key().String(), Fingerprint: fp}
	}
	return rows, nil
}

// expectedEntries counts what a tracking query leaves in the change
// tracker: the baseline rows plus every entity reachable through the live
// query's include paths.
func expectedEntries(ctx context.Context, snap *snapshot.Snapshot, sel, base queryir.Select) (int, error) {
	if sel.NoTracking {
		return 0, nil
	}
	roots, err := snap.Fetch(ctx, base)
	if err != nil {
		return 0, err
	}

	seen := make(map[model.Key]bool, len(roots))
	for _, e := range roots {
		seen[e.Key()] = true
	}
	for _, path := range sel.Includes {
		navs, err := queryir.ResolveInclude(sel.From, path)
		if err != nil {
			return 0, err
		}
		level := roots
		for _, nav := range navs {
			var next []model.Entity
			for _, e := range level {
				for _, t := range e.Navigate(nav.Name) {
					seen[t.Key()] = true
					next = append(next, t)
				}
			}
			level = next
		}
	}
	return len(seen), nil
}
