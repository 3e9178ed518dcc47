package harness

import (
	"context"
	"fmt"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/oracle"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
)

// Probe runs the concurrency guard and the cancellation check with the
// scenario's query.
//
// The guard holds the scenario's row query open and competes with the same
// query, or with the aggregate for aggregate scenarios. It is skipped when
// the baseline has no rows, since there is nothing to hold. Cancellation
// is checked for row scenarios only.
func (h *Harness) Probe(ctx context.Context, s *Scenario) error {
	sel, err := s.Query.Select()
	if err != nil {
		return fmt.Errorf("scenario %s: query: %w", s.Name, err)
	}
	base := sel
	if s.Baseline != nil {
		if base, err = s.Baseline.Select(); err != nil {
			return fmt.Errorf("scenario %s: baseline: %w", s.Name, err)
		}
	}

	roots, err := h.fx.Snapshot().Fetch(ctx, base)
	if err != nil {
		return fmt.Errorf("scenario %s: baseline: %w", s.Name, err)
	}

	if len(roots) > 0 {
		gc := oracle.GuardCase{Hold: sel}
		if s.Aggregate != nil {
			agg := s.Aggregate.Aggregate()
			gc.Compete = func(ctx context.Context, src query.Source) error {
				_, err := src.Aggregate(ctx, sel, agg)
				return err
			}
		}
		if err := oracle.CheckConcurrencyGuard(ctx, h.fx, gc); err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	} else {
		h.logger.Debug("guard skipped, nothing to hold", "scenario", s.Name)
	}

	if s.Aggregate != nil {
		return nil
	}
	entries, err := expectedEntries(ctx, h.fx.Snapshot(), sel, base)
	if err != nil {
		return fmt.Errorf("scenario %s: derive entry count: %w", s.Name, err)
	}
	q := oracle.Query[model.Entity]{
		Provider:    fetch(sel),
		Baseline:    fetch(base),
		AssertOrder: s.Expect.Ordered,
		EntryCount:  entries,
	}
	if err := oracle.CheckCancellation(ctx, h.fx, q); err != nil {
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	h.logger.Info("scenario probed", "scenario", s.Name, "attempts", h.fx.Config().Attempts)
	return nil
}

func fetch(sel queryir.Select) oracle.QueryFunc[model.Entity] {
	return func(ctx context.Context, src query.Source) ([]model.Entity, error) {
		return src.Fetch(ctx, sel)
	}
}
