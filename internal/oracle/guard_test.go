package oracle

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
	"github.com/roach88/qoracle/internal/snapshot"
	"github.com/roach88/qoracle/internal/testutil"
)

var allOrders = queryir.Select{From: model.SetOrders}

func TestCheckConcurrencyGuard(t *testing.T) {
	ids := testutil.NewSequentialIDs("guard")
	fx := newFixture(t, WithContextIDs(ids.Next))

	err := CheckConcurrencyGuard(context.Background(), fx, GuardCase{Hold: allOrders})
	require.NoError(t, err)
	assert.Equal(t, int64(fx.Config().Attempts), ids.Issued(), "one fresh context per attempt")
}

func TestCheckConcurrencyGuard_CompetingAggregate(t *testing.T) {
	fx := newFixture(t)
	AssertConcurrencyGuard(t, fx, GuardCase{
		Hold: londonCustomers,
		Compete: func(ctx context.Context, src query.Source) error {
			_, err := query.Count(ctx, src, allOrders)
			return err
		},
	})
}

func TestCheckConcurrencyGuard_EmptyHold(t *testing.T) {
	fx := newFixture(t)
	err := CheckConcurrencyGuard(context.Background(), fx, GuardCase{Hold: customerByID("NOONE")})

	var ge *GuardError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, 0, ge.Attempt)
	assert.Contains(t, ge.Reason, "at least one row")
}

// unguarded is a context without a concurrency guard.
type unguarded struct {
	*snapshot.Snapshot
}

func (unguarded) ID() string             { return "unguarded" }
func (unguarded) Entries() []query.Entry { return nil }
func (unguarded) Close() error           { return nil }

func (u unguarded) Stream(ctx context.Context, sel queryir.Select) (query.Cursor, error) {
	rows, err := u.Fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	return &sliceCursor{rows: rows}, nil
}

type sliceCursor struct {
	rows []model.Entity
}

func (c *sliceCursor) Next(context.Context) (model.Entity, error) {
	if len(c.rows) == 0 {
		return nil, io.EOF
	}
	e := c.rows[0]
	c.rows = c.rows[1:]
	return e, nil
}

func (c *sliceCursor) Close() error { return nil }

func TestCheckConcurrencyGuard_DetectsMissingGuard(t *testing.T) {
	snap := snapshot.Northwind()
	fx := NewFixture(func() (Context, error) { return unguarded{snap}, nil }, snap)
	defer fx.Close()

	err := CheckConcurrencyGuard(context.Background(), fx, GuardCase{Hold: allOrders})
	var ge *GuardError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "competing operation was not rejected", ge.Reason)
}

func TestCheckCancellation(t *testing.T) {
	fx := newFixture(t)
	orderIDs := func(ctx context.Context, src query.Source) ([]int64, error) {
		rows, err := query.From[*model.Order](ctx, src, allOrders)
		if err != nil {
			return nil, err
		}
		return query.Select(rows, func(o *model.Order) int64 { return o.OrderID }), nil
	}

	for _, async := range []bool{false, true} {
		err := CheckCancellation(context.Background(), fx, Query[int64]{
			Provider:   orderIDs,
			EntryCount: 830,
			Async:      async,
		})
		assert.NoError(t, err, "async=%v", async)
	}
}

func TestCheckCancellation_ResultWithCancelError(t *testing.T) {
	fx := newFixture(t)
	err := CheckCancellation(context.Background(), fx, Query[int64]{
		Provider: func(ctx context.Context, _ query.Source) ([]int64, error) {
			return []int64{1}, ctx.Err()
		},
	})

	var ge *GuardError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, 0, ge.Attempt)
	assert.True(t, errors.Is(err, ErrResultAfterCancel))
}

func TestCheckQuery_CanceledBeforeStart(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, async := range []bool{false, true} {
		err := CheckQuery(ctx, fx, Query[*model.Customer]{
			Provider: customers(londonCustomers),
			Async:    async,
		})
		var ce *CancellationError
		require.ErrorAs(t, err, &ce, "async=%v", async)
		assert.ErrorIs(t, err, context.Canceled)
	}
}
