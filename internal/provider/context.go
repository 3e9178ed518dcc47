package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/queryir"
	"github.com/roach88/qoracle/internal/querysql"
	"github.com/roach88/qoracle/internal/store"
)

// ErrClosed is returned by operations on a closed context.
var ErrClosed = errors.New("context is closed")

// Context is a tracked session over the store. It is not safe for
// concurrent operations; attempting one returns *query.ConcurrentAccessError.
// Entries, Detach and DetachAll may be called from any goroutine.
type Context struct {
	id       string
	store    *store.Store
	compiler *querysql.SQLCompiler
	logger   *slog.Logger

	busy   atomic.Bool
	closed atomic.Bool

	mu      sync.Mutex // guards tracker
	tracker *tracker
}

var (
	_ query.Source   = (*Context)(nil)
	_ query.Streamer = (*Context)(nil)
)

// ID returns the context's unique id.
func (c *Context) ID() string {
	return c.id
}

// acquire claims the single operation slot.
func (c *Context) acquire(op string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug("concurrent access rejected", "operation", op)
		return &query.ConcurrentAccessError{ContextID: c.id, Operation: op}
	}
	return nil
}

func (c *Context) release() {
	c.busy.Store(false)
}

// Busy reports whether an operation is in flight.
func (c *Context) Busy() bool {
	return c.busy.Load()
}

// Fetch runs sel and drains it.
func (c *Context) Fetch(ctx context.Context, sel queryir.Select) ([]model.Entity, error) {
	cur, err := c.stream(ctx, sel, "fetch")
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []model.Entity
	for {
		e, err := cur.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

// Stream runs sel and returns a cursor over its rows. The context stays
// busy until the cursor is drained or closed. Includes are loaded when the
// root rows are exhausted, before Next reports io.EOF.
func (c *Context) Stream(ctx context.Context, sel queryir.Select) (query.Cursor, error) {
	return c.stream(ctx, sel, "stream")
}

func (c *Context) stream(ctx context.Context, sel queryir.Select, op string) (*cursor, error) {
	if err := c.acquire(op); err != nil {
		return nil, err
	}
	cur, err := c.open(ctx, sel)
	if err != nil {
		c.release()
		return nil, err
	}
	return cur, nil
}

func (c *Context) open(ctx context.Context, sel queryir.Select) (*cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := queryir.CheckSchema(sel); err != nil {
		return nil, err
	}
	t, err := model.TypeOf(sel.From)
	if err != nil {
		return nil, err
	}
	sqlText, params, err := c.compiler.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", sel.From, err)
	}
	rows, err := c.store.Query(ctx, sqlText, params...)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("query %s: %w", sel.From, err)
	}
	c.logger.Debug("query started", "set", sel.From, "sql", sqlText)

	var tr *tracker
	if !sel.NoTracking {
		tr = c.tracker
	}
	return &cursor{
		owner: c,
		sel:   sel,
		typ:   t,
		rows:  rows,
		stage: newStage(tr),
	}, nil
}

// Aggregate runs an aggregate over sel. Aggregates track nothing.
func (c *Context) Aggregate(ctx context.Context, sel queryir.Select, agg queryir.Aggregate) (*int64, error) {
	if err := c.acquire("aggregate"); err != nil {
		return nil, err
	}
	defer c.release()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := queryir.CheckAggregate(sel, agg); err != nil {
		return nil, err
	}
	sqlText, params, err := c.compiler.CompileAggregate(sel, agg)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", agg.Func, err)
	}
	rows, err := c.store.Query(ctx, sqlText, params...)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("aggregate %s: %w", sel.From, err)
	}
	defer rows.Close()

	v, err := store.ScanAggregate(rows)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	c.logger.Debug("aggregate", "set", sel.From, "func", agg.Func, "field", agg.Field)
	return v, nil
}

// Entries returns the tracked entries ordered by key.
func (c *Context) Entries() []query.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.list()
}

// Detach stops tracking e. It reports whether e was tracked.
func (c *Context) Detach(e model.Entity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.remove(e.Key())
}

// DetachAll stops tracking every entity.
func (c *Context) DetachAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker = newTracker()
}

// Close releases the context. Later operations return ErrClosed.
func (c *Context) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.DetachAll()
	return nil
}

// resolve identity-resolves e under the tracker lock.
func (c *Context) resolve(s *stage, e model.Entity) model.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.resolve(e)
}

// commit moves a finished operation's entities into the tracker.
func (c *Context) commit(s *stage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.tracker != nil && s.tracker != c.tracker {
		// DetachAll replaced the tracker mid-operation; track into the new one.
		s.tracker = c.tracker
	}
	return s.commit()
}
