package provider

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
	"github.com/roach88/qoracle/internal/store"
)

// cursor streams one Select. It owns the context's operation slot until
// finish runs.
type cursor struct {
	owner *Context
	sel   queryir.Select
	typ   model.Type
	rows  *sql.Rows
	stage *stage
	roots []model.Entity
	done  bool
	err   error
}

// Next returns the next entity, or io.EOF once rows and includes are
// loaded and staged entities are committed.
func (c *cursor) Next(ctx context.Context) (model.Entity, error) {
	if c.done {
		if c.err != nil {
			return nil, c.err
		}
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}

	if c.rows.Next() {
		e, err := store.ScanEntity(c.rows, c.typ)
		if err != nil {
			return nil, c.fail(ctx, err)
		}
		e = c.owner.resolve(c.stage, e)
		c.roots = append(c.roots, e)
		return e, nil
	}

	if err := c.rows.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}
	if err := c.rows.Close(); err != nil {
		return nil, c.fail(ctx, err)
	}
	if err := c.owner.loadIncludes(ctx, c.stage, c.roots, c.sel); err != nil {
		return nil, c.fail(ctx, err)
	}
	c.finish(true)
	return nil, io.EOF
}

// Close ends the operation. Entities already returned stay tracked; a
// cursor that failed tracks nothing.
func (c *cursor) Close() error {
	if c.done {
		return nil
	}
	c.finish(true)
	return nil
}

// fail ends the operation without tracking anything. A driver error raised
// because ctx was canceled is reported as the cancellation itself.
func (c *cursor) fail(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		err = cerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.owner.logger.Debug("operation canceled", "set", c.sel.From, "staged", len(c.stage.order))
	}
	c.err = err
	c.finish(false)
	return err
}

func (c *cursor) finish(commit bool) {
	c.done = true
	c.rows.Close()
	if commit {
		n := c.owner.commit(c.stage)
		c.owner.logger.Debug("operation finished", "set", c.sel.From, "rows", len(c.roots), "tracked", n)
	}
	c.owner.release()
}
