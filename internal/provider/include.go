package provider

import (
	"context"
	"fmt"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
	"github.com/roach88/qoracle/internal/querysql"
	"github.com/roach88/qoracle/internal/store"
)

// loadIncludes runs one split query per include hop and links the loaded
// targets into the graph. Only the included navigation and its inverse are
// fixed up; other navigations stay as they were.
func (c *Context) loadIncludes(ctx context.Context, s *stage, roots []model.Entity, sel queryir.Select) error {
	for _, path := range sel.Includes {
		navs, err := queryir.ResolveInclude(sel.From, path)
		if err != nil {
			return fmt.Errorf("include %q: %w", path, err)
		}
		level := roots
		for _, nav := range navs {
			if len(level) == 0 {
				break
			}
			level, err = c.loadNavigation(ctx, s, level, nav)
			if err != nil {
				return fmt.Errorf("include %q: %w", path, err)
			}
		}
	}
	return nil
}

// loadNavigation loads nav's targets for parents and returns the distinct
// targets in load order.
func (c *Context) loadNavigation(ctx context.Context, s *stage, parents []model.Entity, nav model.Navigation) ([]model.Entity, error) {
	target, err := model.TypeOf(nav.Target)
	if err != nil {
		return nil, err
	}

	byValue := make(map[any][]model.Entity)
	var values []any
	for _, p := range parents {
		v, ok := p.Field(nav.FromColumn)
		if !ok {
			return nil, &model.UnknownColumnError{Set: p.EntitySet(), Column: nav.FromColumn}
		}
		if v == nil {
			continue
		}
		if _, seen := byValue[v]; !seen {
			values = append(values, v)
		}
		byValue[v] = append(byValue[v], p)
	}

	var loaded []model.Entity
	seen := make(map[model.Key]bool)
	for start := 0; start < len(values); start += querysql.MaxParams {
		end := min(start+querysql.MaxParams, len(values))
		chunk, err := c.queryTargets(ctx, s, target, nav, values[start:end])
		if err != nil {
			return nil, err
		}
		for _, t := range chunk {
			tv, _ := t.Field(nav.TargetColumn)
			for _, p := range byValue[tv] {
				if err := p.Attach(nav.Name, t); err != nil {
					return nil, err
				}
				if err := t.Attach(nav.Inverse, p); err != nil {
					return nil, err
				}
			}
			if !seen[t.Key()] {
				seen[t.Key()] = true
				loaded = append(loaded, t)
			}
		}
	}
	return loaded, nil
}

func (c *Context) queryTargets(ctx context.Context, s *stage, target model.Type, nav model.Navigation, values []any) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sqlText, params, err := c.compiler.CompileInclude(nav, values)
	if err != nil {
		return nil, err
	}
	rows, err := c.store.Query(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("load %s.%s: %w", nav.From, nav.Name, err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := store.ScanEntity(rows, target)
		if err != nil {
			return nil, err
		}
		out = append(out, c.resolve(s, e))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	c.logger.Debug("include loaded", "navigation", nav.From+"."+nav.Name, "rows", len(out))
	return out, nil
}
