package snapshot

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
)

// link wires every reference navigation and its inverse collection, then
// orders each set by key.
func link(d *fixture.Dataset) (map[string][]model.Entity, error) {
	sets := make(map[string][]model.Entity, len(model.Types))
	for _, name := range model.SetNames() {
		rows, err := d.Rows(name)
		if err != nil {
			return nil, err
		}
		sets[name] = rows
	}

	for _, from := range model.SetNames() {
		for _, nav := range sortedNavigations(from) {
			if nav.Collection {
				continue
			}
			index, err := indexBy(sets[nav.Target], nav.TargetColumn)
			if err != nil {
				return nil, err
			}
			for _, e := range sets[from] {
				v, _ := e.Field(nav.FromColumn)
				if v == nil {
					continue
				}
				target, ok := index[v]
				if !ok {
					return nil, fmt.Errorf("%s %s: %s references missing %s %v", from, e.Key().ID, nav.Name, nav.Target, v)
				}
				if err := e.Attach(nav.Name, target); err != nil {
					return nil, err
				}
				if err := target.Attach(nav.Inverse, e); err != nil {
					return nil, err
				}
			}
		}
	}

	for name, rows := range sets {
		var sortErr error
		slices.SortStableFunc(rows, func(a, b model.Entity) int {
			c, err := queryir.CompareKeys(a, b)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return c
		})
		if sortErr != nil {
			return nil, fmt.Errorf("sort %s: %w", name, sortErr)
		}
	}
	return sets, nil
}

func indexBy(rows []model.Entity, column string) (map[any]model.Entity, error) {
	index := make(map[any]model.Entity, len(rows))
	for _, e := range rows {
		v, ok := e.Field(column)
		if !ok {
			return nil, &model.UnknownColumnError{Set: e.EntitySet(), Column: column}
		}
		index[v] = e
	}
	return index, nil
}

func sortedNavigations(set string) []model.Navigation {
	navs := make([]model.Navigation, 0, len(model.Navigations[set]))
	for _, n := range model.Navigations[set] {
		navs = append(navs, n)
	}
	slices.SortFunc(navs, func(a, b model.Navigation) int { return cmp.Compare(a.Name, b.Name) })
	return navs
}
