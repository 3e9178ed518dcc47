package oracle

import (
	"cmp"
	"context"
	"fmt"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/query"
)

// QueryFunc produces a sequence from a query source. The same function is
// run against the live context and, when no baseline is given, against the
// snapshot.
type QueryFunc[R any] func(ctx context.Context, src query.Source) ([]R, error)

// SingleFunc produces one value through a terminal operation such as
// query.Count or query.Single.
type SingleFunc[R any] func(ctx context.Context, src query.Source) (R, error)

// Scalar is the set of element types AssertQueryScalar compares by natural
// order and ==.
type Scalar interface {
	cmp.Ordered | ~bool
}

// Keyed is implemented by projections that carry their own identity. The
// unordered comparison sorts by SortKey when no Sorter is given.
type Keyed interface {
	SortKey() any
}

// Query describes a sequence check.
type Query[R any] struct {
	// Provider runs against a fresh live context.
	Provider QueryFunc[R]

	// Baseline runs against the snapshot. When nil, Provider runs there
	// instead, which only works for portable queries.
	Baseline QueryFunc[R]

	// AssertOrder compares positionally in result order. Otherwise both
	// sides are sorted before comparing.
	AssertOrder bool

	// Sorter orders both sides of an unordered comparison.
	Sorter func(R) any

	// Asserter compares one aligned pair. nil compares entity scalars and
	// exported fields structurally.
	Asserter func(t assert.TestingT, expected, actual R)

	// EntryCount is the number of entities the live context must track
	// afterwards.
	EntryCount int

	// Async materializes each side on its own goroutine.
	Async bool
}

func (q Query[R]) validate() error {
	if q.Provider == nil {
		return &AuthoringError{Reason: "Provider is required"}
	}
	if q.AssertOrder && q.Sorter != nil {
		return &AuthoringError{Reason: "Sorter has no effect when AssertOrder is set"}
	}
	if q.EntryCount < 0 {
		return &AuthoringError{Reason: fmt.Sprintf("EntryCount %d is negative", q.EntryCount)}
	}
	return nil
}

func (q Query[R]) comparer() comparer[R] {
	return comparer[R]{ordered: q.AssertOrder, sorter: q.Sorter, asserter: q.Asserter}
}

// Single describes a terminal-operation check. When both sides fail with
// the same kind of error the check passes.
type Single[R any] struct {
	Provider   SingleFunc[R]
	Baseline   SingleFunc[R]
	Asserter   func(t assert.TestingT, expected, actual R)
	EntryCount int
	Async      bool
}

func (s Single[R]) validate() error {
	if s.Provider == nil {
		return &AuthoringError{Reason: "Provider is required"}
	}
	if s.EntryCount < 0 {
		return &AuthoringError{Reason: fmt.Sprintf("EntryCount %d is negative", s.EntryCount)}
	}
	return nil
}

// ExpectedInclude declares one eagerly loaded navigation. Parent is the ID
// of the include it hangs off, or empty for a navigation of the result
// roots.
type ExpectedInclude struct {
	ID         string
	Set        string
	Navigation string
	Parent     string
}

// IncludeQuery is a sequence check that also verifies which navigations the
// live context populated.
type IncludeQuery[R any] struct {
	Query[R]

	Includes []ExpectedInclude

	// Roots extracts the entities includes start from. nil works when R is
	// itself an entity.
	Roots func(R) []model.Entity
}

// includeNode is a validated ExpectedInclude.
type includeNode struct {
	ExpectedInclude
	nav      model.Navigation
	children []*includeNode
}

// includeTree validates the declared includes and returns the root nodes.
func (q IncludeQuery[R]) includeTree() ([]*includeNode, error) {
	if len(q.Includes) == 0 {
		return nil, &AuthoringError{Reason: "IncludeQuery declares no includes"}
	}
	byID := make(map[string]*includeNode, len(q.Includes))
	var roots []*includeNode
	for i, inc := range q.Includes {
		if inc.ID == "" {
			return nil, &AuthoringError{Reason: fmt.Sprintf("include %d has no ID", i)}
		}
		if _, dup := byID[inc.ID]; dup {
			return nil, &AuthoringError{Reason: fmt.Sprintf("include %q declared twice", inc.ID)}
		}
		nav, err := model.NavigationOf(inc.Set, inc.Navigation)
		if err != nil {
			return nil, &AuthoringError{Reason: fmt.Sprintf("include %q: %v", inc.ID, err)}
		}
		node := &includeNode{ExpectedInclude: inc, nav: nav}
		if inc.Parent == "" {
			roots = append(roots, node)
		} else {
			parent, ok := byID[inc.Parent]
			if !ok {
				return nil, &AuthoringError{Reason: fmt.Sprintf("include %q: parent %q must be declared before it", inc.ID, inc.Parent)}
			}
			if parent.nav.Target != inc.Set {
				return nil, &AuthoringError{Reason: fmt.Sprintf("include %q starts at %s but parent %q loads %s", inc.ID, inc.Set, parent.ID, parent.nav.Target)}
			}
			parent.children = append(parent.children, node)
		}
		byID[inc.ID] = node
	}
	return roots, nil
}

// rootsOf returns the include roots of r.
func (q IncludeQuery[R]) rootsOf(r R) ([]model.Entity, error) {
	if q.Roots != nil {
		return q.Roots(r), nil
	}
	e, ok := any(r).(model.Entity)
	if !ok {
		return nil, &AuthoringError{Reason: fmt.Sprintf("%T is not an entity; set Roots", r)}
	}
	if model.IsNil(e) {
		return nil, nil
	}
	return []model.Entity{e}, nil
}
