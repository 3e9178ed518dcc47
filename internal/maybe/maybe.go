// Package maybe provides null-propagating navigation helpers for baseline
// (in-memory) query expressions.
//
// A relational provider evaluates optional navigations with three-valued
// logic: reading a column through a missing related row yields NULL instead
// of failing. The in-memory baseline has to reproduce that, so every
// optional hop is written as
//
//	maybe.Scalar(o.Customer, func(c *model.Customer) string { return c.City })
//
// Helpers compose for multi-hop navigation:
//
//	maybe.Ref(o.Employee, func(e *model.Employee) *model.Employee { return e.Manager })
//
// Only the root nil check short-circuits. A selector that panics on a
// non-nil root propagates the panic unchanged.
package maybe

// Ref returns nil when root is nil, otherwise sel(root).
func Ref[T, R any](root *T, sel func(*T) *R) *R {
	if root == nil {
		return nil
	}
	return sel(root)
}

// Scalar returns nil when root is nil, otherwise a pointer to sel(root).
// The pointer is freshly allocated on every call.
func Scalar[T, R any](root *T, sel func(*T) R) *R {
	if root == nil {
		return nil
	}
	v := sel(root)
	return &v
}

// Flat is Scalar for selectors that already return an optional value,
// e.g. a nullable column reached through an optional navigation.
func Flat[T, R any](root *T, sel func(*T) *R) *R {
	return Ref(root, sel)
}

// Value unwraps p, returning fallback when p is nil.
func Value[R any](p *R, fallback R) R {
	if p == nil {
		return fallback
	}
	return *p
}

// Equal reports whether two optional values are equal, treating two nils
// as equal. Use it in baseline asserters, not in filters: SQL filters never
// match NULL = NULL.
func Equal[R comparable](a, b *R) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
