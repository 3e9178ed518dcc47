// Package model defines the Northwind-style entities that both the live
// provider and the baseline snapshot materialize.
//
// Entities expose their columns and navigations by name through the Entity
// interface. The per-type metadata in Types and Navigations is built once at
// package init, so query evaluation never reflects over struct fields.
package model

import (
	"fmt"
	"reflect"
	"strings"
)

// Entity set (table) names.
const (
	SetCustomers    = "customers"
	SetEmployees    = "employees"
	SetProducts     = "products"
	SetOrders       = "orders"
	SetOrderDetails = "order_details"
)

// Key identifies an entity within its set.
// Composite keys join their parts with "|".
type Key struct {
	Set string
	ID  string
}

// String renders the key as set/id.
func (k Key) String() string {
	return k.Set + "/" + k.ID
}

// Compare orders keys by set, then id.
func (k Key) Compare(other Key) int {
	if c := strings.Compare(k.Set, other.Set); c != 0 {
		return c
	}
	return strings.Compare(k.ID, other.ID)
}

// Entity is implemented by every tracked type.
type Entity interface {
	// EntitySet returns the set (table) the entity belongs to.
	EntitySet() string

	// Key returns the entity's identity within its set.
	Key() Key

	// Field returns a column value: string, int64, bool or nil for NULL.
	// The second result is false for unknown columns.
	Field(column string) (any, bool)

	// Assign sets a column from a database value.
	Assign(column string, value any) error

	// Navigate returns the loaded targets of a navigation. Reference
	// navigations yield zero or one entity.
	Navigate(name string) []Entity

	// Attach links target through the named navigation. Collections ignore
	// a target that is already present.
	Attach(name string, target Entity) error
}

// IsNil reports whether e is nil or a typed nil pointer.
func IsNil(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Scalars returns the column values of e keyed by column name.
// Navigations are not included, which makes the result safe to compare
// between graphs that loaded different navigations.
func Scalars(e Entity) map[string]any {
	if IsNil(e) {
		return nil
	}
	t, ok := Types[e.EntitySet()]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(t.Columns))
	for _, col := range t.Columns {
		v, _ := e.Field(col)
		out[col] = v
	}
	return out
}

// Keys returns the keys of entities in input order.
func Keys(entities []Entity) []Key {
	keys := make([]Key, len(entities))
	for i, e := range entities {
		keys[i] = e.Key()
	}
	return keys
}

// UnknownColumnError is returned by Assign for a column the type does not have.
type UnknownColumnError struct {
	Set    string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("%s: unknown column %q", e.Set, e.Column)
}

// UnknownNavigationError is returned by Attach for a navigation the type does not have.
type UnknownNavigationError struct {
	Set        string
	Navigation string
}

func (e *UnknownNavigationError) Error() string {
	return fmt.Sprintf("%s: unknown navigation %q", e.Set, e.Navigation)
}

func targetMismatch(set, nav string, target Entity) error {
	return fmt.Errorf("%s.%s: cannot attach %T", set, nav, target)
}
