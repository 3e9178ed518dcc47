package model

import (
	"fmt"
	"sort"
)

// Type describes the columns of an entity set.
// The first len(KeyColumns) entries of Columns are the key columns.
type Type struct {
	Set        string
	Columns    []string
	KeyColumns []string
	New        func() Entity
}

// HasColumn reports whether the set declares column.
func (t Type) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Navigation describes a relationship between two sets.
// Rows are related when From.FromColumn = Target.TargetColumn.
type Navigation struct {
	Name         string
	From         string
	Target       string
	Collection   bool
	FromColumn   string
	TargetColumn string
	Inverse      string
}

// Types holds the metadata of every entity set, keyed by set name.
var Types = map[string]Type{
	SetCustomers: {
		Set:        SetCustomers,
		Columns:    []string{"customer_id", "company_name", "contact_name", "city", "country", "region"},
		KeyColumns: []string{"customer_id"},
		New:        func() Entity { return &Customer{} },
	},
	SetEmployees: {
		Set:        SetEmployees,
		Columns:    []string{"employee_id", "first_name", "last_name", "title", "city", "reports_to"},
		KeyColumns: []string{"employee_id"},
		New:        func() Entity { return &Employee{} },
	},
	SetProducts: {
		Set:        SetProducts,
		Columns:    []string{"product_id", "product_name", "unit_price", "units_in_stock", "discontinued"},
		KeyColumns: []string{"product_id"},
		New:        func() Entity { return &Product{} },
	},
	SetOrders: {
		Set:        SetOrders,
		Columns:    []string{"order_id", "customer_id", "employee_id", "freight", "ship_country"},
		KeyColumns: []string{"order_id"},
		New:        func() Entity { return &Order{} },
	},
	SetOrderDetails: {
		Set:        SetOrderDetails,
		Columns:    []string{"order_id", "product_id", "unit_price", "quantity"},
		KeyColumns: []string{"order_id", "product_id"},
		New:        func() Entity { return &OrderDetail{} },
	},
}

// Navigations holds every navigation keyed by declaring set, then name.
var Navigations = map[string]map[string]Navigation{}

func init() {
	pairs := [][2]Navigation{
		{
			{Name: "customer", From: SetOrders, Target: SetCustomers, FromColumn: "customer_id", TargetColumn: "customer_id"},
			{Name: "orders", From: SetCustomers, Target: SetOrders, Collection: true, FromColumn: "customer_id", TargetColumn: "customer_id"},
		},
		{
			{Name: "employee", From: SetOrders, Target: SetEmployees, FromColumn: "employee_id", TargetColumn: "employee_id"},
			{Name: "orders", From: SetEmployees, Target: SetOrders, Collection: true, FromColumn: "employee_id", TargetColumn: "employee_id"},
		},
		{
			{Name: "order", From: SetOrderDetails, Target: SetOrders, FromColumn: "order_id", TargetColumn: "order_id"},
			{Name: "details", From: SetOrders, Target: SetOrderDetails, Collection: true, FromColumn: "order_id", TargetColumn: "order_id"},
		},
		{
			{Name: "product", From: SetOrderDetails, Target: SetProducts, FromColumn: "product_id", TargetColumn: "product_id"},
			{Name: "details", From: SetProducts, Target: SetOrderDetails, Collection: true, FromColumn: "product_id", TargetColumn: "product_id"},
		},
		{
			{Name: "manager", From: SetEmployees, Target: SetEmployees, FromColumn: "reports_to", TargetColumn: "employee_id"},
			{Name: "reports", From: SetEmployees, Target: SetEmployees, Collection: true, FromColumn: "employee_id", TargetColumn: "reports_to"},
		},
	}
	for _, p := range pairs {
		ref, coll := p[0], p[1]
		ref.Inverse, coll.Inverse = coll.Name, ref.Name
		register(ref)
		register(coll)
	}
}

func register(n Navigation) {
	if Navigations[n.From] == nil {
		Navigations[n.From] = map[string]Navigation{}
	}
	Navigations[n.From][n.Name] = n
}

// TypeOf returns the metadata of a set.
func TypeOf(set string) (Type, error) {
	t, ok := Types[set]
	if !ok {
		return Type{}, fmt.Errorf("unknown entity set %q", set)
	}
	return t, nil
}

// NavigationOf returns a navigation declared on set.
func NavigationOf(set, name string) (Navigation, error) {
	n, ok := Navigations[set][name]
	if !ok {
		return Navigation{}, &UnknownNavigationError{Set: set, Navigation: name}
	}
	return n, nil
}

// SetNames returns all set names sorted.
func SetNames() []string {
	names := make([]string, 0, len(Types))
	for name := range Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
