package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigations_InversesAreSymmetric(t *testing.T) {
	for set, navs := range Navigations {
		for name, nav := range navs {
			inv, err := NavigationOf(nav.Target, nav.Inverse)
			require.NoError(t, err, "%s.%s", set, name)
			assert.Equal(t, set, inv.Target, "%s.%s inverse target", set, name)
			assert.Equal(t, name, inv.Inverse, "%s.%s inverse name", set, name)
			assert.NotEqual(t, nav.Collection, inv.Collection, "%s.%s cardinality", set, name)
			assert.Equal(t, nav.FromColumn, inv.TargetColumn)
			assert.Equal(t, nav.TargetColumn, inv.FromColumn)
		}
	}
}

func TestTypes_KeyColumnsLeadColumns(t *testing.T) {
	for set, typ := range Types {
		require.GreaterOrEqual(t, len(typ.Columns), len(typ.KeyColumns), set)
		assert.Equal(t, typ.KeyColumns, typ.Columns[:len(typ.KeyColumns)], set)
		assert.Equal(t, set, typ.New().EntitySet())
	}
}

func TestAssign_RoundTripsThroughField(t *testing.T) {
	o := &Order{}
	require.NoError(t, o.Assign("order_id", int64(10248)))
	require.NoError(t, o.Assign("customer_id", "VINET"))
	require.NoError(t, o.Assign("employee_id", nil))
	require.NoError(t, o.Assign("ship_country", []byte("France")))

	v, ok := o.Field("customer_id")
	require.True(t, ok)
	assert.Equal(t, "VINET", v)

	v, ok = o.Field("employee_id")
	require.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "France", o.ShipCountry)
	assert.Equal(t, Key{Set: SetOrders, ID: "10248"}, o.Key())
}

func TestAssign_BoolFromEitherDriverRepresentation(t *testing.T) {
	p := &Product{}
	require.NoError(t, p.Assign("discontinued", int64(1)))
	assert.True(t, p.Discontinued)
	require.NoError(t, p.Assign("discontinued", false))
	assert.False(t, p.Discontinued)
	assert.Error(t, p.Assign("discontinued", "yes"))
}

func TestAssign_UnknownColumn(t *testing.T) {
	err := (&Customer{}).Assign("nope", "x")
	var uc *UnknownColumnError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "nope", uc.Column)
}

func TestAttach_CollectionDeduplicatesByKey(t *testing.T) {
	c := &Customer{CustomerID: "ALFKI"}
	o := &Order{OrderID: 10643}

	require.NoError(t, c.Attach("orders", o))
	require.NoError(t, c.Attach("orders", &Order{OrderID: 10643}))
	assert.Len(t, c.Navigate("orders"), 1)

	assert.Error(t, c.Attach("orders", &Product{}))
	assert.Error(t, c.Attach("details", o))
}

func TestNavigate_OptionalReference(t *testing.T) {
	o := &Order{OrderID: 1}
	assert.Empty(t, o.Navigate("customer"))

	c := &Customer{CustomerID: "ALFKI"}
	require.NoError(t, o.Attach("customer", c))
	got := o.Navigate("customer")
	require.Len(t, got, 1)
	assert.Same(t, c, got[0])
}

func TestScalars_IgnoresNavigationsAndTypedNil(t *testing.T) {
	region := "BC"
	c := &Customer{CustomerID: "BOTTM", City: "Tsawassen", Region: &region, Orders: []*Order{{OrderID: 1}}}
	s := Scalars(c)
	assert.Equal(t, "BC", s["region"])
	assert.Len(t, s, len(Types[SetCustomers].Columns))

	var nilCustomer *Customer
	assert.True(t, IsNil(nilCustomer))
	assert.Nil(t, Scalars(nilCustomer))
}

func TestKey_Compare(t *testing.T) {
	a := Key{Set: SetOrders, ID: "10248"}
	b := Key{Set: SetOrders, ID: "10249"}
	assert.Negative(t, a.Compare(b))
	assert.Zero(t, a.Compare(a))
	assert.Positive(t, Key{Set: SetProducts, ID: "1"}.Compare(a))
	assert.Equal(t, "orders/10248", a.String())
}
