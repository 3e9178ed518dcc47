package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qoracle/internal/model"
)

// trackedWithDetails counts a customer, its orders and their details in the
// snapshot.
func trackedWithDetails(t *testing.T, fx *Fixture, id string) (withOrders, withDetails int) {
	t.Helper()
	rows, err := fx.Snapshot().Set(model.SetCustomers)
	require.NoError(t, err)
	for _, e := range rows {
		c := e.(*model.Customer)
		if c.CustomerID != id {
			continue
		}
		withOrders = 1 + len(c.Orders)
		withDetails = withOrders
		for _, o := range c.Orders {
			withDetails += len(o.Details)
		}
	}
	require.NotZero(t, withOrders, "customer %s not in snapshot", id)
	return withOrders, withDetails
}

func TestCheckIncludeQuery_OrdersAndDetails(t *testing.T) {
	fx := newFixture(t)
	_, tracked := trackedWithDetails(t, fx, "ALFKI")

	sel := customerByID("ALFKI")
	sel.Includes = []string{"orders.details"}
	err := CheckIncludeQuery(context.Background(), fx, IncludeQuery[*model.Customer]{
		Query: Query[*model.Customer]{
			Provider:   customers(sel),
			EntryCount: tracked,
		},
		Includes: []ExpectedInclude{
			{ID: "orders", Set: model.SetCustomers, Navigation: "orders"},
			{ID: "details", Set: model.SetOrders, Navigation: "details", Parent: "orders"},
		},
	})
	assert.NoError(t, err)
}

func TestCheckIncludeQuery_MissingInclude(t *testing.T) {
	fx := newFixture(t)

	err := CheckIncludeQuery(context.Background(), fx, IncludeQuery[*model.Customer]{
		Query: Query[*model.Customer]{
			Provider:   customers(customerByID("ALFKI")),
			EntryCount: 1,
		},
		Includes: []ExpectedInclude{{ID: "orders", Set: model.SetCustomers, Navigation: "orders"}},
	})

	var me *MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "orders", me.Path)
	assert.Equal(t, "customers/ALFKI", me.Key)
	assert.Empty(t, me.Actual)
}

func TestCheckIncludeQuery_NestedCollectionAsserter(t *testing.T) {
	fx := newFixture(t)
	tracked, _ := trackedWithDetails(t, fx, "ALFKI")

	sel := customerByID("ALFKI")
	sel.Includes = []string{"orders"}
	err := CheckIncludeQuery(context.Background(), fx, IncludeQuery[*model.Customer]{
		Query: Query[*model.Customer]{
			Provider: customers(sel),
			Asserter: func(t assert.TestingT, e, a *model.Customer) {
				assert.Equal(t, e.CustomerID, a.CustomerID)
				AssertCollection(t, e.Orders, a.Orders, Collection[*model.Order]{
					Path:   "orders",
					Sorter: func(o *model.Order) any { return o.OrderID },
				})
			},
			EntryCount: tracked,
		},
		Includes: []ExpectedInclude{{ID: "orders", Set: model.SetCustomers, Navigation: "orders"}},
	})
	assert.NoError(t, err)
}

func TestIncludeTree_AuthoringErrors(t *testing.T) {
	tests := []struct {
		name     string
		includes []ExpectedInclude
	}{
		{"none", nil},
		{"missing id", []ExpectedInclude{{Set: model.SetCustomers, Navigation: "orders"}}},
		{"duplicate id", []ExpectedInclude{
			{ID: "o", Set: model.SetCustomers, Navigation: "orders"},
			{ID: "o", Set: model.SetCustomers, Navigation: "orders"},
		}},
		{"unknown navigation", []ExpectedInclude{{ID: "x", Set: model.SetCustomers, Navigation: "invoices"}}},
		{"undeclared parent", []ExpectedInclude{{ID: "d", Set: model.SetOrders, Navigation: "details", Parent: "o"}}},
		{"parent loads another set", []ExpectedInclude{
			{ID: "o", Set: model.SetCustomers, Navigation: "orders"},
			{ID: "p", Set: model.SetOrderDetails, Navigation: "product", Parent: "o"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IncludeQuery[*model.Customer]{Includes: tt.includes}.includeTree()
			assert.True(t, IsAuthoringError(err), "got %v", err)
		})
	}
}

func TestIncludeQuery_RootsRequiredForProjections(t *testing.T) {
	_, err := IncludeQuery[projection]{}.rootsOf(projection{ID: "a"})
	assert.True(t, IsAuthoringError(err))

	roots, err := IncludeQuery[*model.Customer]{}.rootsOf(&model.Customer{CustomerID: "ALFKI"})
	require.NoError(t, err)
	assert.Len(t, roots, 1)
}
