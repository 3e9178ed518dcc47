package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
)

func TestValidate_PortableQuery(t *testing.T) {
	query := Select{
		From: model.SetCustomers,
		Filter: And{Predicates: []Predicate{
			Equals{Field: "city", Value: ir.IRString("London")},
			Not{Predicate: IsNull{Field: "region"}},
			Or{Predicates: []Predicate{IsNotNull{Field: "country"}}},
		}},
	}

	result := Validate(query)

	assert.True(t, result.IsPortable)
	assert.Empty(t, result.Warnings)
}

func TestValidate_PointerSelect(t *testing.T) {
	result := Validate(&Select{From: model.SetOrders})
	assert.True(t, result.IsPortable)
}

func TestValidate_RawIsNotPortable(t *testing.T) {
	query := Select{
		From: model.SetCustomers,
		Filter: And{Predicates: []Predicate{
			Equals{Field: "country", Value: ir.IRString("UK")},
			Not{Predicate: Raw{SQL: "t.city LIKE ?", Args: []ir.IRValue{ir.IRString("Lon%")}}},
		}},
	}

	result := Validate(query)

	assert.False(t, result.IsPortable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Raw SQL fragment")
}

func TestValidate_NilQuery(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsPortable)
	assert.Contains(t, result.Warnings[0], "nil query")
}

func TestCheckSchema_Valid(t *testing.T) {
	sel := Select{
		From:     model.SetOrders,
		Filter:   Equals{Field: "customer.city", Value: ir.IRString("London")},
		OrderBy:  []Order{{Field: "employee.last_name", Descending: true}},
		Includes: []string{"details.product", "customer"},
		Limit:    10,
	}
	assert.NoError(t, CheckSchema(sel))
}

func TestCheckSchema_Problems(t *testing.T) {
	tests := []struct {
		name string
		sel  Select
		want string
	}{
		{"unknown set", Select{From: "suppliers"}, "unknown entity set"},
		{"unknown column", Select{From: model.SetCustomers, Filter: IsNull{Field: "fax"}}, `unknown column "fax"`},
		{"unknown navigation", Select{From: model.SetOrders, OrderBy: []Order{{Field: "shipper.name"}}}, `unknown navigation "shipper"`},
		{"collection hop in field", Select{From: model.SetCustomers, Filter: IsNull{Field: "orders.freight"}}, "collection navigation"},
		{"bad include", Select{From: model.SetCustomers, Includes: []string{"orders.lines"}}, `include "orders.lines"`},
		{"bad operator", Select{From: model.SetOrders, Filter: Compare{Field: "freight", Op: "~", Value: ir.IRInt(1)}}, "unknown operator"},
		{"array literal", Select{From: model.SetOrders, Filter: Equals{Field: "freight", Value: ir.IRArray{}}}, "unsupported parameter type"},
		{"negative limit", Select{From: model.SetOrders, Limit: -1}, "negative limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchema(tt.sel)
			require.Error(t, err)
			assert.True(t, IsSchemaError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckAggregate(t *testing.T) {
	sel := Select{From: model.SetOrders}
	assert.NoError(t, CheckAggregate(sel, Aggregate{Func: AggCount}))
	assert.NoError(t, CheckAggregate(sel, Aggregate{Func: AggMax, Field: "freight"}))
	assert.Error(t, CheckAggregate(sel, Aggregate{Func: AggSum}))
	assert.Error(t, CheckAggregate(sel, Aggregate{Func: "AVG", Field: "freight"}))
}

func TestResolveInclude_TraversesCollections(t *testing.T) {
	navs, err := ResolveInclude(model.SetCustomers, "orders.details.product")
	require.NoError(t, err)
	require.Len(t, navs, 3)
	assert.True(t, navs[0].Collection)
	assert.Equal(t, model.SetProducts, navs[2].Target)
}
