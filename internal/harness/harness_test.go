package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Testdata(t *testing.T) {
	h := newHarness(t)
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := h.Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			if s.Expect.Rows != nil {
				assert.Len(t, result.Rows, *s.Expect.Rows)
			}
		})
	}
}

func TestRun_RowExpectationFails(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: london-five
description: there are six, not five
query:
  from: customers
  where:
    eq: {field: city, value: London}
expect:
  rows: 5
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: rows")
	assert.Contains(t, result.Errors[0], "Actual: 6 rows")
}

func TestRun_EntryCountMismatchIsRecorded(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: london-entries
description: six tracked, three expected
query:
  from: customers
  where:
    eq: {field: city, value: London}
expect:
  entries: 3
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, 6, result.Entries)
	assert.NotEmpty(t, result.Errors)
}

func TestRun_NoTrackingExpectsNothingTracked(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: london-untracked
description: no_tracking leaves the tracker empty
query:
  from: customers
  where:
    eq: {field: city, value: London}
  no_tracking: true
expect:
  rows: 6
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Zero(t, result.Entries)
}

func TestRun_BaselineDisagreement(t *testing.T) {
	h := newHarness(t)
	// LIKE 'L%' also matches Luleå and Lyon.
	s := parse(t, `
name: l-cities
description: the raw fragment is wider than the baseline
query:
  from: customers
  where:
    raw: {sql: "t.city LIKE ?", args: ["L%"]}
baseline:
  from: customers
  where:
    eq: {field: city, value: London}
expect: {}
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "results differ")
	assert.Greater(t, len(result.Rows), 6)
}

func TestRun_Aggregate(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		value string
		pass  bool
	}{
		{"matching value", "7", true},
		{"wrong value", "8", false},
		{"null expected", "null", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parse(t, `
name: discontinued
description: count discontinued products
query:
  from: products
  where:
    eq: {field: discontinued, value: true}
aggregate: {func: COUNT}
expect:
  value: `+tt.value+`
`)
			result, err := h.Run(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, tt.pass, result.Pass, "errors: %v", result.Errors)
			require.NotNil(t, result.Value)
			assert.Equal(t, int64(7), *result.Value)
			assert.Empty(t, result.Rows)
		})
	}
}

func TestRun_MaxOverNoRowsIsNull(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: no-freight
description: MAX over an empty set is NULL on both sides
query:
  from: orders
  where:
    eq: {field: ship_country, value: Atlantis}
aggregate: {func: MAX, field: freight}
expect: {}
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Nil(t, result.Value)
}

func TestRun_IncludeEntriesDerivedFromSnapshot(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: alfki-details
description: derived entry count covers the included details
query:
  from: orders
  where:
    eq: {field: customer_id, value: ALFKI}
  include: [details]
expect:
  includes:
    - id: details
      set: orders
      navigation: details
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Rows, 10)
	assert.Equal(t, 29, result.Entries)
}

func TestRun_UnorderedRowsAreKeySorted(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: by-freight
description: descending freight, reported in key order
query:
  from: orders
  where:
    is_null: customer_id
  order_by:
    - {field: freight, desc: true}
expect: {}
`)
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Rows, 9)
	assert.Equal(t, "orders/10298", result.Rows[0].Key)
	assert.Equal(t, "orders/11074", result.Rows[8].Key)
	for _, r := range result.Rows {
		assert.Len(t, r.Fingerprint, 64)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: canceled
description: never runs
query: {from: customers}
expect: {}
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.Run(ctx, s)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.True(t, strings.HasPrefix(err.Error(), "scenario canceled:"))
}
