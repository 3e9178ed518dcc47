package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbe_Testdata(t *testing.T) {
	h := newHarness(t)
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, h.Probe(context.Background(), s))
		})
	}
}

func TestProbe_EmptyBaselineSkipsGuard(t *testing.T) {
	h := newHarness(t)
	s := parse(t, `
name: atlantis
description: nothing ships to Atlantis
query:
  from: orders
  where:
    eq: {field: ship_country, value: Atlantis}
expect:
  rows: 0
`)
	require.NoError(t, h.Probe(context.Background(), s))
}
