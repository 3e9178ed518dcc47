package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	h := newHarness(t)
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := h.RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGoldenSnapshot_OmitsUnsetValue(t *testing.T) {
	s := GoldenSnapshot{Name: "x", Pass: true, Rows: []Row{{Key: "customers/ALFKI", Fingerprint: "ab"}}, Entries: 1}
	m := s.toCanonicalMap()
	assert.NotContains(t, m, "value")
	assert.Equal(t, []any{map[string]any{"key": "customers/ALFKI", "fingerprint": "ab"}}, m["rows"])

	v := int64(0)
	s.Value = &v
	assert.Equal(t, int64(0), s.toCanonicalMap()["value"])
}
