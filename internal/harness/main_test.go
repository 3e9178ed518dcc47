package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/qoracle/internal/config"
	"github.com/roach88/qoracle/internal/oracle"
	"github.com/roach88/qoracle/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newHarness opens a seeded fixture closed at test end.
func newHarness(t *testing.T) *Harness {
	t.Helper()
	fx, err := oracle.Open(context.Background(),
		oracle.WithConfig(config.Default()),
		oracle.WithLogger(testutil.DiscardLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { fx.Close() })
	return New(fx, testutil.DiscardLogger())
}

func parse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario("inline.yaml", []byte(doc))
	require.NoError(t, err)
	return s
}
