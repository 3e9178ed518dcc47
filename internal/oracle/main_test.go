package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/qoracle/internal/config"
	"github.com/roach88/qoracle/internal/ir"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/queryir"
	"github.com/roach88/qoracle/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newFixture opens a seeded in-memory fixture closed at test end.
func newFixture(t *testing.T, opts ...Option) *Fixture {
	t.Helper()
	base := []Option{WithConfig(config.Default()), WithLogger(testutil.DiscardLogger())}
	fx, err := Open(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { fx.Close() })
	return fx
}

var londonCustomers = queryir.Select{
	From:   model.SetCustomers,
	Filter: queryir.Equals{Field: "city", Value: ir.IRString("London")},
}

func customerByID(id string) queryir.Select {
	return queryir.Select{
		From:   model.SetCustomers,
		Filter: queryir.Equals{Field: "customer_id", Value: ir.IRString(id)},
	}
}
