package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SeededStore opens a file-backed store in t.TempDir() loaded with the
// Northwind fixture. An empty driver means store.DriverCGo.
func SeededStore(t testing.TB, driver string) *store.Store {
	t.Helper()
	if driver == "" {
		driver = store.DriverCGo
	}
	s, err := store.Open(filepath.Join(t.TempDir(), "northwind.db"), store.WithDriver(driver))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Seed(context.Background(), fixture.Northwind()))
	return s
}
