package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/store"
)

func runSeedCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSeedCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestSeedCommandRequiresDB(t *testing.T) {
	_, err := runSeedCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestSeedCommandUnknownDriverJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "northwind.db")

	buf, err := runSeedCommand(t, "json", "--db", db, "--driver", "postgres")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnknownDriver)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Equal(t, "failed to open database", resp.Error.Message)
	assert.Contains(t, resp.Error.Details, "postgres")
}

func TestSeedCommandText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "northwind.db")

	buf, err := runSeedCommand(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Seeded "+db)
	assert.Contains(t, buf.String(), "orders")

	buf, err = runSeedCommand(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "already seeded")
}

func TestSeedCommandJSONPureGo(t *testing.T) {
	db := filepath.Join(t.TempDir(), "northwind.db")

	buf, err := runSeedCommand(t, "json", "--db", db, "--driver", store.DriverPureGo)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Seeded)
	assert.Equal(t, int64(fixture.OrderCount), resp.Data.Counts[model.SetOrders])
	assert.Equal(t, int64(fixture.CustomerCount), resp.Data.Counts[model.SetCustomers])
}

func TestSeedCommandUnknownDriver(t *testing.T) {
	db := filepath.Join(t.TempDir(), "northwind.db")
	_, err := runSeedCommand(t, "text", "--db", db, "--driver", "postgres")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
