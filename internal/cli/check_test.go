package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func newCheck(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func writeScenario(t *testing.T, dir, name, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
}

func TestCheckCommandMissingArgs(t *testing.T) {
	_, err := newCheck(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestCheckCommandNonExistentDir(t *testing.T) {
	buf, err := newCheck(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Empty(t, buf.String())
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckCommandNonExistentDirJSON(t *testing.T) {
	buf, err := newCheck(t, "json", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenariosNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "/nonexistent/scenarios")
}

func TestCheckCommandMalformedScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: bad\ndescription: typo\nquery: {from: customers}\nexepct: {}\n")

	buf, err := newCheck(t, "json", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioLoad, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestCheckCommandEmptyDir(t *testing.T) {
	buf, err := newCheck(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestCheckCommandEmptyDirJSON(t *testing.T) {
	buf, err := newCheck(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCheckCommandMalformedScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: bad\ndescription: typo\nquery: {from: customers}\nexepct: {}\n")

	_, err := newCheck(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckCommandTestdata(t *testing.T) {
	buf, err := newCheck(t, "text", scenariosDir)
	require.NoError(t, err, buf.String())
	assert.Contains(t, buf.String(), "✓ london-customers (6 rows, 6 tracked)")
	assert.Contains(t, buf.String(), "7 passed, 0 failed, 7 total")
}

func TestCheckCommandFilterAndProbe(t *testing.T) {
	buf, err := newCheck(t, "json", scenariosDir, "--filter", "london-*", "--probe")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Equal(t, 6, s.Rows, s.Name)
	}
}

func TestCheckCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "five.yaml", `
name: london-five
description: there are six
query:
  from: customers
  where:
    eq: {field: city, value: London}
expect:
  rows: 5
`)

	buf, err := newCheck(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CHECK_FAILED", resp.Error.Code)
}

func TestCheckCommandAggregateValue(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "count.yaml", `
name: discontinued
description: seven products are discontinued
query:
  from: products
  where:
    eq: {field: discontinued, value: true}
aggregate: {func: COUNT}
expect:
  value: 7
`)

	buf, err := newCheck(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Data CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	require.NotNil(t, resp.Data.Scenarios[0].Value)
	assert.Equal(t, int64(7), *resp.Data.Scenarios[0].Value)
}

func TestCheckCommandInvalidFilter(t *testing.T) {
	_, err := newCheck(t, "text", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
