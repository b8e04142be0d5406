package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosFixture = filepath.Join("..", "harness", "testdata", "scenarios")

func runTestCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// scenarioDir builds a scenarios directory from the harness fixtures, with
// goldens next to the scenario files.
func scenarioDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(scenariosFixture, name+".yaml"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o644))

		golden, err := os.ReadFile(filepath.Join(scenariosFixture, "..", "golden", name+".golden"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", name+".golden"), golden, 0o644))
	}
	return dir
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := scenarioDir(t, "update_and_create", "deletes_and_manual")

	out, err := runTestCmd(t, "text", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ update_and_create")
	assert.Contains(t, out, "✓ deletes_and_manual")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := scenarioDir(t, "update_and_create", "selection")

	out, err := runTestCmd(t, "json", dir, "--filter", "sel*")
	require.NoError(t, err, out)

	resp := decode[TestResult](t, out)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "selection", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := scenarioDir(t, "update_and_create")
	goldenPath := filepath.Join(dir, "golden", "update_and_create.golden")
	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")

	out, err = runTestCmd(t, "text", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "(golden updated)")

	updated, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosFixture, "..", "golden", "update_and_create.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(updated))
}

func TestTestCommand_FailingAssertion(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_count
desired:
  - id: a
    display_name: A
assertions:
  - type: operation_count
    op: CREATE_FLOW
    count: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_count.yaml"), []byte(scenario), 0o644))

	out, err := runTestCmd(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[TestResult](t, out)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\nunknown: 1\n"), 0o644))

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "load:")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := runTestCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, err := runTestCmd(t, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
