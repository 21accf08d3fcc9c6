package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dedupeScenario = `name: people_dedupe
description: "Deduplicating people by zip code"
specs:
  - people_dedupe.cue
linkage: people_dedupe
expect:
  kind: self
  decollation: false
assertions:
  - type: expectation_kind
    index: 0
    kind: self
    field: zip
`

const rejectedScenario = `name: broken
specs:
  - broken.cue
linkage: broken
expect:
  error: "E211"
`

// writeScenarios creates a scenarios directory with the CUE files the
// scenarios refer to.
func writeScenarios(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := writeSpecs(t, map[string]string{
		"people_dedupe.cue": peopleDedupeCUE,
		"broken.cue":        unknownFieldCUE,
	})
	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommand_MissingArgs(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_PassingScenarios(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"people_dedupe.yaml": dedupeScenario,
		"broken.yaml":        rejectedScenario,
	})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ people_dedupe")
	assert.Contains(t, out, "✓ broken")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"people_dedupe.yaml": dedupeScenario,
		"broken.yaml":        rejectedScenario,
	})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "people_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "broken")
}

func TestTestCommand_FailingScenarioJSON(t *testing.T) {
	failing := `name: wrong_kind
specs:
  - people_dedupe.cue
linkage: people_dedupe
expect:
  kind: cross
`
	dir := writeScenarios(t, map[string]string{"wrong_kind.yaml": failing})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "kind: expected cross, got self")
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"people_dedupe.yaml": dedupeScenario})

	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "people_dedupe.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "name: people_dedupe")
	assert.Contains(t, string(golden), "kind: self")

	// A second run compares against the file just written.
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"people_dedupe.yaml": dedupeScenario})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "people_dedupe.golden"), []byte("stale\n"), 0o644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ people_dedupe")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_InvalidScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"bad.yaml": "name: bad\nlinkage: x\nspecs: [missing.cue]\n"})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFilesSkipsOtherFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a.yaml": dedupeScenario,
		"b.yml":  dedupeScenario,
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2, "CUE files are not scenarios")

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
