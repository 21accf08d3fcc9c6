package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSpec creates a placeholder CUE file so path checks pass.
func createTestSpec(t *testing.T, dir, name string) string {
	t.Helper()
	specsDir := filepath.Join(dir, "specs")
	if err := os.MkdirAll(specsDir, 0755); err != nil {
		t.Fatal(err)
	}
	specPath := filepath.Join(specsDir, name)
	if err := os.WriteFile(specPath, []byte("// placeholder linkage"), 0644); err != nil {
		t.Fatal(err)
	}
	return specPath
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	createTestSpec(t, dir, "people.cue")

	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
specs:
  - specs/people.cue
linkage: people
expect:
  kind: dual
  decollation: true
  warnings: 2
assertions:
  - type: expectation_kind
    index: 1
    kind: exhaustive
  - type: query_contains
    side: rhs
    contains: GROUP BY
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "people", scenario.Linkage)
	assert.Equal(t, []string{filepath.Join(dir, "specs", "people.cue")}, scenario.Specs, "paths resolve against the scenario directory")
	assert.Equal(t, "dual", scenario.Expect.Kind)
	require.NotNil(t, scenario.Expect.Decollation)
	assert.True(t, *scenario.Expect.Decollation)
	require.NotNil(t, scenario.Expect.Warnings)
	assert.Equal(t, 2, *scenario.Expect.Warnings)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertExpectationKind, scenario.Assertions[0].Type)
	assert.Equal(t, 1, scenario.Assertions[0].Index)
	assert.Equal(t, "rhs", scenario.Assertions[1].Side)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	createTestSpec(t, dir, "people.cue")

	path := writeScenario(t, dir, `
name: typo
description: "Misspelled key"
specs: [specs/people.cue]
linkag: people
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing name",
			body:    "description: d\nspecs: [specs/people.cue]\nlinkage: people\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			body:    "name: n\nspecs: [specs/people.cue]\nlinkage: people\n",
			wantErr: "description is required",
		},
		{
			name:    "missing specs",
			body:    "name: n\ndescription: d\nlinkage: people\n",
			wantErr: "specs list is required",
		},
		{
			name:    "missing linkage",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\n",
			wantErr: "linkage is required",
		},
		{
			name:    "spec not found",
			body:    "name: n\ndescription: d\nspecs: [specs/missing.cue]\nlinkage: people\n",
			wantErr: "spec file not found",
		},
		{
			name:    "unknown kind",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nexpect: {kind: triple}\n",
			wantErr: "unknown linkage kind",
		},
		{
			name:    "error with assertions",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nexpect: {error: E211}\nassertions: [{type: ddl_contains, contains: x}]\n",
			wantErr: "cannot be combined",
		},
		{
			name:    "unknown assertion",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nassertions: [{type: trace_order}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "expectation kind without kind",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nassertions: [{type: expectation_kind, index: 0}]\n",
			wantErr: "kind is required",
		},
		{
			name:    "schema columns bad table",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nassertions: [{type: schema_columns, table: people}]\n",
			wantErr: "table must be groups, scores or matches",
		},
		{
			name:    "query without side",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nassertions: [{type: query_contains, contains: WHERE}]\n",
			wantErr: "side must be lhs or rhs",
		},
		{
			name:    "ddl without text",
			body:    "name: n\ndescription: d\nspecs: [specs/people.cue]\nlinkage: people\nassertions: [{type: ddl_contains}]\n",
			wantErr: "contains is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createTestSpec(t, dir, "people.cue")
			_, err := LoadScenario(writeScenario(t, dir, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"people_customers", "people_dedupe", "unknown_field"}, names)
}
