package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dedupeSrc = `
linkage: dedupe: {
	lhs: {
		uri:      "mysql://localhost/crm"
		table:    "people"
		database: "mysql"
		columns: [
			{name: "id", type: "int", primary_key: true},
			{name: "zip", type: "char(5)"},
		]
	}
	expectations: [{must: "lhs.zip == lhs.zip"}]
}
`

// writeFile writes a CUE file belonging to package specs.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("package specs\n"+content), 0o644))
	return path
}

func loadCode(t *testing.T, errs []error) string {
	t.Helper()
	require.NotEmpty(t, errs)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le), "expected LoadError, got %T", errs[0])
	return le.Code
}

// =============================================================================
// LoadLinkages Tests
// =============================================================================

func TestLoadLinkagesSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "people.cue", peopleSrc)
	writeFile(t, dir, "dedupe.cue", dedupeSrc)

	result, errs := LoadLinkages(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.Len(t, result.Linkages, 2)
	assert.Equal(t, "dedupe", result.Linkages[0].Name)
	assert.Equal(t, "people", result.Linkages[1].Name)
	assert.Equal(t, 2, result.FileCount)

	spec, ok := result.Lookup("people")
	require.True(t, ok)
	assert.Len(t, spec.Expectations, 3)

	_, ok = result.Lookup("missing")
	assert.False(t, ok)
}

func TestLoadLinkagesMissingDir(t *testing.T) {
	_, errs := LoadLinkages(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
	assert.Equal(t, ErrCodeNotFound, loadCode(t, errs))
}

func TestLoadLinkagesNoFiles(t *testing.T) {
	_, errs := LoadLinkages(t.TempDir(), LoadModeFailFast)
	assert.Equal(t, ErrCodeNoFiles, loadCode(t, errs))
}

func TestLoadLinkagesNoDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.cue", `other: 1`)

	_, errs := LoadLinkages(dir, LoadModeFailFast)
	assert.Equal(t, ErrCodeGeneric, loadCode(t, errs))
}

func TestLoadLinkagesCollectsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `
linkage: a: {expectations: [{must: "lhs.x == rhs.y"}]}
linkage: b: {lhs: {uri: "u", table: "t", database: "mysql", columns: []}}
`)

	_, errs := LoadLinkages(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)

	var first *LoadError
	require.True(t, errors.As(errs[0], &first))
	assert.Equal(t, ErrDatasetIncomplete, first.Code)
	assert.Contains(t, first.Message, "linkage.a")

	var second *LoadError
	require.True(t, errors.As(errs[1], &second))
	assert.Equal(t, ErrNoExpectations, second.Code)

	_, errs = LoadLinkages(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

// =============================================================================
// LoadFiles Tests
// =============================================================================

func TestLoadFilesUnifiesSplitDefinition(t *testing.T) {
	dir := t.TempDir()
	datasets := writeFile(t, dir, "datasets.cue", `
linkage: dedupe: lhs: {
	uri:      "mysql://localhost/crm"
	table:    "people"
	database: "mysql"
	columns: [{name: "id", type: "int", primary_key: true}, {name: "zip", type: "char(5)"}]
}
`)
	rules := writeFile(t, dir, "rules.cue", `linkage: dedupe: expectations: [{must: "lhs.zip == lhs.zip"}]`)

	result, errs := LoadFiles([]string{datasets, rules}, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Linkages, 1)
	assert.Equal(t, "people", result.Linkages[0].LHS.Table)
	assert.Len(t, result.Linkages[0].Expectations, 1)
}

func TestLoadFilesConflict(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.cue", `linkage: x: record_cache_size: 1`)
	b := writeFile(t, dir, "b.cue", `linkage: x: record_cache_size: 2`)

	_, errs := LoadFiles([]string{a, b}, LoadModeFailFast)
	assert.Equal(t, ErrCodeBuildFailed, loadCode(t, errs))
}

func TestLoadFilesMissing(t *testing.T) {
	_, errs := LoadFiles([]string{filepath.Join(t.TempDir(), "missing.cue")}, LoadModeFailFast)
	assert.Equal(t, ErrCodeNotFound, loadCode(t, errs))
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrDatasetIncomplete, MapFieldToErrorCode("lhs"))
	assert.Equal(t, ErrNoExpectations, MapFieldToErrorCode("expectations"))
	assert.Equal(t, ErrMalformedRule, MapFieldToErrorCode("expectations[2].must"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("cue"))
}
