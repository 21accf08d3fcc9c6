package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/compiler"
)

func TestValidateValidSpecs(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), validSpecs(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 linkage(s) valid")
}

func TestValidateValidSpecsJSON(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), validSpecs(t))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"people_customers", "people_dedupe"}, resp.Data.Linkages)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"broken.cue": unknownFieldCUE})

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "unknown column lhs.postcode")
}

func TestValidateErrorsJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"broken.cue": unknownFieldCUE})

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	for _, e := range resp.Data.Errors {
		assert.Equal(t, compiler.ErrUnknownField, e.Code)
	}
	assert.Equal(t, compiler.ErrUnknownField, resp.Error.Code)
}

func TestValidateReportsCompileErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"nolhs.cue": "package specs\n\nlinkage: nolhs: expectations: [{must: \"lhs.a == rhs.a\"}]\n"})

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, compiler.ErrDatasetIncomplete)
	assert.Contains(t, out, "lhs dataset is required")
}
