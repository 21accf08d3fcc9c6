package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "linkage", cmd.Use)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "schema", "save", "plans", "test"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommandGlobalFlags(t *testing.T) {
	flags := NewRootCommand().PersistentFlags()

	verbose := flags.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := flags.Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	db := flags.Lookup("db")
	require.NotNil(t, db)
	assert.Equal(t, "linkage.db", db.DefValue)

	assert.NotNil(t, flags.Lookup("env-file"))
}

func TestRootCommandInvalidFormat(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "validate", validSpecs(t), "--format", "xml", "--env-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommandFormatFromEnvironment(t *testing.T) {
	t.Setenv(EnvFormat, "json")

	out, _, err := execute(NewRootCommand(), "validate", validSpecs(t), "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)

	// An explicit flag wins over the environment.
	out, _, err = execute(NewRootCommand(), "validate", validSpecs(t), "--env-file", "", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 linkage(s) valid")
}

func TestRootCommandEnvFile(t *testing.T) {
	// Registered so the variable godotenv sets is restored afterwards.
	t.Setenv(EnvDB, "")
	require.NoError(t, os.Unsetenv(EnvDB))

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-env.db")
	envFile := filepath.Join(dir, "linkage.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LINKAGE_DB="+dbPath+"\n"), 0o644))

	out, _, err := execute(NewRootCommand(), "save", validSpecs(t), "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "to "+dbPath)
	assert.FileExists(t, dbPath)
}

func TestRootCommandMissingEnvFileIsIgnored(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.env")
	_, _, err := execute(NewRootCommand(), "validate", validSpecs(t), "--env-file", missing)
	assert.NoError(t, err)
}
