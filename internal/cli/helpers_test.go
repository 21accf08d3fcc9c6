package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const peopleCustomersCUE = `package specs

linkage: people_customers: {
	lhs: {
		uri:      "mysql://localhost/crm"
		table:    "people"
		database: "mysql"
		columns: [
			{name: "id", type: "int", primary_key: true},
			{name: "first_name", type: "varchar(50)", collation: "utf8_general_ci"},
			{name: "age", type: "int"},
		]
	}
	rhs: {
		uri:      "postgres://localhost/billing"
		table:    "customers"
		database: "postgres"
		columns: [
			{name: "cid", type: "bigint", primary_key: true},
			{name: "first_name", type: "varchar(60)"},
			{name: "age", type: "integer"},
		]
	}
	results: {uri: "sqlite://results.db", database: "sqlite"}
	expectations: [
		{must: "lhs.first_name == rhs.first_name"},
		{must: "lhs.age > rhs.age"},
	]
}
`

const peopleDedupeCUE = `package specs

linkage: people_dedupe: {
	lhs: {
		uri:      "mysql://localhost/crm"
		table:    "people"
		database: "mysql"
		columns: [
			{name: "id", type: "int", primary_key: true},
			{name: "zip", type: "char(5)"},
			{name: "age", type: "int"},
		]
	}
	expectations: [
		{must: "lhs.zip == rhs.zip"},
		{must_not: "lhs.age < 18"},
	]
}
`

const unknownFieldCUE = `package specs

linkage: broken: {
	lhs: {
		uri:      "mysql://localhost/crm"
		table:    "people"
		database: "mysql"
		columns: [{name: "id", type: "int", primary_key: true}]
	}
	expectations: [{must: "lhs.postcode == rhs.postcode"}]
}
`

// writeSpecs creates a specs directory holding the given files.
func writeSpecs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func validSpecs(t *testing.T) string {
	t.Helper()
	return writeSpecs(t, map[string]string{
		"people_customers.cue": peopleCustomersCUE,
		"people_dedupe.cue":    peopleDedupeCUE,
	})
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
