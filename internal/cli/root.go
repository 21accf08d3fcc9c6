package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Environment variables supplying defaults for unset flags.
const (
	EnvFormat = "LINKAGE_FORMAT"
	EnvDB     = "LINKAGE_DB"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // plan store path
	EnvFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the linkage CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linkage",
		Short: "Plan record linkages between database tables",
		Long: `Compile declarative record-linkage definitions into execution plans.

A definition names one or two tables and the rules their records must
satisfy to be linked. The planner classifies every rule, decides the
linkage kind and derives the schemas of the output tables.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnvironment(cmd, opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "linkage.db", "path to the plan store")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "file with environment defaults")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewPlansCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyEnvironment loads the env file, if any, and fills flags the user did
// not set from LINKAGE_* variables. Variables already set in the process
// environment win over the file.
func applyEnvironment(cmd *cobra.Command, opts *RootOptions) error {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", opts.EnvFile, err)
		}
	}

	flags := cmd.Flags()
	if v := os.Getenv(EnvFormat); v != "" && !flags.Changed("format") {
		opts.Format = v
	}
	if v := os.Getenv(EnvDB); v != "" && !flags.Changed("db") {
		opts.DB = v
	}

	if !isValidFormat(opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
