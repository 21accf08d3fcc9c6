package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/ir"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Linkage string
}

// SchemaResult describes the tables and source queries of one linkage.
type SchemaResult struct {
	Name              string        `json:"name"`
	Tables            ir.TableNames `json:"tables"`
	DecollationNeeded bool          `json:"decollation_needed"`
	DDL               []string      `json:"ddl"`
	LHSQuery          string        `json:"lhs_query"`
	RHSQuery          string        `json:"rhs_query"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <specs-dir>",
		Short: "Print output table DDL and source queries",
		Long: `Print the CREATE TABLE statements for the output tables of each
linkage, in the dialect of its results database, followed by the queries
that read each side with filters and groupings applied.

Examples:
  linkage schema ./specs
  linkage schema ./specs --linkage people_customers`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Linkage, "linkage", "l", "", "print only the named linkage")

	return cmd
}

func runSchema(opts *SchemaOptions, specsDir string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	built, err := loadAndBuild(specsDir, opts.Linkage, true, formatter)
	if err != nil {
		return err
	}

	schemas := make([]SchemaResult, len(built))
	for i, b := range built {
		p := b.Result.Plan
		schemas[i] = SchemaResult{
			Name:              p.Name,
			Tables:            p.Tables,
			DecollationNeeded: p.DecollationNeeded,
			DDL:               p.DDL,
			LHSQuery:          b.Result.LHSQuery,
			RHSQuery:          b.Result.RHSQuery,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(schemas)
	}

	w := formatter.Writer
	for _, s := range schemas {
		fmt.Fprintf(w, "-- linkage %s\n", s.Name)
		for _, stmt := range s.DDL {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
		fmt.Fprintf(w, "-- lhs\n%s;\n", s.LHSQuery)
		fmt.Fprintf(w, "-- rhs\n%s;\n\n", s.RHSQuery)
	}
	return nil
}
