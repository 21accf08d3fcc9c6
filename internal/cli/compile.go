package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output  string // output file path
	Linkage string // plan only this linkage
}

// CompiledPlan is one planned linkage in compile output.
type CompiledPlan struct {
	Plan     *ir.Plan `json:"plan"`
	Warnings []string `json:"warnings,omitempty"`
}

// CompilationResult holds every compiled plan.
type CompilationResult struct {
	Plans []CompiledPlan `json:"plans"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile linkage definitions to plans",
		Long: `Compile CUE linkage definitions to execution plans.

Every definition under the linkage struct is validated and planned. The
plan records the linkage kind, the classified rules, the output table
schemas with their DDL and a content hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&opts.Linkage, "linkage", "l", "", "compile only the named linkage")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	built, err := loadAndBuild(specsDir, opts.Linkage, true, formatter)
	if err != nil {
		return err
	}

	result := &CompilationResult{Plans: make([]CompiledPlan, len(built))}
	for i, b := range built {
		result.Plans[i] = CompiledPlan{Plan: b.Result.Plan, Warnings: b.Result.Warnings}
	}

	if opts.Output != "" {
		if err := writePlansToFile(result, opts.Output); err != nil {
			_ = formatter.Error(compiler.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
		formatter.VerboseLog("Wrote %d plan(s) to %s", len(result.Plans), opts.Output)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d linkage(s)\n\n", len(result.Plans))
	for _, cp := range result.Plans {
		p := cp.Plan
		fmt.Fprintf(w, "%s: %s linkage, %d expectation(s), hash %s\n", p.Name, p.Kind, len(p.Expectations), shortHash(p.Hash))
		for _, e := range p.Expectations {
			fmt.Fprintf(w, "  %-10s %s\n", e.Kind, e.Description)
		}
		if p.DecollationNeeded {
			fmt.Fprintln(w, "  decollation needed")
		}
		for _, warning := range cp.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote plans to %s\n", outputFile)
	}
	return nil
}

// writePlansToFile writes the plans as indented JSON. Canonical JSON is
// only used for hashing.
func writePlansToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plans: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
