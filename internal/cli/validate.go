package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool       `json:"valid"`
	Linkages []string   `json:"linkages,omitempty"`
	Errors   []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate linkage definitions without planning",
		Long: `Validate CUE linkage definitions without building plans.

Checks rule syntax, dataset declarations, column references, functions
and comparators. Every problem is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts, cmd)

	specs, problems, loadErr := loadLinkages(specsDir, "", compiler.LoadModeCollectAll, formatter)
	if loadErr != nil {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Error())
	}

	result := ValidationResult{}
	for i := range specs {
		formatter.VerboseLog("Validating linkage: %s", specs[i].Name)
		result.Linkages = append(result.Linkages, specs[i].Name)
		for _, v := range compiler.ValidateWith(&specs[i], comparators()) {
			problems = append(problems, CLIError{
				Code:    v.Code,
				Message: fmt.Sprintf("linkage.%s: %s", specs[i].Name, v.Error()),
				Details: v,
			})
		}
	}

	if len(problems) > 0 {
		result.Errors = problems
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d linkage(s) valid\n", len(result.Linkages))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &result.Errors[0],
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
