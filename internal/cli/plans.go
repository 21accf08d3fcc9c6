package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/store"
)

// NewPlansCommand creates the plans command and its subcommands.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect the plan store",
		Long: `List, show and delete plans saved with "linkage save".

Examples:
  linkage plans list --db plans.db
  linkage plans show 3f2a9c1b --db plans.db
  linkage plans delete <id> --db plans.db`,
	}

	cmd.AddCommand(newPlansListCommand(rootOpts))
	cmd.AddCommand(newPlansShowCommand(rootOpts))
	cmd.AddCommand(newPlansDeleteCommand(rootOpts))

	return cmd
}

func newPlansListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list [linkage-name]",
		Short:         "List stored plans, oldest first",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runPlansList(commandContext(cmd), rootOpts, name, cmd)
		},
	}
}

func newPlansShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id-or-hash>",
		Short:         "Show one stored plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlansShow(commandContext(cmd), rootOpts, args[0], cmd)
		},
	}
}

func newPlansDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a stored plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlansDelete(commandContext(cmd), rootOpts, args[0], cmd)
		},
	}
}

func runPlansList(ctx context.Context, opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts, cmd)
	st, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.ListPlans(ctx, name)
	if err != nil {
		_ = formatter.Error(compiler.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing plans", err)
	}

	summaries := make([]PlanSummary, len(recs))
	for i, r := range recs {
		summaries[i] = summarizeRecord(r)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No plans stored.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "%s  %s  %-5s  %s  %s\n",
			s.ID, shortHash(s.Hash), s.Kind, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Name)
	}
	return nil
}

func runPlansShow(ctx context.Context, opts *RootOptions, ref string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts, cmd)
	st, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.GetPlan(ctx, ref)
	if err != nil {
		return storeLookupError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(rec)
	}

	w := formatter.Writer
	p := rec.Plan
	fmt.Fprintf(w, "%s (%s)\n", rec.Name, rec.ID)
	fmt.Fprintf(w, "  hash:        %s\n", rec.Hash)
	fmt.Fprintf(w, "  kind:        %s\n", p.Kind)
	fmt.Fprintf(w, "  decollation: %t\n", p.DecollationNeeded)
	fmt.Fprintf(w, "  created:     %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "  expectations:")
	for _, e := range p.Expectations {
		fmt.Fprintf(w, "    %-10s %s\n", e.Kind, e.Description)
	}
	for _, warning := range rec.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	fmt.Fprintln(w, "  ddl:")
	for _, stmt := range p.DDL {
		fmt.Fprintf(w, "    %s;\n", stmt)
	}
	return nil
}

func runPlansDelete(ctx context.Context, opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts, cmd)
	st, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeletePlan(ctx, id); err != nil {
		return storeLookupError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"deleted": id})
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted %s\n", id)
	return nil
}

func storeLookupError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(compiler.ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "plan lookup failed", err)
	}
	_ = formatter.Error(compiler.ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "plan lookup failed", err)
}

// commandContext returns the command's context, which is nil when the
// command is executed without ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
