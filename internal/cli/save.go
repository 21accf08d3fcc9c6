package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/store"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Linkage string
}

// PlanSummary is the short form of a stored plan.
type PlanSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func summarizeRecord(r store.Record) PlanSummary {
	return PlanSummary{ID: r.ID, Name: r.Name, Hash: r.Hash, Kind: r.Kind, CreatedAt: r.CreatedAt}
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <specs-dir>",
		Short: "Plan linkages and store the plans",
		Long: `Plan every linkage definition and save the plans in the plan store.

Plans are content addressed: saving an unchanged definition again returns
the stored record instead of creating a new one.

Examples:
  linkage save ./specs --db plans.db
  LINKAGE_DB=plans.db linkage save ./specs --linkage people_customers`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(commandContext(cmd), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Linkage, "linkage", "l", "", "save only the named linkage")

	return cmd
}

func runSave(ctx context.Context, opts *SaveOptions, specsDir string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	built, err := loadAndBuild(specsDir, opts.Linkage, true, formatter)
	if err != nil {
		return err
	}

	st, err := openStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	saved := make([]PlanSummary, 0, len(built))
	for _, b := range built {
		rec, err := st.SavePlan(ctx, b.Result.Plan, b.Result.Warnings)
		if err != nil {
			_ = formatter.Error(compiler.ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "saving plan", err)
		}
		formatter.VerboseLog("Saved %s as %s", rec.Name, rec.ID)
		saved = append(saved, summarizeRecord(rec))
	}

	if formatter.Format == "json" {
		return formatter.Success(saved)
	}
	fmt.Fprintf(formatter.Writer, "✓ Saved %d plan(s) to %s\n", len(saved), opts.DB)
	for _, s := range saved {
		fmt.Fprintf(formatter.Writer, "  %s  %s  %s\n", s.ID, shortHash(s.Hash), s.Name)
	}
	return nil
}

// openStore opens the plan store named by --db.
func openStore(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	if opts.DB == "" {
		_ = formatter.Error(compiler.ErrCodeNotFound, "no plan store given (use --db or LINKAGE_DB)", nil)
		return nil, NewExitError(ExitCommandError, "no plan store given")
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(compiler.ErrCodeLoadFailed, fmt.Sprintf("opening plan store: %v", err), nil)
		return nil, WrapExitError(ExitCommandError, "opening plan store", err)
	}
	return st, nil
}
