package cli

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/plan"
)

// builtLinkage is a definition together with its plan.
type builtLinkage struct {
	Spec   *ir.LinkageSpec
	Result *plan.Result
}

var (
	registryOnce sync.Once
	registry     *comparator.Registry
)

// comparators returns the registry every command plans against.
func comparators() *comparator.Registry {
	registryOnce.Do(func() { registry = comparator.NewDefaultRegistry() })
	return registry
}

// loadLinkages loads the definitions in dir. When only is set, every other
// definition is dropped. A non-nil *compiler.LoadError means nothing could
// be loaded at all; compile problems of individual definitions are returned
// as CLI errors.
func loadLinkages(dir, only string, mode compiler.LoadMode, f *OutputFormatter) ([]ir.LinkageSpec, []CLIError, *compiler.LoadError) {
	result, errs := compiler.LoadLinkages(dir, mode)
	if result == nil {
		return nil, nil, asLoadError(errs[0])
	}
	f.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	var problems []CLIError
	for _, err := range errs {
		le := asLoadError(err)
		problems = append(problems, CLIError{Code: le.Code, Message: loadErrorMessage(le)})
	}

	specs := result.Linkages
	if only != "" {
		spec, ok := result.Lookup(only)
		if !ok {
			if len(problems) > 0 {
				return nil, problems, nil
			}
			return nil, nil, &compiler.LoadError{Code: compiler.ErrCodeNotFound, Message: fmt.Sprintf("linkage %q not found in %s", only, dir)}
		}
		specs = []ir.LinkageSpec{*spec}
	}
	return specs, problems, nil
}

// buildLinkages validates and plans every definition. Definitions that fail
// either step are reported and skipped.
func buildLinkages(specs []ir.LinkageSpec, f *OutputFormatter) ([]builtLinkage, []CLIError) {
	var built []builtLinkage
	var problems []CLIError
	log := f.Logger()

	for i := range specs {
		spec := &specs[i]
		log.Debug("validating linkage", zap.String("linkage", spec.Name))

		if verrs := compiler.ValidateWith(spec, comparators()); len(verrs) > 0 {
			for _, v := range verrs {
				problems = append(problems, CLIError{
					Code:    v.Code,
					Message: fmt.Sprintf("linkage.%s: %s", spec.Name, v.Error()),
					Details: v,
				})
			}
			continue
		}

		res, err := plan.Build(spec, comparators())
		if err != nil {
			for _, e := range splitErrors(err) {
				problems = append(problems, CLIError{
					Code:    buildErrorCode(e),
					Message: fmt.Sprintf("linkage.%s: %v", spec.Name, e),
				})
			}
			continue
		}

		for _, w := range res.Warnings {
			log.Warn("plan warning", zap.String("linkage", spec.Name), zap.String("warning", w))
		}
		log.Info("planned linkage",
			zap.String("linkage", spec.Name),
			zap.String("kind", string(res.Plan.Kind)),
			zap.Bool("decollation", res.Plan.DecollationNeeded),
			zap.String("hash", res.Plan.Hash),
		)
		built = append(built, builtLinkage{Spec: spec, Result: res})
	}
	return built, problems
}

// loadAndBuild combines loading and planning. It writes the error output and
// returns an ExitError when nothing usable was produced or when strict is
// set and any definition failed.
func loadAndBuild(dir, only string, strict bool, f *OutputFormatter) ([]builtLinkage, error) {
	specs, problems, loadErr := loadLinkages(dir, only, compiler.LoadModeCollectAll, f)
	if loadErr != nil {
		_ = f.Error(loadErr.Code, loadErr.Message, nil)
		return nil, NewExitError(ExitCommandError, loadErr.Error())
	}

	built, buildProblems := buildLinkages(specs, f)
	problems = append(problems, buildProblems...)

	if len(problems) > 0 && (strict || len(built) == 0) {
		_ = f.Errors("Planning failed", problems)
		return nil, NewExitError(ExitFailure, fmt.Sprintf("planning failed with %d error(s)", len(problems)))
	}
	for _, p := range problems {
		f.Logger().Warn("skipped linkage", zap.String("code", p.Code), zap.String("error", p.Message))
	}
	return built, nil
}

func asLoadError(err error) *compiler.LoadError {
	var le *compiler.LoadError
	if errors.As(err, &le) {
		return le
	}
	return &compiler.LoadError{Code: compiler.ErrCodeGeneric, Message: err.Error()}
}

// loadErrorMessage is the message of le prefixed with its source position.
func loadErrorMessage(le *compiler.LoadError) string {
	if le.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
	}
	return le.Message
}

// buildErrorCode maps a planning failure onto the validation code of the
// same problem.
func buildErrorCode(err error) string {
	var decl *plan.DeclarationError
	if errors.As(err, &decl) {
		return compiler.ErrMalformedRule
	}
	return compiler.ErrCodeGeneric
}

// splitErrors returns the errors joined in err, or err itself.
func splitErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
