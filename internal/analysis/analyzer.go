package analysis

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

// FindBundlesWithUseConflicts returns every module with at least one use conflict.
//
// A failing module does not stop the batch: its error is joined into the returned error as a
// *ModuleError and the remaining modules are still analyzed.
func (a *Analyzer) FindBundlesWithUseConflicts(ctx context.Context) ([]metadata.ModuleRef, error) {
	return a.eachModule(ctx, "use conflicts", func(ref metadata.ModuleRef) (bool, error) {
		conflicts, err := a.FindUseConflicts(ctx, ref)
		return len(conflicts) > 0, err
	})
}

// FindBundlesWithMissingOptionalImports returns every module with an unwired optional import.
func (a *Analyzer) FindBundlesWithMissingOptionalImports(ctx context.Context) ([]metadata.ModuleRef, error) {
	return a.eachModule(ctx, "missing optional imports", func(ref metadata.ModuleRef) (bool, error) {
		missing, err := a.FindMissingOptionalImports(ctx, ref)
		return len(missing) > 0, err
	})
}

func (a *Analyzer) eachModule(ctx context.Context, what string, match func(metadata.ModuleRef) (bool, error)) ([]metadata.ModuleRef, error) {
	logger := logr.FromContextOrDiscard(ctx)

	modules, err := a.registry.ListModules(ctx)
	if err != nil {
		return nil, queryError("ListModules", metadata.ModuleRef{}, "", err)
	}

	var out []metadata.ModuleRef
	var errs []error
	for _, ref := range modules {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ok, err := match(ref)
		if err != nil {
			logger.Error(err, "module analysis failed", "module", ref.String(), "query", what)
			errs = append(errs, &ModuleError{Module: ref, Err: err})
			continue
		}
		if ok {
			out = append(out, ref)
		}
	}
	logger.V(1).Info("batch analysis complete", "query", what, "modules", len(modules), "matched", len(out), "failed", len(errs))
	return out, errors.Join(errs...)
}
