package analysis

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

// FindMissingOptionalImports returns the optional imports of module that have no active wire,
// each classified with the most likely reason.
func (a *Analyzer) FindMissingOptionalImports(ctx context.Context, module metadata.ModuleRef) ([]MissingOptionalImport, error) {
	a = a.query()
	s := a.ModuleSubject(module)
	m, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	logger := logr.FromContextOrDiscard(ctx).WithValues("module", module.String())

	var out []MissingOptionalImport
	w := a.newWalk(ctx, s, m)
	for _, imp := range m.Imports {
		if !imp.Optional() {
			continue
		}
		_, wired, err := s.ActiveWire(ctx, imp.Name)
		if err != nil {
			return nil, err
		}
		if wired {
			continue
		}

		missing := MissingOptionalImport{Import: imp, Reason: MissingUnknown}
		candidate, ok, err := w.bestMatch(ctx, imp)
		if err != nil {
			return nil, err
		}
		switch {
		case !ok:
			missing.Reason = MissingUnavailable
		default:
			missing.Candidate = candidate
			stale, err := a.refreshRequired(ctx, module, imp.Name)
			if err != nil {
				return nil, err
			}
			if stale {
				missing.Reason = MissingRefreshRequired
				break
			}
			conflicts, err := a.conflictsVia(ctx, s, m, imp, candidate)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				missing.Reason = MissingUseConflict
				missing.Conflicts = conflicts
			}
		}
		logger.V(1).Info("missing optional import", "package", imp.Name, "reason", string(missing.Reason))
		out = append(out, missing)
	}
	return out, nil
}

func (a *Analyzer) refreshRequired(ctx context.Context, module metadata.ModuleRef, pkg string) (bool, error) {
	rr, ok := a.oracle.(RefreshReporter)
	if !ok {
		return false, nil
	}
	stale, err := rr.IsRefreshRequired(ctx, module, pkg)
	if err != nil {
		return false, queryError("IsRefreshRequired", module, pkg, err)
	}
	return stale, nil
}
