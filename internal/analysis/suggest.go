package analysis

import (
	"context"
)

// Suggest proposes a remediation for c.
//
// Header conflicts are informational and always yield SuggestNone. A wiring conflict whose
// conflict module is itself wired, for the subject package, to a provider that satisfies the
// subject import can be fixed by uninstalling that provider. Call it on the Session the conflict
// was found in to see the same simulated wires.
func (a *Analyzer) Suggest(ctx context.Context, c UseConflict) (ResolutionSuggestion, error) {
	s := ResolutionSuggestion{Kind: SuggestNone, Target: c.ConflictModule}
	if c.Kind != ConflictWiringProviderMismatch {
		return s, nil
	}

	a = a.query()
	alt, ok, err := a.oracle.ActiveWire(ctx, c.ConflictModule, c.Subject.Name)
	if err != nil {
		return s, queryError("ActiveWire", c.ConflictModule, c.Subject.Name, err)
	}
	if !ok {
		return s, nil
	}
	m, err := a.registry.ManifestOf(ctx, alt)
	if err != nil {
		return s, queryError("ManifestOf", alt, c.Subject.Name, err)
	}
	if _, ok := m.ExportSatisfying(c.Subject); ok {
		return ResolutionSuggestion{Kind: SuggestUninstall, Target: alt}, nil
	}
	return s, nil
}

// SuggestMissing proposes a remediation for a missing optional import. Only stale bindings have
// one: refreshing the importing module.
func SuggestMissing(m MissingOptionalImport) ResolutionSuggestion {
	if m.Reason == MissingRefreshRequired {
		return ResolutionSuggestion{Kind: SuggestRefresh, Target: m.Import.Module}
	}
	return ResolutionSuggestion{Kind: SuggestNone, Target: m.Import.Module}
}
