// Package report renders analyzer results in the shape stored on ModuleManifest status.
//
// The same rows back the controller status, the CLI output and the gRPC responses.
package report

import (
	"context"
	"errors"
	"sort"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

// Module is the analysis result of one module.
type Module struct {
	Module                 string                                        `json:"module"`
	UseConflicts           []binderyv1alpha1.UseConflictStatus           `json:"useConflicts,omitempty"`
	MissingOptionalImports []binderyv1alpha1.MissingOptionalImportStatus `json:"missingOptionalImports,omitempty"`
}

func (m Module) Empty() bool {
	return len(m.UseConflicts) == 0 && len(m.MissingOptionalImports) == 0
}

// Build runs both per-module queries for ref and attaches a suggestion to every row.
func Build(ctx context.Context, a *analysis.Analyzer, ref metadata.ModuleRef) (Module, error) {
	conflicts, err := Conflicts(ctx, a, ref)
	if err != nil {
		return Module{}, err
	}
	missing, err := MissingImports(ctx, a, ref)
	if err != nil {
		return Module{}, err
	}
	return Module{Module: ref.String(), UseConflicts: conflicts, MissingOptionalImports: missing}, nil
}

// Conflicts returns the use conflicts of ref with their suggestions.
func Conflicts(ctx context.Context, a *analysis.Analyzer, ref metadata.ModuleRef) ([]binderyv1alpha1.UseConflictStatus, error) {
	q := a.Session()
	conflicts, err := q.FindUseConflicts(ctx, ref)
	if err != nil {
		return nil, err
	}
	var out []binderyv1alpha1.UseConflictStatus
	for _, c := range conflicts {
		s, err := q.Suggest(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, Conflict(c, s))
	}
	return out, nil
}

// MissingImports returns the unwired optional imports of ref.
func MissingImports(ctx context.Context, a *analysis.Analyzer, ref metadata.ModuleRef) ([]binderyv1alpha1.MissingOptionalImportStatus, error) {
	missing, err := a.FindMissingOptionalImports(ctx, ref)
	if err != nil {
		return nil, err
	}
	var out []binderyv1alpha1.MissingOptionalImportStatus
	for _, m := range missing {
		out = append(out, Missing(m))
	}
	return out, nil
}

// All reports every module that has a use conflict or a missing optional import, ordered by
// module. Failing modules are skipped and returned as joined *analysis.ModuleError values.
func All(ctx context.Context, a *analysis.Analyzer) ([]Module, error) {
	withConflicts, cerr := a.FindBundlesWithUseConflicts(ctx)
	withMissing, merr := a.FindBundlesWithMissingOptionalImports(ctx)
	errs := []error{cerr, merr}

	seen := map[metadata.ModuleRef]struct{}{}
	var refs []metadata.ModuleRef
	for _, ref := range append(withConflicts, withMissing...) {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })

	out := make([]Module, 0, len(refs))
	for _, ref := range refs {
		m, err := Build(ctx, a, ref)
		if err != nil {
			errs = append(errs, &analysis.ModuleError{Module: ref, Err: err})
			continue
		}
		out = append(out, m)
	}
	return out, errors.Join(errs...)
}

func Conflict(c analysis.UseConflict, s analysis.ResolutionSuggestion) binderyv1alpha1.UseConflictStatus {
	out := binderyv1alpha1.UseConflictStatus{
		Kind:        string(c.Kind),
		Package:     c.Subject.Name,
		ImportRange: c.Subject.Range.String(),
		Module:      c.ConflictModule.String(),
	}
	switch c.Kind {
	case analysis.ConflictHeaderVersionMismatch:
		out.UsedRange = c.ConflictImport.Range.String()
	default:
		out.WiredProvider = c.ConflictExport.Module.String()
		out.WiredVersion = c.ConflictExport.Version.String()
	}
	if s.Kind != analysis.SuggestNone {
		out.Suggestion = string(s.Kind)
		out.SuggestionTarget = s.Target.String()
	}
	return out
}

func Missing(m analysis.MissingOptionalImport) binderyv1alpha1.MissingOptionalImportStatus {
	out := binderyv1alpha1.MissingOptionalImportStatus{
		Package:      m.Import.Name,
		VersionRange: m.Import.Range.String(),
		Reason:       string(m.Reason),
	}
	if !m.Candidate.IsZero() {
		out.Candidate = m.Candidate.String()
	}
	if s := analysis.SuggestMissing(m); s.Kind != analysis.SuggestNone {
		out.Suggestion = s.String()
	}
	return out
}
