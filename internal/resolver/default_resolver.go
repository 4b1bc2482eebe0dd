package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/semver"
)

// DefaultResolver wires every import to the highest satisfying export.
//
// Modules that cannot be resolved are excluded as providers and selection is repeated until no
// further module drops out. A module whose best provider drops out is rewired to the next
// candidate; it is unresolved only when no candidate remains.
type DefaultResolver struct{}

type provider struct {
	module  metadata.ModuleRef
	pkg     string
	version semver.Version
}

func NewDefault() *DefaultResolver {
	return &DefaultResolver{}
}

func (r *DefaultResolver) Resolve(ctx context.Context, in Input) (Plan, error) {
	logger := logr.FromContextOrDiscard(ctx)

	manifests := make(map[metadata.ModuleRef]metadata.Manifest, len(in.Modules))
	for _, m := range in.Modules {
		if _, ok := manifests[m.Module]; ok {
			return Plan{}, fmt.Errorf("%w: %s", ErrDuplicateModule, m.Module)
		}
		manifests[m.Module] = m
	}

	unresolved := map[metadata.ModuleRef]struct{}{}
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		plan := r.selectWires(in.Modules, unresolved)
		checkUses(&plan, manifests)

		grew := false
		for _, m := range in.Modules {
			if _, ok := unresolved[m.Module]; ok || plan.Resolved(m.Module) {
				continue
			}
			unresolved[m.Module] = struct{}{}
			grew = true
		}
		if grew {
			continue
		}

		wires := plan.Wires[:0]
		for _, w := range plan.Wires {
			if _, ok := unresolved[w.Importer]; !ok {
				wires = append(wires, w)
			}
		}
		plan.Wires = wires
		sortWires(plan.Wires)

		logger.V(1).Info("resolved wires",
			"rounds", round+1,
			"moduleCount", len(in.Modules),
			"wireCount", len(plan.Wires),
			"unresolvedModuleCount", len(unresolved),
		)
		return plan, nil
	}
}

func (r *DefaultResolver) selectWires(modules []metadata.Manifest, excluded map[metadata.ModuleRef]struct{}) Plan {
	providers := make([]provider, 0)
	for _, m := range modules {
		if _, ok := excluded[m.Module]; ok {
			continue
		}
		for _, exp := range m.Exports {
			providers = append(providers, provider{module: m.Module, pkg: exp.Name, version: exp.Version})
		}
	}

	plan := Plan{}
	for _, consumer := range modules {
		for _, imp := range consumer.Imports {
			candidates := make([]provider, 0)
			for _, p := range providers {
				if p.pkg != imp.Name {
					continue
				}
				if !imp.Range.Contains(p.version) {
					continue
				}
				candidates = append(candidates, p)
			}

			if len(candidates) == 0 {
				addUnresolved(&plan.Diagnostics, imp, "no compatible provider found")
				continue
			}

			selected := selectProviderDeterministic(candidates)
			plan.Wires = append(plan.Wires, Wire{
				Importer:        consumer.Module,
				Package:         imp.Name,
				Provider:        selected.module,
				ProviderVersion: selected.version,
				Optional:        imp.Optional(),
			})
		}
	}

	// Modules dropped in an earlier round stay unresolved.
	for _, m := range modules {
		if _, ok := excluded[m.Module]; !ok {
			continue
		}
		if plan.Resolved(m.Module) {
			plan.Diagnostics.UnresolvedRequired = append(plan.Diagnostics.UnresolvedRequired, UnresolvedImport{
				Importer: m.Module,
				Reason:   "module is unresolved",
			})
		}
	}
	return plan
}

// checkUses records a violation when a wire's provider uses a package from a different provider
// than the importer is wired to.
func checkUses(plan *Plan, manifests map[metadata.ModuleRef]metadata.Manifest) {
	for _, w := range plan.Wires {
		consumer := manifests[w.Importer]
		imp, ok := consumer.Import(w.Package)
		if !ok {
			continue
		}
		pm := manifests[w.Provider]
		exp, ok := pm.ExportSatisfying(imp)
		if !ok {
			continue
		}
		for _, use := range analysis.UseClosure(pm, exp) {
			own, ok := plan.Wire(w.Importer, use.Name)
			if !ok {
				continue
			}
			via, ok := plan.Wire(w.Provider, use.Name)
			if !ok || via.Provider == own.Provider {
				continue
			}
			plan.Diagnostics.UsesViolations = append(plan.Diagnostics.UsesViolations, UsesViolation{
				Importer:         w.Importer,
				Package:          use.Name,
				Via:              w.Provider,
				ImporterProvider: own.Provider,
				ViaProvider:      via.Provider,
			})
		}
	}
}

func addUnresolved(diag *Diagnostics, imp metadata.ImportedPackage, reason string) {
	unresolved := UnresolvedImport{
		Importer: imp.Module,
		Package:  imp.Name,
		Range:    imp.Range.String(),
		Reason:   reason,
	}
	if imp.Optional() {
		diag.UnresolvedOptional = append(diag.UnresolvedOptional, unresolved)
		return
	}
	diag.UnresolvedRequired = append(diag.UnresolvedRequired, unresolved)
}

func selectProviderDeterministic(candidates []provider) provider {
	// Deterministic ordering:
	// 1) Higher version wins
	// 2) Tie-break: symbolic name, then module version (ascending)
	sort.Slice(candidates, func(i, j int) bool {
		cmp := semver.Compare(candidates[i].version, candidates[j].version)
		if cmp != 0 {
			return cmp > 0
		}
		if candidates[i].module.SymbolicName != candidates[j].module.SymbolicName {
			return candidates[i].module.SymbolicName < candidates[j].module.SymbolicName
		}
		return candidates[i].module.Version < candidates[j].module.Version
	})
	return candidates[0]
}

func sortWires(wires []Wire) {
	sort.SliceStable(wires, func(i, j int) bool {
		a, b := wires[i], wires[j]
		if a.Importer.SymbolicName != b.Importer.SymbolicName {
			return a.Importer.SymbolicName < b.Importer.SymbolicName
		}
		if a.Importer.Version != b.Importer.Version {
			return a.Importer.Version < b.Importer.Version
		}
		return a.Package < b.Package
	})
}
