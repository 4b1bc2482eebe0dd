package analysis

import (
	"context"
	"fmt"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/semver"
)

func ref(name string) metadata.ModuleRef {
	return metadata.ModuleRef{SymbolicName: name, Version: "1.0.0"}
}

type manifestBuilder struct {
	m metadata.Manifest
}

func mod(name string) *manifestBuilder {
	return &manifestBuilder{m: metadata.Manifest{Module: ref(name)}}
}

func (b *manifestBuilder) imports(pkg, rng string) *manifestBuilder {
	b.m.Imports = append(b.m.Imports, metadata.ImportedPackage{
		Name:       pkg,
		Range:      semver.MustParseRange(rng),
		Resolution: metadata.ResolutionMandatory,
		Module:     b.m.Module,
	})
	return b
}

func (b *manifestBuilder) optional(pkg, rng string) *manifestBuilder {
	b.m.Imports = append(b.m.Imports, metadata.ImportedPackage{
		Name:       pkg,
		Range:      semver.MustParseRange(rng),
		Resolution: metadata.ResolutionOptional,
		Module:     b.m.Module,
	})
	return b
}

func (b *manifestBuilder) exports(pkg, version string, uses ...string) *manifestBuilder {
	b.m.Exports = append(b.m.Exports, metadata.NewExport(b.m.Module, pkg, semver.MustParseVersion(version), uses))
	return b
}

// fakeWorld is an in-memory Registry and Oracle keyed by symbolic name.
type fakeWorld struct {
	modules    []metadata.Manifest
	unresolved map[string]bool
	resolvable map[string]bool
	wires      map[string]map[string]string
	stale      map[string]bool
	failWire   map[string]error

	listCalls     int
	manifestCalls int
}

func newWorld(builders ...*manifestBuilder) *fakeWorld {
	w := &fakeWorld{
		unresolved: map[string]bool{},
		resolvable: map[string]bool{},
		wires:      map[string]map[string]string{},
		stale:      map[string]bool{},
		failWire:   map[string]error{},
	}
	for _, b := range builders {
		w.modules = append(w.modules, b.m)
	}
	return w
}

func (w *fakeWorld) wire(importer, pkg, provider string) *fakeWorld {
	if w.wires[importer] == nil {
		w.wires[importer] = map[string]string{}
	}
	w.wires[importer][pkg] = provider
	return w
}

func (w *fakeWorld) manifest(name string) metadata.Manifest {
	for _, m := range w.modules {
		if m.Module.SymbolicName == name {
			return m
		}
	}
	panic("unknown module " + name)
}

func (w *fakeWorld) ListModules(context.Context) ([]metadata.ModuleRef, error) {
	w.listCalls++
	out := make([]metadata.ModuleRef, 0, len(w.modules))
	for _, m := range w.modules {
		out = append(out, m.Module)
	}
	return out, nil
}

func (w *fakeWorld) ManifestOf(_ context.Context, module metadata.ModuleRef) (metadata.Manifest, error) {
	w.manifestCalls++
	for _, m := range w.modules {
		if m.Module == module {
			return m, nil
		}
	}
	return metadata.Manifest{}, fmt.Errorf("no manifest for %s", module)
}

func (w *fakeWorld) IsUnresolved(_ context.Context, module metadata.ModuleRef) (bool, error) {
	return w.unresolved[module.SymbolicName], nil
}

func (w *fakeWorld) ActiveWire(_ context.Context, module metadata.ModuleRef, pkg string) (metadata.ModuleRef, bool, error) {
	if err := w.failWire[module.SymbolicName]; err != nil {
		return metadata.ModuleRef{}, false, err
	}
	provider, ok := w.wires[module.SymbolicName][pkg]
	if !ok {
		return metadata.ModuleRef{}, false, nil
	}
	return ref(provider), true, nil
}

func (w *fakeWorld) AttemptResolve(_ context.Context, module metadata.ModuleRef) (bool, error) {
	return w.resolvable[module.SymbolicName], nil
}

func (w *fakeWorld) IsRefreshRequired(_ context.Context, module metadata.ModuleRef, pkg string) (bool, error) {
	return w.stale[module.SymbolicName+"|"+pkg], nil
}

func newAnalyzer(w *fakeWorld) *Analyzer {
	return New(w, w)
}

func countKind(conflicts []UseConflict, kind ConflictKind, pkg string) int {
	n := 0
	for _, c := range conflicts {
		if c.Kind == kind && c.Subject.Name == pkg {
			n++
		}
	}
	return n
}

// attemptingOracle keeps the wires of unresolved modules inactive until AttemptResolve, the way
// a resolver that installs its decision would. Each Session starts with no attempts.
type attemptingOracle struct {
	*fakeWorld
	attempted map[string]bool
	sessions  *int
}

func newAttemptingOracle(w *fakeWorld) *attemptingOracle {
	return &attemptingOracle{fakeWorld: w, attempted: map[string]bool{}, sessions: new(int)}
}

func (o *attemptingOracle) Session() Oracle {
	*o.sessions++
	return &attemptingOracle{fakeWorld: o.fakeWorld, attempted: map[string]bool{}, sessions: o.sessions}
}

func (o *attemptingOracle) ActiveWire(ctx context.Context, module metadata.ModuleRef, pkg string) (metadata.ModuleRef, bool, error) {
	if o.unresolved[module.SymbolicName] && !o.attempted[module.SymbolicName] {
		return metadata.ModuleRef{}, false, nil
	}
	return o.fakeWorld.ActiveWire(ctx, module, pkg)
}

func (o *attemptingOracle) AttemptResolve(ctx context.Context, module metadata.ModuleRef) (bool, error) {
	o.attempted[module.SymbolicName] = true
	return o.fakeWorld.AttemptResolve(ctx, module)
}
