package registry

import (
	"context"
	"errors"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

var (
	_ analysis.Registry        = (*Store)(nil)
	_ analysis.Oracle          = (*Store)(nil)
	_ analysis.RefreshReporter = (*Store)(nil)
	_ analysis.Sessions        = (*Store)(nil)
	_ analysis.RefreshReporter = (*session)(nil)
)

func moduleRef(name, version string) metadata.ModuleRef {
	return metadata.ModuleRef{SymbolicName: name, Version: version}
}

func manifest(name string, phase binderyv1alpha1.ModulePhase, imports []binderyv1alpha1.PackageImport, exports ...string) binderyv1alpha1.ModuleManifest {
	mm := binderyv1alpha1.ModuleManifest{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: binderyv1alpha1.ModuleManifestSpec{
			Module:  binderyv1alpha1.ModuleIdentity{SymbolicName: "org." + name, Version: "1.0.0"},
			Imports: imports,
		},
		Status: binderyv1alpha1.ModuleManifestStatus{Phase: phase},
	}
	for _, e := range exports {
		mm.Spec.Exports = append(mm.Spec.Exports, binderyv1alpha1.PackageExport{Package: e, Version: "1.0.0"})
	}
	return mm
}

func TestStore_FixtureOracle(t *testing.T) {
	ctx := context.Background()
	s := NewStore(loadFixture(t), nil)

	modules, err := s.ListModules(ctx)
	if err != nil {
		t.Fatalf("ListModules: %v", err)
	}
	if len(modules) != 5 || modules[1] != moduleRef("org.log.impl", "2.0.0") || modules[4] != moduleRef("org.app", "1.0.0") {
		t.Fatalf("unexpected modules: %v", modules)
	}

	app := moduleRef("org.app", "1.0.0")
	web := moduleRef("org.web", "1.0.0")
	if u, err := s.IsUnresolved(ctx, app); err != nil || !u {
		t.Fatalf("expected app unresolved, got %v (err=%v)", u, err)
	}
	if u, err := s.IsUnresolved(ctx, web); err != nil || u {
		t.Fatalf("expected web resolved, got %v (err=%v)", u, err)
	}

	provider, ok, err := s.ActiveWire(ctx, web, "org.log")
	if err != nil || !ok || provider != moduleRef("org.log.impl", "2.0.0") {
		t.Fatalf("expected web wired to log 2.0.0, got %v ok=%v err=%v", provider, ok, err)
	}
	if _, ok, err := s.ActiveWire(ctx, app, "org.metrics"); err != nil || ok {
		t.Fatalf("expected stale wire to be inactive, ok=%v err=%v", ok, err)
	}
	if stale, err := s.IsRefreshRequired(ctx, app, "org.metrics"); err != nil || !stale {
		t.Fatalf("expected refresh required, got %v (err=%v)", stale, err)
	}
	if stale, err := s.IsRefreshRequired(ctx, web, "org.log"); err != nil || stale {
		t.Fatalf("expected web wire to be current, got %v (err=%v)", stale, err)
	}
	if name, err := s.ObjectName(ctx, web); err != nil || name != "web" {
		t.Fatalf("expected object name web, got %q (err=%v)", name, err)
	}
}

func TestStore_AnalyzerOverFixture(t *testing.T) {
	ctx := context.Background()
	s := NewStore(loadFixture(t), nil)
	a := analysis.New(s, s)
	app := moduleRef("org.app", "1.0.0")

	conflicts, err := a.FindUseConflicts(ctx, app)
	if err != nil {
		t.Fatalf("FindUseConflicts: %v", err)
	}
	kinds := map[analysis.ConflictKind]int{}
	for _, c := range conflicts {
		kinds[c.Kind]++
		if c.Subject.Name != "org.log" || c.ConflictModule != moduleRef("org.web", "1.0.0") {
			t.Fatalf("unexpected conflict: %s", c)
		}
	}
	if kinds[analysis.ConflictHeaderVersionMismatch] != 1 || kinds[analysis.ConflictWiringProviderMismatch] != 1 {
		t.Fatalf("expected one conflict of each kind, got %v", kinds)
	}

	missing, err := a.FindMissingOptionalImports(ctx, app)
	if err != nil {
		t.Fatalf("FindMissingOptionalImports: %v", err)
	}
	reasons := map[string]analysis.MissingReason{}
	for _, m := range missing {
		reasons[m.Import.Name] = m.Reason
	}
	if reasons["org.metrics"] != analysis.MissingRefreshRequired || reasons["org.tracing"] != analysis.MissingUnavailable {
		t.Fatalf("unexpected reasons: %v", reasons)
	}

	bundles, err := a.FindBundlesWithUseConflicts(ctx)
	if err != nil {
		t.Fatalf("FindBundlesWithUseConflicts: %v", err)
	}
	if len(bundles) != 1 || bundles[0] != app {
		t.Fatalf("expected [app], got %v", bundles)
	}
}

func TestStore_SimulatesModulesWithoutState(t *testing.T) {
	ctx := context.Background()
	src := &StaticSource{Manifests: []binderyv1alpha1.ModuleManifest{
		manifest("b", "", nil, "p"),
		manifest("a", "", []binderyv1alpha1.PackageImport{{Package: "p"}}),
		manifest("c", "", []binderyv1alpha1.PackageImport{{Package: "q"}}),
		manifest("d", binderyv1alpha1.ModulePhaseUnresolved, []binderyv1alpha1.PackageImport{{Package: "p"}}),
	}}
	s := NewStore(src, nil)
	a, b, c, d := moduleRef("org.a", "1.0.0"), moduleRef("org.b", "1.0.0"), moduleRef("org.c", "1.0.0"), moduleRef("org.d", "1.0.0")

	if u, err := s.IsUnresolved(ctx, a); err != nil || u {
		t.Fatalf("expected a resolved by simulation, got %v (err=%v)", u, err)
	}
	if p, ok, err := s.ActiveWire(ctx, a, "p"); err != nil || !ok || p != b {
		t.Fatalf("expected a wired to b, got %v ok=%v err=%v", p, ok, err)
	}
	if u, err := s.IsUnresolved(ctx, c); err != nil || !u {
		t.Fatalf("expected c unresolved, got %v (err=%v)", u, err)
	}
	if ok, err := s.AttemptResolve(ctx, c); err != nil || ok {
		t.Fatalf("expected c to stay unresolved, got %v (err=%v)", ok, err)
	}

	if _, ok, _ := s.ActiveWire(ctx, d, "p"); ok {
		t.Fatalf("expected no wire for d before an attempt")
	}
	if ok, err := s.AttemptResolve(ctx, d); err != nil || !ok {
		t.Fatalf("expected d to resolve, got %v (err=%v)", ok, err)
	}
	if p, ok, err := s.ActiveWire(ctx, d, "p"); err != nil || !ok || p != b {
		t.Fatalf("expected d wired to b after attempt, got %v ok=%v err=%v", p, ok, err)
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok, _ := s.ActiveWire(ctx, d, "p"); ok {
		t.Fatalf("expected refresh to forget resolve attempts")
	}
}

func TestStore_ParseFailureIsScopedToModule(t *testing.T) {
	ctx := context.Background()
	bad := manifest("bad", "", []binderyv1alpha1.PackageImport{{Package: "p", VersionRange: "[oops"}})
	src := &StaticSource{Manifests: []binderyv1alpha1.ModuleManifest{manifest("good", "", nil, "p"), bad}}
	s := NewStore(src, nil)

	if _, err := s.ManifestOf(ctx, moduleRef("org.good", "1.0.0")); err != nil {
		t.Fatalf("ManifestOf good: %v", err)
	}
	if _, err := s.ManifestOf(ctx, moduleRef("org.bad", "1.0.0")); !errors.Is(err, metadata.ErrManifestParse) {
		t.Fatalf("expected ErrManifestParse, got %v", err)
	}
	if u, err := s.IsUnresolved(ctx, moduleRef("org.bad", "1.0.0")); err != nil || !u {
		t.Fatalf("expected malformed module unresolved, got %v (err=%v)", u, err)
	}
}

func TestStore_SnapshotErrors(t *testing.T) {
	ctx := context.Background()
	dup := &StaticSource{Manifests: []binderyv1alpha1.ModuleManifest{manifest("x", "", nil), manifest("x", "", nil)}}
	if _, err := NewStore(dup, nil).ListModules(ctx); !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("expected ErrDuplicateModule, got %v", err)
	}

	s := NewStore(&StaticSource{}, nil)
	if _, err := s.ManifestOf(ctx, moduleRef("org.ghost", "1.0.0")); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
	a := analysis.New(s, s)
	_, err := a.FindUseConflicts(ctx, moduleRef("org.ghost", "1.0.0"))
	var qe *analysis.QueryError
	if !errors.As(err, &qe) || !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected QueryError wrapping ErrUnknownModule, got %v", err)
	}
}

func TestStore_Lookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore(loadFixture(t), nil)

	byName, err := s.Lookup(ctx, "log-2")
	if err != nil {
		t.Fatalf("Lookup by name: %v", err)
	}
	byRef, err := s.Lookup(ctx, "org.log.impl/2.0.0")
	if err != nil {
		t.Fatalf("Lookup by ref: %v", err)
	}
	if byName != byRef || byName.Version != "2.0.0" {
		t.Fatalf("expected both forms to find log-2, got %s and %s", byName, byRef)
	}
	if _, err := s.Lookup(ctx, "ghost"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestStore_UnknownModuleIsInvalidReference(t *testing.T) {
	ctx := context.Background()
	s := NewStore(loadFixture(t), nil)
	a := analysis.New(s, s)
	ghost := moduleRef("org.ghost", "1.0.0")

	if _, err := a.FindUseConflicts(ctx, ghost); !errors.Is(err, analysis.ErrInvalidModuleReference) {
		t.Fatalf("FindUseConflicts: expected ErrInvalidModuleReference, got %v", err)
	}
	if _, err := a.FindMissingOptionalImports(ctx, ghost); !errors.Is(err, analysis.ErrInvalidModuleReference) {
		t.Fatalf("FindMissingOptionalImports: expected ErrInvalidModuleReference, got %v", err)
	}
	if _, err := s.Lookup(ctx, "ghost"); !errors.Is(err, analysis.ErrInvalidModuleReference) {
		t.Fatalf("Lookup: expected ErrInvalidModuleReference, got %v", err)
	}
}

// crossedSource: s would be wired to p2 for pkg.x by simulation while b, which s imports pkg.b
// from, is recorded as wired to p1. x imports pkg.s, whose implementation uses pkg.x, so
// searching x attempts to resolve s.
func crossedSource() *StaticSource {
	rng := "[1.0.0,2.0.0)"
	x := manifest("x", binderyv1alpha1.ModulePhaseUnresolved, []binderyv1alpha1.PackageImport{
		{Package: "pkg.s", VersionRange: rng},
		{Package: "pkg.x", VersionRange: rng},
	})
	s := manifest("s", binderyv1alpha1.ModulePhaseUnresolved, []binderyv1alpha1.PackageImport{
		{Package: "pkg.x", VersionRange: rng},
		{Package: "pkg.b", VersionRange: rng},
	}, "pkg.s")
	s.Spec.Exports[0].Uses = []string{"pkg.x"}
	b := manifest("b", binderyv1alpha1.ModulePhaseResolved, []binderyv1alpha1.PackageImport{
		{Package: "pkg.x", VersionRange: rng},
	}, "pkg.b")
	b.Spec.Exports[0].Uses = []string{"pkg.x"}
	p1 := manifest("p1", binderyv1alpha1.ModulePhaseResolved, nil, "pkg.x")
	p1.Spec.Exports[0].Version = "1.5.0"
	p2 := manifest("p2", binderyv1alpha1.ModulePhaseResolved, nil, "pkg.x")
	p2.Spec.Exports[0].Version = "1.9.0"

	wire := binderyv1alpha1.PackageWire{
		ObjectMeta: metav1.ObjectMeta{Name: "b-pkg-x"},
		Spec: binderyv1alpha1.PackageWireSpec{
			Package:  "pkg.x",
			Importer: "b",
			Provider: binderyv1alpha1.ProviderRef{ModuleManifestName: "p1", PackageVersion: "1.5.0"},
		},
	}
	return &StaticSource{
		Manifests: []binderyv1alpha1.ModuleManifest{x, s, b, p1, p2},
		Wires:     []binderyv1alpha1.PackageWire{wire},
	}
}

func TestStore_ResolveAttemptsAreScopedToOneQuery(t *testing.T) {
	ctx := context.Background()
	store := NewStore(crossedSource(), nil)
	a := analysis.New(store, store)
	s := moduleRef("org.s", "1.0.0")

	alone, err := a.FindUseConflicts(ctx, s)
	if err != nil {
		t.Fatalf("FindUseConflicts(s): %v", err)
	}
	if _, err := a.FindUseConflicts(ctx, moduleRef("org.x", "1.0.0")); err != nil {
		t.Fatalf("FindUseConflicts(x): %v", err)
	}
	after, err := a.FindUseConflicts(ctx, s)
	if err != nil {
		t.Fatalf("FindUseConflicts(s): %v", err)
	}
	if len(alone) != len(after) {
		t.Fatalf("expected the same conflicts alone and after x, got %v then %v", alone, after)
	}
	if _, ok, _ := store.ActiveWire(ctx, s, "pkg.x"); ok {
		t.Fatalf("expected the store to see no attempt made by a query")
	}

	// A session keeps its attempts: once s is attempted its simulated wire crosses b's.
	q := a.Session()
	if _, err := q.FindUseConflicts(ctx, moduleRef("org.x", "1.0.0")); err != nil {
		t.Fatalf("FindUseConflicts(x): %v", err)
	}
	crossed, err := q.FindUseConflicts(ctx, s)
	if err != nil {
		t.Fatalf("FindUseConflicts(s): %v", err)
	}
	if len(crossed) != 1 || crossed[0].Kind != analysis.ConflictWiringProviderMismatch || crossed[0].ConflictModule != moduleRef("org.b", "1.0.0") {
		t.Fatalf("expected one wiring conflict via b within the session, got %v", crossed)
	}
	if len(alone) != 0 {
		t.Fatalf("expected no conflicts for s before it is attempted, got %v", alone)
	}
}
