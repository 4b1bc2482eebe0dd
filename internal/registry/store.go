package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/resolver"
)

var (
	// ErrDuplicateModule is returned when two manifests declare the same symbolic name and version.
	ErrDuplicateModule = errors.New("duplicate module in snapshot")
	// ErrUnknownModule is returned for a module that is not part of the loaded snapshot. It wraps
	// analysis.ErrInvalidModuleReference.
	ErrUnknownModule = fmt.Errorf("%w: module not in snapshot", analysis.ErrInvalidModuleReference)
)

// Store adapts one snapshot of ModuleManifest and PackageWire objects to the analyzer's
// Registry, Oracle and RefreshReporter interfaces.
//
// The snapshot is loaded on first use and kept until Refresh. Modules without a recorded phase
// and without PackageWires are judged by the simulated resolver, as are modules passed to
// AttemptResolve. Attempts made through the Store itself last until Refresh; attempts made
// through a Session last as long as the session. Store is safe for concurrent use.
type Store struct {
	source   Source
	resolver resolver.Resolver

	mu        sync.Mutex
	snap      *snapshot
	attempted map[metadata.ModuleRef]struct{}
}

type entry struct {
	name     string
	manifest metadata.Manifest
	err      error
	phase    binderyv1alpha1.ModulePhase
}

type wireKey struct {
	importer metadata.ModuleRef
	pkg      string
}

type snapshot struct {
	order   []metadata.ModuleRef
	modules map[metadata.ModuleRef]*entry
	byName  map[string]metadata.ModuleRef
	wires   map[wireKey]binderyv1alpha1.PackageWire
	wired   map[metadata.ModuleRef]bool

	plan *resolver.Plan
}

// NewStore returns a Store over source. A nil resolver selects resolver.NewDefault.
func NewStore(source Source, r resolver.Resolver) *Store {
	if r == nil {
		r = resolver.NewDefault()
	}
	return &Store{source: source, resolver: r}
}

// Refresh discards the current snapshot and any resolve attempts and loads a new snapshot.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	logger := logr.FromContextOrDiscard(ctx)

	manifests, err := s.source.ListManifests(ctx)
	if err != nil {
		return err
	}
	wires, err := s.source.ListWires(ctx)
	if err != nil {
		return err
	}

	snap := &snapshot{
		modules: make(map[metadata.ModuleRef]*entry, len(manifests)),
		byName:  make(map[string]metadata.ModuleRef, len(manifests)),
		wires:   make(map[wireKey]binderyv1alpha1.PackageWire, len(wires)),
		wired:   map[metadata.ModuleRef]bool{},
	}
	parseFailures := 0
	for i := range manifests {
		obj := &manifests[i]
		ref := RefOf(obj)
		if prev, ok := snap.modules[ref]; ok {
			return fmt.Errorf("%w: %s declared by %s and %s", ErrDuplicateModule, ref, prev.name, obj.Name)
		}
		m, err := ManifestFromObject(obj)
		if err != nil {
			parseFailures++
			logger.V(1).Info("manifest does not parse", "moduleManifest", obj.Name, "error", err.Error())
		}
		snap.order = append(snap.order, ref)
		snap.modules[ref] = &entry{name: obj.Name, manifest: m, err: err, phase: obj.Status.Phase}
		snap.byName[obj.Name] = ref
	}

	for i := range wires {
		w := wires[i]
		importer, ok := snap.byName[w.Spec.Importer]
		if !ok {
			logger.V(1).Info("ignoring wire of unknown importer", "packageWire", w.Name, "importer", w.Spec.Importer)
			continue
		}
		key := wireKey{importer: importer, pkg: w.Spec.Package}
		if prev, ok := snap.wires[key]; ok {
			logger.Info("ignoring duplicate wire", "packageWire", w.Name, "kept", prev.Name)
			continue
		}
		snap.wires[key] = w
		snap.wired[importer] = true
	}

	s.snap = snap
	s.attempted = map[metadata.ModuleRef]struct{}{}
	logger.V(1).Info("loaded registry snapshot",
		"moduleCount", len(snap.order),
		"wireCount", len(snap.wires),
		"parseFailures", parseFailures,
	)
	return nil
}

func (s *Store) currentLocked(ctx context.Context) (*snapshot, error) {
	if s.snap == nil {
		if err := s.loadLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.snap, nil
}

func (s *Store) entryLocked(ctx context.Context, ref metadata.ModuleRef) (*snapshot, *entry, error) {
	snap, err := s.currentLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, ok := snap.modules[ref]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownModule, ref)
	}
	return snap, e, nil
}

// planLocked returns the simulated resolution of every parseable manifest in the snapshot.
func (s *Store) planLocked(ctx context.Context, snap *snapshot) (resolver.Plan, error) {
	if snap.plan != nil {
		return *snap.plan, nil
	}
	in := resolver.Input{Modules: make([]metadata.Manifest, 0, len(snap.order))}
	for _, ref := range snap.order {
		if e := snap.modules[ref]; e.err == nil {
			in.Modules = append(in.Modules, e.manifest)
		}
	}
	plan, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return resolver.Plan{}, fmt.Errorf("simulate resolution: %w", err)
	}
	snap.plan = &plan
	return plan, nil
}

// ListModules implements analysis.Registry.
func (s *Store) ListModules(ctx context.Context) ([]metadata.ModuleRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.currentLocked(ctx)
	if err != nil {
		return nil, err
	}
	return append([]metadata.ModuleRef(nil), snap.order...), nil
}

// ManifestOf implements analysis.Registry. A manifest that failed to parse returns its parse error.
func (s *Store) ManifestOf(ctx context.Context, ref metadata.ModuleRef) (metadata.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, e, err := s.entryLocked(ctx, ref)
	if err != nil {
		return metadata.Manifest{}, err
	}
	if e.err != nil {
		return metadata.Manifest{}, e.err
	}
	return e.manifest, nil
}

// ObjectName returns the name of the ModuleManifest that declares ref.
func (s *Store) ObjectName(ctx context.Context, ref metadata.ModuleRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, e, err := s.entryLocked(ctx, ref)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

// ModuleNamed returns the module declared by the ModuleManifest called name.
func (s *Store) ModuleNamed(ctx context.Context, name string) (metadata.ModuleRef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.currentLocked(ctx)
	if err != nil {
		return metadata.ModuleRef{}, false, err
	}
	ref, ok := snap.byName[name]
	return ref, ok, nil
}

// Plan returns the simulated resolution of the snapshot.
func (s *Store) Plan(ctx context.Context) (resolver.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.currentLocked(ctx)
	if err != nil {
		return resolver.Plan{}, err
	}
	return s.planLocked(ctx, snap)
}

// IsUnresolved implements analysis.Oracle.
func (s *Store) IsUnresolved(ctx context.Context, ref metadata.ModuleRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, e, err := s.entryLocked(ctx, ref)
	if err != nil {
		return false, err
	}
	switch {
	case e.err != nil:
		return true, nil
	case e.phase == binderyv1alpha1.ModulePhaseResolved:
		return false, nil
	case e.phase == binderyv1alpha1.ModulePhaseUnresolved:
		return true, nil
	}
	plan, err := s.planLocked(ctx, snap)
	if err != nil {
		return false, err
	}
	return !plan.Resolved(ref), nil
}

// ActiveWire implements analysis.Oracle.
//
// A PackageWire marked stale, or whose provider is gone, is not active. Modules with recorded
// PackageWires use only those; otherwise simulated wires apply once the module has been
// attempted or when it has no recorded phase.
func (s *Store) ActiveWire(ctx context.Context, ref metadata.ModuleRef, pkg string) (metadata.ModuleRef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.currentLocked(ctx); err != nil {
		return metadata.ModuleRef{}, false, err
	}
	return s.activeWireLocked(ctx, ref, pkg, s.attempted)
}

func (s *Store) activeWireLocked(ctx context.Context, ref metadata.ModuleRef, pkg string, attempted map[metadata.ModuleRef]struct{}) (metadata.ModuleRef, bool, error) {
	snap, e, err := s.entryLocked(ctx, ref)
	if err != nil {
		return metadata.ModuleRef{}, false, err
	}

	if pw, ok := snap.wires[wireKey{importer: ref, pkg: pkg}]; ok {
		if pw.Status.Stale {
			return metadata.ModuleRef{}, false, nil
		}
		provider, ok := snap.byName[pw.Spec.Provider.ModuleManifestName]
		return provider, ok, nil
	}
	if snap.wired[ref] {
		return metadata.ModuleRef{}, false, nil
	}

	if _, ok := attempted[ref]; !ok && e.phase != "" {
		return metadata.ModuleRef{}, false, nil
	}
	plan, err := s.planLocked(ctx, snap)
	if err != nil {
		return metadata.ModuleRef{}, false, err
	}
	w, ok := plan.Wire(ref, pkg)
	if !ok {
		return metadata.ModuleRef{}, false, nil
	}
	return w.Provider, true, nil
}

// AttemptResolve implements analysis.Oracle. Resolved modules report true without simulation;
// any other module is resolved against the snapshot and its simulated wires become active.
func (s *Store) AttemptResolve(ctx context.Context, ref metadata.ModuleRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.currentLocked(ctx); err != nil {
		return false, err
	}
	return s.attemptLocked(ctx, ref, s.attempted)
}

func (s *Store) attemptLocked(ctx context.Context, ref metadata.ModuleRef, attempted map[metadata.ModuleRef]struct{}) (bool, error) {
	snap, e, err := s.entryLocked(ctx, ref)
	if err != nil {
		return false, err
	}
	if e.phase == binderyv1alpha1.ModulePhaseResolved {
		return true, nil
	}
	if e.err != nil {
		return false, nil
	}
	plan, err := s.planLocked(ctx, snap)
	if err != nil {
		return false, err
	}
	attempted[ref] = struct{}{}
	resolved := plan.Resolved(ref)
	logr.FromContextOrDiscard(ctx).V(1).Info("attempted resolve", "module", ref.String(), "resolved", resolved)
	return resolved, nil
}

// session is a view of a Store with resolve attempts of its own.
type session struct {
	store     *Store
	attempted map[metadata.ModuleRef]struct{}
}

// Session implements analysis.Sessions. The session shares the Store's snapshot; its resolve
// attempts are not seen by the Store or by other sessions.
func (s *Store) Session() analysis.Oracle {
	return &session{store: s, attempted: map[metadata.ModuleRef]struct{}{}}
}

func (q *session) IsUnresolved(ctx context.Context, ref metadata.ModuleRef) (bool, error) {
	return q.store.IsUnresolved(ctx, ref)
}

func (q *session) ActiveWire(ctx context.Context, ref metadata.ModuleRef, pkg string) (metadata.ModuleRef, bool, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	return q.store.activeWireLocked(ctx, ref, pkg, q.attempted)
}

func (q *session) AttemptResolve(ctx context.Context, ref metadata.ModuleRef) (bool, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	return q.store.attemptLocked(ctx, ref, q.attempted)
}

func (q *session) IsRefreshRequired(ctx context.Context, ref metadata.ModuleRef, pkg string) (bool, error) {
	return q.store.IsRefreshRequired(ctx, ref, pkg)
}

// IsRefreshRequired implements analysis.RefreshReporter: the module has a PackageWire for pkg
// that is marked stale or whose provider no longer exports a satisfying version.
func (s *Store) IsRefreshRequired(ctx context.Context, ref metadata.ModuleRef, pkg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, e, err := s.entryLocked(ctx, ref)
	if err != nil {
		return false, err
	}
	pw, ok := snap.wires[wireKey{importer: ref, pkg: pkg}]
	if !ok {
		return false, nil
	}
	if pw.Status.Stale {
		return true, nil
	}
	providerRef, ok := snap.byName[pw.Spec.Provider.ModuleManifestName]
	if !ok {
		return true, nil
	}
	provider := snap.modules[providerRef]
	imp, ok := e.manifest.Import(pkg)
	if !ok || provider.err != nil {
		return true, nil
	}
	_, ok = provider.manifest.ExportSatisfying(imp)
	return !ok, nil
}

// Lookup returns the module identified by id: a ModuleManifest name, or the module's
// "symbolicName/version" form.
func (s *Store) Lookup(ctx context.Context, id string) (metadata.ModuleRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.currentLocked(ctx)
	if err != nil {
		return metadata.ModuleRef{}, err
	}
	if ref, ok := snap.byName[id]; ok {
		return ref, nil
	}
	for _, ref := range snap.order {
		if ref.String() == id {
			return ref, nil
		}
	}
	return metadata.ModuleRef{}, fmt.Errorf("%w: %s", ErrUnknownModule, id)
}
