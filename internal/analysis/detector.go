package analysis

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

// Analyzer detects use conflicts and missing optional imports over a Registry and an Oracle.
//
// An Analyzer holds no state between calls; every query reads a fresh snapshot. When the oracle
// implements Sessions, each query runs in its own oracle session.
type Analyzer struct {
	registry Registry
	oracle   Oracle
	pinned   bool
}

func New(registry Registry, oracle Oracle) *Analyzer {
	return &Analyzer{registry: registry, oracle: oracle}
}

// Session returns an Analyzer whose queries share one oracle session, so resolve attempts made
// by one query stay visible to the next. Use it to suggest a fix for a conflict under the same
// wiring the conflict was found with.
func (a *Analyzer) Session() *Analyzer {
	o := a.oracle
	if s, ok := o.(Sessions); ok {
		o = s.Session()
	}
	return &Analyzer{registry: a.registry, oracle: o, pinned: true}
}

// query returns the analyzer one top-level query runs on.
func (a *Analyzer) query() *Analyzer {
	if a.pinned {
		return a
	}
	return a.Session()
}

// FindUseConflicts returns the use conflicts of every import of module.
//
// Nothing is searched unless the oracle reports module as unresolved.
func (a *Analyzer) FindUseConflicts(ctx context.Context, module metadata.ModuleRef) ([]UseConflict, error) {
	q := a.query()
	return q.findSubject(ctx, q.ModuleSubject(module), nil)
}

// FindImportUseConflicts is FindUseConflicts restricted to one import of module.
func (a *Analyzer) FindImportUseConflicts(ctx context.Context, module metadata.ModuleRef, imp metadata.ImportedPackage) ([]UseConflict, error) {
	if imp.Module != module {
		return nil, fmt.Errorf("%w: import %s belongs to %s, not %s", ErrInvalidModuleReference, imp.Name, imp.Module, module)
	}
	q := a.query()
	return q.findSubject(ctx, q.ModuleSubject(module), &imp)
}

// FindSubjectUseConflicts runs the conflict search for any Subject.
func (a *Analyzer) FindSubjectUseConflicts(ctx context.Context, s Subject) ([]UseConflict, error) {
	return a.query().findSubject(ctx, s, nil)
}

func (a *Analyzer) findSubject(ctx context.Context, s Subject, only *metadata.ImportedPackage) ([]UseConflict, error) {
	check, err := s.ShouldCheck(ctx)
	if err != nil {
		return nil, err
	}
	if !check {
		return nil, nil
	}
	m, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	w := a.newWalk(ctx, s, m)
	imports := m.Imports
	if only != nil {
		imports = []metadata.ImportedPackage{*only}
	}
	for _, imp := range imports {
		candidate, ok, err := w.bestMatch(ctx, imp)
		if err != nil {
			return nil, err
		}
		if !ok {
			w.log.V(1).Info("no provider candidate", "package", imp.Name, "range", imp.Range.String())
			continue
		}
		w.enqueue(candidate, imp)
	}
	if err := w.run(ctx); err != nil {
		return nil, err
	}
	return w.conflicts, nil
}

// conflictsVia searches conflicts for a single import against a given candidate, regardless of
// the subject's resolution state.
func (a *Analyzer) conflictsVia(ctx context.Context, s Subject, m metadata.Manifest, imp metadata.ImportedPackage, candidate metadata.ModuleRef) ([]UseConflict, error) {
	w := a.newWalk(ctx, s, m)
	w.enqueue(candidate, imp)
	if err := w.run(ctx); err != nil {
		return nil, err
	}
	return w.conflicts, nil
}

type edge struct {
	candidate metadata.ModuleRef
	imp       metadata.ImportedPackage
}

type edgeKey struct {
	candidate metadata.ModuleRef
	importer  metadata.ModuleRef
	pkg       string
	rng       string
}

func (e edge) key() edgeKey {
	return edgeKey{candidate: e.candidate, importer: e.imp.Module, pkg: e.imp.Name, rng: e.imp.Range.String()}
}

// walk is the state of one top-level conflict search. It is never shared between calls.
type walk struct {
	a        *Analyzer
	log      logr.Logger
	subject  Subject
	manifest metadata.Manifest

	modules   []metadata.ModuleRef
	listed    bool
	manifests map[metadata.ModuleRef]metadata.Manifest
	resolved  map[metadata.ModuleRef]bool

	queue     []edge
	visited   map[edgeKey]struct{}
	seen      map[string]struct{}
	conflicts []UseConflict
}

func (a *Analyzer) newWalk(ctx context.Context, s Subject, m metadata.Manifest) *walk {
	w := &walk{
		a:         a,
		log:       logr.FromContextOrDiscard(ctx).WithValues("subject", m.Module.String()),
		subject:   s,
		manifest:  m,
		manifests: map[metadata.ModuleRef]metadata.Manifest{},
		resolved:  map[metadata.ModuleRef]bool{},
		visited:   map[edgeKey]struct{}{},
		seen:      map[string]struct{}{},
	}
	// An uninstalled manifest may share its name and version with an installed module; the walk
	// must read the installed one when it reaches that module as a candidate.
	if _, ok := s.(*moduleSubject); ok {
		w.manifests[m.Module] = m
	}
	return w
}

func (w *walk) enqueue(candidate metadata.ModuleRef, imp metadata.ImportedPackage) {
	e := edge{candidate: candidate, imp: imp}
	if _, ok := w.visited[e.key()]; ok {
		return
	}
	w.queue = append(w.queue, e)
}

// run drains the worklist. Edges are visited at most once, which bounds the walk on cyclic graphs.
func (w *walk) run(ctx context.Context) error {
	for len(w.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := w.queue[0]
		w.queue = w.queue[1:]

		k := e.key()
		if _, ok := w.visited[k]; ok {
			continue
		}
		w.visited[k] = struct{}{}

		if err := w.visit(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) visit(ctx context.Context, e edge) error {
	bm, err := w.manifestOf(ctx, e.candidate)
	if err != nil {
		return err
	}
	w.log.V(1).Info("checking provider", "candidate", e.candidate.String(), "package", e.imp.Name)

	exp, ok := bm.ExportSatisfying(e.imp)
	if ok {
		for _, use := range UseClosure(bm, exp) {
			match, ok := w.manifest.Import(use.Name)
			if !ok {
				// Reached through the candidate's own wires below.
				continue
			}
			w.applyHeaderRule(match, e.candidate, use)
			if err := w.applyWiringRule(ctx, match, e.candidate, use); err != nil {
				return err
			}
		}
	}

	for _, imp := range bm.Imports {
		provider, ok, err := w.providerFor(ctx, e.candidate, imp)
		if err != nil {
			return err
		}
		if ok {
			w.enqueue(provider, imp)
		}
	}
	return nil
}

func (w *walk) applyHeaderRule(match metadata.ImportedPackage, candidate metadata.ModuleRef, use metadata.ImportedPackage) {
	if match.Range.Intersects(use.Range) {
		return
	}
	w.record(UseConflict{
		Kind:           ConflictHeaderVersionMismatch,
		Subject:        match,
		ConflictModule: candidate,
		ConflictImport: use,
	})
}

func (w *walk) applyWiringRule(ctx context.Context, match metadata.ImportedPackage, candidate metadata.ModuleRef, use metadata.ImportedPackage) error {
	resolved, err := w.attemptResolve(ctx, candidate)
	if err != nil || !resolved {
		return err
	}
	provider, ok, err := w.a.oracle.ActiveWire(ctx, candidate, use.Name)
	if err != nil {
		return queryError("ActiveWire", candidate, use.Name, err)
	}
	if !ok {
		return nil
	}
	pm, err := w.manifestOf(ctx, provider)
	if err != nil {
		return err
	}

	satisfying, ok := pm.ExportSatisfying(match)
	if !ok {
		wired, found := pm.Export(use.Name)
		if !found {
			wired = metadata.ExportedPackage{Name: use.Name, Module: provider}
		}
		w.record(UseConflict{
			Kind:           ConflictWiringProviderMismatch,
			Subject:        match,
			ConflictModule: candidate,
			ConflictExport: wired,
		})
		return nil
	}

	own, ok, err := w.subject.ActiveWire(ctx, match.Name)
	if err != nil {
		return err
	}
	if ok && own != provider {
		w.record(UseConflict{
			Kind:           ConflictWiringProviderMismatch,
			Subject:        match,
			ConflictModule: candidate,
			ConflictExport: satisfying,
		})
	}
	return nil
}

func (w *walk) record(c UseConflict) {
	k := c.key()
	if _, ok := w.seen[k]; ok {
		return
	}
	w.seen[k] = struct{}{}
	w.log.V(1).Info("use conflict", "kind", string(c.Kind), "package", c.Subject.Name, "conflictModule", c.ConflictModule.String())
	w.conflicts = append(w.conflicts, c)
}

// providerFor returns the module that satisfies imp for module: its active wire, or for a
// mandatory import without a wire, the best-match candidate.
//
// TODO: unwired optional imports are not followed; decide whether an unresolved optional
// transitive import should be reported as a conflict of its own.
func (w *walk) providerFor(ctx context.Context, module metadata.ModuleRef, imp metadata.ImportedPackage) (metadata.ModuleRef, bool, error) {
	wire, ok, err := w.a.oracle.ActiveWire(ctx, module, imp.Name)
	if err != nil {
		return metadata.ModuleRef{}, false, queryError("ActiveWire", module, imp.Name, err)
	}
	if ok {
		return wire, true, nil
	}
	if imp.Optional() {
		return metadata.ModuleRef{}, false, nil
	}
	return w.bestMatch(ctx, imp)
}

// bestMatch returns the first module, in registry enumeration order, exporting a version that
// satisfies imp.
func (w *walk) bestMatch(ctx context.Context, imp metadata.ImportedPackage) (metadata.ModuleRef, bool, error) {
	if !w.listed {
		modules, err := w.a.registry.ListModules(ctx)
		if err != nil {
			return metadata.ModuleRef{}, false, queryError("ListModules", imp.Module, imp.Name, err)
		}
		w.modules, w.listed = modules, true
	}
	for _, ref := range w.modules {
		m, err := w.manifestOf(ctx, ref)
		if err != nil {
			return metadata.ModuleRef{}, false, err
		}
		if _, ok := m.ExportSatisfying(imp); ok {
			return ref, true, nil
		}
	}
	return metadata.ModuleRef{}, false, nil
}

func (w *walk) manifestOf(ctx context.Context, ref metadata.ModuleRef) (metadata.Manifest, error) {
	if m, ok := w.manifests[ref]; ok {
		return m, nil
	}
	m, err := w.a.registry.ManifestOf(ctx, ref)
	if err != nil {
		return metadata.Manifest{}, queryError("ManifestOf", ref, "", err)
	}
	w.manifests[ref] = m
	return m, nil
}

func (w *walk) attemptResolve(ctx context.Context, ref metadata.ModuleRef) (bool, error) {
	if r, ok := w.resolved[ref]; ok {
		return r, nil
	}
	r, err := w.a.oracle.AttemptResolve(ctx, ref)
	if err != nil {
		return false, queryError("AttemptResolve", ref, "", err)
	}
	w.resolved[ref] = r
	return r, nil
}
