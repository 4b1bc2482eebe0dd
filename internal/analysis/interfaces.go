package analysis

import (
	"context"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

// Registry supplies the installed modules and their manifests.
//
// Implementations must be safe to call repeatedly; the analyzer does not assume caching.
type Registry interface {
	// ListModules returns the modules of the current snapshot in enumeration order.
	ListModules(ctx context.Context) ([]metadata.ModuleRef, error)
	ManifestOf(ctx context.Context, module metadata.ModuleRef) (metadata.Manifest, error)
}

// Oracle reports the wiring decisions of the external resolver.
type Oracle interface {
	IsUnresolved(ctx context.Context, module metadata.ModuleRef) (bool, error)
	// ActiveWire returns the module currently bound to satisfy pkg for module, if any.
	ActiveWire(ctx context.Context, module metadata.ModuleRef, pkg string) (metadata.ModuleRef, bool, error)
	// AttemptResolve asks the resolver to resolve module. It may change oracle state.
	AttemptResolve(ctx context.Context, module metadata.ModuleRef) (bool, error)
}

// Sessions is implemented by oracles whose AttemptResolve leaves state behind. The analyzer opens
// one session per top-level query so an attempt made by one query is invisible to the next.
type Sessions interface {
	Session() Oracle
}

// RefreshReporter is implemented by oracles that can tell a resolvable but stale binding apart.
type RefreshReporter interface {
	IsRefreshRequired(ctx context.Context, module metadata.ModuleRef, pkg string) (bool, error)
}

// Subject is the module whose imports a conflict search checks.
//
// ModuleSubject adapts an installed module, ManifestSubject a manifest that is not installed yet.
type Subject interface {
	Manifest(ctx context.Context) (metadata.Manifest, error)
	ShouldCheck(ctx context.Context) (bool, error)
	ActiveWire(ctx context.Context, pkg string) (metadata.ModuleRef, bool, error)
}

type moduleSubject struct {
	ref      metadata.ModuleRef
	registry Registry
	oracle   Oracle
}

// ModuleSubject returns a Subject backed by an installed module. It is only checked while the
// oracle reports it unresolved.
func (a *Analyzer) ModuleSubject(ref metadata.ModuleRef) Subject {
	return &moduleSubject{ref: ref, registry: a.registry, oracle: a.oracle}
}

func (s *moduleSubject) Manifest(ctx context.Context) (metadata.Manifest, error) {
	modules, err := s.registry.ListModules(ctx)
	if err != nil {
		return metadata.Manifest{}, queryError("ListModules", s.ref, "", err)
	}
	found := false
	for _, m := range modules {
		if m == s.ref {
			found = true
			break
		}
	}
	if !found {
		return metadata.Manifest{}, &QueryError{Op: "ManifestOf", Module: s.ref, Err: ErrInvalidModuleReference}
	}
	m, err := s.registry.ManifestOf(ctx, s.ref)
	if err != nil {
		return metadata.Manifest{}, queryError("ManifestOf", s.ref, "", err)
	}
	return m, nil
}

func (s *moduleSubject) ShouldCheck(ctx context.Context) (bool, error) {
	unresolved, err := s.oracle.IsUnresolved(ctx, s.ref)
	if err != nil {
		return false, queryError("IsUnresolved", s.ref, "", err)
	}
	return unresolved, nil
}

func (s *moduleSubject) ActiveWire(ctx context.Context, pkg string) (metadata.ModuleRef, bool, error) {
	wire, ok, err := s.oracle.ActiveWire(ctx, s.ref, pkg)
	if err != nil {
		return metadata.ModuleRef{}, false, queryError("ActiveWire", s.ref, pkg, err)
	}
	return wire, ok, nil
}

type manifestSubject struct {
	manifest metadata.Manifest
}

// ManifestSubject returns a Subject for a manifest that has not been installed. It is always
// checked and has no wires of its own.
func ManifestSubject(m metadata.Manifest) Subject {
	return manifestSubject{manifest: m}
}

func (s manifestSubject) Manifest(context.Context) (metadata.Manifest, error) { return s.manifest, nil }

func (s manifestSubject) ShouldCheck(context.Context) (bool, error) { return true, nil }

func (s manifestSubject) ActiveWire(context.Context, string) (metadata.ModuleRef, bool, error) {
	return metadata.ModuleRef{}, false, nil
}
