package resolver

import (
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/semver"
)

// Input is the normalized view of the world that the resolver operates on.
type Input struct {
	// Modules are resolved in this order; it is also the order of the resulting wires.
	Modules []metadata.Manifest
}

// Plan is the desired output of the resolver.
type Plan struct {
	Wires       []Wire
	Diagnostics Diagnostics
}

// Wire binds one import of Importer to an export of Provider.
type Wire struct {
	Importer        metadata.ModuleRef
	Package         string
	Provider        metadata.ModuleRef
	ProviderVersion semver.Version
	Optional        bool
}

// Diagnostics captures human-readable information about resolution.
//
// This is useful for status/messages/events, and for logging.
type Diagnostics struct {
	UnresolvedRequired []UnresolvedImport
	UnresolvedOptional []UnresolvedImport
	UsesViolations     []UsesViolation
}

type UnresolvedImport struct {
	Importer metadata.ModuleRef
	Package  string
	Range    string
	Reason   string
}

// UsesViolation records a wire of Importer whose provider (Via) uses Package from a different
// provider than the one Importer is wired to.
type UsesViolation struct {
	Importer         metadata.ModuleRef
	Package          string
	Via              metadata.ModuleRef
	ImporterProvider metadata.ModuleRef
	ViaProvider      metadata.ModuleRef
}

// Resolved reports whether module has neither unresolved mandatory imports nor uses violations.
func (p Plan) Resolved(module metadata.ModuleRef) bool {
	for _, u := range p.Diagnostics.UnresolvedRequired {
		if u.Importer == module {
			return false
		}
	}
	for _, v := range p.Diagnostics.UsesViolations {
		if v.Importer == module {
			return false
		}
	}
	return true
}

// Wire returns the wire of importer for pkg.
func (p Plan) Wire(importer metadata.ModuleRef, pkg string) (Wire, bool) {
	for _, w := range p.Wires {
		if w.Importer == importer && w.Package == pkg {
			return w, true
		}
	}
	return Wire{}, false
}

// WiresOf returns the wires of importer.
func (p Plan) WiresOf(importer metadata.ModuleRef) []Wire {
	var out []Wire
	for _, w := range p.Wires {
		if w.Importer == importer {
			out = append(out, w)
		}
	}
	return out
}
