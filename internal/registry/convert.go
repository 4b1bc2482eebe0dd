package registry

import (
	"fmt"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/semver"
)

// RefOf returns the module identity declared by mm.
func RefOf(mm *binderyv1alpha1.ModuleManifest) metadata.ModuleRef {
	return metadata.ModuleRef{SymbolicName: mm.Spec.Module.SymbolicName, Version: mm.Spec.Module.Version}
}

// ManifestFromObject builds the metadata model of mm.
//
// Structured imports and exports come first, in declaration order, followed by the packages of the
// raw headers that the structured lists do not already name. Every failure wraps
// metadata.ErrManifestParse.
func ManifestFromObject(mm *binderyv1alpha1.ModuleManifest) (metadata.Manifest, error) {
	ref := RefOf(mm)
	if ref.SymbolicName == "" {
		return metadata.Manifest{}, fmt.Errorf("%w: modulemanifest %s has no symbolic name", metadata.ErrManifestParse, mm.Name)
	}
	if ref.Version != "" {
		if _, err := semver.ParseVersion(ref.Version); err != nil {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: %v", metadata.ErrManifestParse, ref.SymbolicName, err)
		}
	}

	out := metadata.Manifest{Module: ref}
	imported := map[string]struct{}{}
	for _, imp := range mm.Spec.Imports {
		if imp.Package == "" {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: import with empty package", metadata.ErrManifestParse, ref)
		}
		if _, dup := imported[imp.Package]; dup {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: package %s imported twice", metadata.ErrManifestParse, ref, imp.Package)
		}
		rng, err := semver.ParseRange(imp.VersionRange)
		if err != nil {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: import %s: %v", metadata.ErrManifestParse, ref, imp.Package, err)
		}
		res, err := resolutionOf(imp.Resolution)
		if err != nil {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: import %s: %v", metadata.ErrManifestParse, ref, imp.Package, err)
		}
		imported[imp.Package] = struct{}{}
		out.Imports = append(out.Imports, metadata.ImportedPackage{Name: imp.Package, Range: rng, Resolution: res, Module: ref})
	}

	exported := map[string]struct{}{}
	for _, exp := range mm.Spec.Exports {
		if exp.Package == "" {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: export with empty package", metadata.ErrManifestParse, ref)
		}
		raw := exp.Version
		if raw == "" {
			raw = "0.0.0"
		}
		v, err := semver.ParseVersion(raw)
		if err != nil {
			return metadata.Manifest{}, fmt.Errorf("%w: module %s: export %s: %v", metadata.ErrManifestParse, ref, exp.Package, err)
		}
		exported[exp.Package] = struct{}{}
		out.Exports = append(out.Exports, metadata.NewExport(ref, exp.Package, v, exp.Uses))
	}

	if h := mm.Spec.Headers; h != nil {
		imports, err := metadata.ParseImportPackage(h.ImportPackage, ref)
		if err != nil {
			return metadata.Manifest{}, fmt.Errorf("module %s: Import-Package: %w", ref, err)
		}
		for _, imp := range imports {
			if _, ok := imported[imp.Name]; ok {
				continue
			}
			imported[imp.Name] = struct{}{}
			out.Imports = append(out.Imports, imp)
		}
		exports, err := metadata.ParseExportPackage(h.ExportPackage, ref)
		if err != nil {
			return metadata.Manifest{}, fmt.Errorf("module %s: Export-Package: %w", ref, err)
		}
		for _, exp := range exports {
			if _, ok := exported[exp.Name]; ok {
				continue
			}
			exported[exp.Name] = struct{}{}
			out.Exports = append(out.Exports, exp)
		}
	}
	return out, nil
}

func resolutionOf(k binderyv1alpha1.ResolutionKind) (metadata.Resolution, error) {
	switch k {
	case "", binderyv1alpha1.ResolutionMandatory:
		return metadata.ResolutionMandatory, nil
	case binderyv1alpha1.ResolutionOptional:
		return metadata.ResolutionOptional, nil
	default:
		return "", fmt.Errorf("unknown resolution %q", k)
	}
}
