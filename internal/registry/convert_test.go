package registry

import (
	"errors"
	"testing"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

func TestManifestFromObject_MergesHeaders(t *testing.T) {
	mm := &binderyv1alpha1.ModuleManifest{Spec: binderyv1alpha1.ModuleManifestSpec{
		Module: binderyv1alpha1.ModuleIdentity{SymbolicName: "org.app", Version: "1.2.0"},
		Imports: []binderyv1alpha1.PackageImport{
			{Package: "org.log", VersionRange: "[1.0,2.0)"},
		},
		Exports: []binderyv1alpha1.PackageExport{
			{Package: "org.app.api", Uses: []string{"org.log", "org.app.api"}},
		},
		Headers: &binderyv1alpha1.ManifestHeaders{
			ImportPackage: `org.log;version="[3.0,4.0)", org.metrics;resolution:=optional`,
			ExportPackage: `org.app.spi;version=1.1`,
		},
	}}

	m, err := ManifestFromObject(mm)
	if err != nil {
		t.Fatalf("ManifestFromObject: %v", err)
	}
	if len(m.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d: %+v", len(m.Imports), m.Imports)
	}
	if m.Imports[0].Range.String() != "[1.0.0,2.0.0)" {
		t.Fatalf("expected structured org.log to win, got %s", m.Imports[0].Range)
	}
	metrics, ok := m.Import("org.metrics")
	if !ok || !metrics.Optional() || metrics.Module != RefOf(mm) {
		t.Fatalf("unexpected org.metrics import: %+v", metrics)
	}
	api, ok := m.Export("org.app.api")
	if !ok || api.Version.String() != "0.0.0" || len(api.Uses) != 1 {
		t.Fatalf("unexpected org.app.api export: %+v", api)
	}
	if spi, ok := m.Export("org.app.spi"); !ok || spi.Version.String() != "1.1.0" {
		t.Fatalf("unexpected org.app.spi export: %+v", spi)
	}
}

func TestManifestFromObject_Errors(t *testing.T) {
	cases := map[string]binderyv1alpha1.ModuleManifestSpec{
		"no symbolic name": {},
		"bad range": {
			Module:  binderyv1alpha1.ModuleIdentity{SymbolicName: "a"},
			Imports: []binderyv1alpha1.PackageImport{{Package: "p", VersionRange: "[1.0"}},
		},
		"bad resolution": {
			Module:  binderyv1alpha1.ModuleIdentity{SymbolicName: "a"},
			Imports: []binderyv1alpha1.PackageImport{{Package: "p", Resolution: "sometimes"}},
		},
		"duplicate import": {
			Module:  binderyv1alpha1.ModuleIdentity{SymbolicName: "a"},
			Imports: []binderyv1alpha1.PackageImport{{Package: "p"}, {Package: "p"}},
		},
		"bad export version": {
			Module:  binderyv1alpha1.ModuleIdentity{SymbolicName: "a"},
			Exports: []binderyv1alpha1.PackageExport{{Package: "p", Version: "x.y"}},
		},
		"bad header": {
			Module:  binderyv1alpha1.ModuleIdentity{SymbolicName: "a"},
			Headers: &binderyv1alpha1.ManifestHeaders{ImportPackage: ";version=1"},
		},
	}
	for name, spec := range cases {
		_, err := ManifestFromObject(&binderyv1alpha1.ModuleManifest{Spec: spec})
		if !errors.Is(err, metadata.ErrManifestParse) {
			t.Fatalf("%s: expected ErrManifestParse, got %v", name, err)
		}
	}
}
