package v1alpha1

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestModuleManifestDeepCopy_DoesNotAlias(t *testing.T) {
	in := &ModuleManifest{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Labels: map[string]string{"a": "b"}},
		Spec: ModuleManifestSpec{
			Module:  ModuleIdentity{SymbolicName: "org.app", Version: "1.0.0"},
			Imports: []PackageImport{{Package: "org.log", VersionRange: "[1.0,2.0)"}},
			Exports: []PackageExport{{Package: "org.app.api", Version: "1.0.0", Uses: []string{"org.log"}}},
			Headers: &ManifestHeaders{ImportPackage: "org.extra"},
		},
		Status: ModuleManifestStatus{
			Conditions:   []metav1.Condition{{Type: ConditionUseConflictsFree, Status: metav1.ConditionTrue}},
			UseConflicts: []UseConflictStatus{{Package: "org.log"}},
		},
	}

	out := in.DeepCopy()
	out.Labels["a"] = "changed"
	out.Spec.Imports[0].Package = "changed"
	out.Spec.Exports[0].Uses[0] = "changed"
	out.Spec.Headers.ImportPackage = "changed"
	out.Status.Conditions[0].Status = metav1.ConditionFalse
	out.Status.UseConflicts[0].Package = "changed"

	if in.Labels["a"] != "b" {
		t.Fatalf("labels aliased")
	}
	if in.Spec.Imports[0].Package != "org.log" || in.Spec.Exports[0].Uses[0] != "org.log" {
		t.Fatalf("spec slices aliased: %+v", in.Spec)
	}
	if in.Spec.Headers.ImportPackage != "org.extra" {
		t.Fatalf("headers aliased")
	}
	if in.Status.Conditions[0].Status != metav1.ConditionTrue || in.Status.UseConflicts[0].Package != "org.log" {
		t.Fatalf("status aliased: %+v", in.Status)
	}
}

func TestPackageWireListDeepCopyObject(t *testing.T) {
	in := &PackageWireList{Items: []PackageWire{{
		ObjectMeta: metav1.ObjectMeta{Name: "w"},
		Spec:       PackageWireSpec{Package: "org.log", Importer: "app", Provider: ProviderRef{ModuleManifestName: "log"}},
	}}}
	obj := in.DeepCopyObject()
	out, ok := obj.(*PackageWireList)
	if !ok {
		t.Fatalf("expected *PackageWireList, got %T", obj)
	}
	out.Items[0].Spec.Provider.ModuleManifestName = "other"
	if in.Items[0].Spec.Provider.ModuleManifestName != "log" {
		t.Fatalf("items aliased")
	}
}
