package controllers

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	binderyv1alpha1 "github.com/bayleafwalker/bindery-usecheck/api/v1alpha1"
)

const testNamespace = "bindery-demo"

func newTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := binderyv1alpha1.AddToScheme(scheme); err != nil {
		t.Fatalf("AddToScheme: %v", err)
	}
	return scheme
}

func newTestClient(t *testing.T, scheme *runtime.Scheme, objs ...client.Object) client.Client {
	t.Helper()
	return fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&binderyv1alpha1.ModuleManifest{}, &binderyv1alpha1.PackageWire{}).
		WithObjects(objs...).
		Build()
}

type testModule struct {
	mm *binderyv1alpha1.ModuleManifest
}

func module(name string) *testModule {
	return &testModule{mm: &binderyv1alpha1.ModuleManifest{
		TypeMeta: metav1.TypeMeta{APIVersion: "bindery.platform/v1alpha1", Kind: "ModuleManifest"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
			UID:       types.UID(name + "-uid"),
		},
		Spec: binderyv1alpha1.ModuleManifestSpec{
			Module: binderyv1alpha1.ModuleIdentity{SymbolicName: "org." + name, Version: "1.0.0"},
		},
	}}
}

func (b *testModule) imports(pkg, rng string) *testModule {
	b.mm.Spec.Imports = append(b.mm.Spec.Imports, binderyv1alpha1.PackageImport{Package: pkg, VersionRange: rng})
	return b
}

func (b *testModule) optional(pkg, rng string) *testModule {
	b.mm.Spec.Imports = append(b.mm.Spec.Imports, binderyv1alpha1.PackageImport{
		Package: pkg, VersionRange: rng, Resolution: binderyv1alpha1.ResolutionOptional,
	})
	return b
}

func (b *testModule) exports(pkg, version string, uses ...string) *testModule {
	b.mm.Spec.Exports = append(b.mm.Spec.Exports, binderyv1alpha1.PackageExport{Package: pkg, Version: version, Uses: uses})
	return b
}

func (b *testModule) phase(p binderyv1alpha1.ModulePhase) *testModule {
	b.mm.Status.Phase = p
	return b
}

func wire(importer, pkg, provider string) *binderyv1alpha1.PackageWire {
	return &binderyv1alpha1.PackageWire{
		ObjectMeta: metav1.ObjectMeta{
			Name:      stableWireName(importer, pkg),
			Namespace: testNamespace,
			Labels:    map[string]string{binderyv1alpha1.LabelManagedBy: managedByWiring},
		},
		Spec: binderyv1alpha1.PackageWireSpec{
			Package:  pkg,
			Importer: importer,
			Provider: binderyv1alpha1.ProviderRef{ModuleManifestName: provider},
		},
	}
}

func key(name string) types.NamespacedName {
	return types.NamespacedName{Namespace: testNamespace, Name: name}
}
