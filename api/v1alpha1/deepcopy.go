package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifest) DeepCopyInto(out *ModuleManifest) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new ModuleManifest.
func (in *ModuleManifest) DeepCopy() *ModuleManifest {
	if in == nil {
		return nil
	}
	out := new(ModuleManifest)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ModuleManifest) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifestList) DeepCopyInto(out *ModuleManifestList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ModuleManifest, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ModuleManifestList.
func (in *ModuleManifestList) DeepCopy() *ModuleManifestList {
	if in == nil {
		return nil
	}
	out := new(ModuleManifestList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ModuleManifestList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifestSpec) DeepCopyInto(out *ModuleManifestSpec) {
	*out = *in
	if in.Imports != nil {
		out.Imports = make([]PackageImport, len(in.Imports))
		copy(out.Imports, in.Imports)
	}
	if in.Exports != nil {
		out.Exports = make([]PackageExport, len(in.Exports))
		for i := range in.Exports {
			in.Exports[i].DeepCopyInto(&out.Exports[i])
		}
	}
	if in.Headers != nil {
		h := *in.Headers
		out.Headers = &h
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PackageExport) DeepCopyInto(out *PackageExport) {
	*out = *in
	if in.Uses != nil {
		out.Uses = make([]string, len(in.Uses))
		copy(out.Uses, in.Uses)
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifestStatus) DeepCopyInto(out *ModuleManifestStatus) {
	*out = *in
	if in.Conditions != nil {
		out.Conditions = make([]metav1.Condition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
	if in.UseConflicts != nil {
		out.UseConflicts = make([]UseConflictStatus, len(in.UseConflicts))
		copy(out.UseConflicts, in.UseConflicts)
	}
	if in.MissingOptionalImports != nil {
		out.MissingOptionalImports = make([]MissingOptionalImportStatus, len(in.MissingOptionalImports))
		copy(out.MissingOptionalImports, in.MissingOptionalImports)
	}
	if in.LastCheckedTime != nil {
		out.LastCheckedTime = in.LastCheckedTime.DeepCopy()
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PackageWire) DeepCopyInto(out *PackageWire) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec = in.Spec
	out.Status = in.Status
}

// DeepCopy copies the receiver, creating a new PackageWire.
func (in *PackageWire) DeepCopy() *PackageWire {
	if in == nil {
		return nil
	}
	out := new(PackageWire)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *PackageWire) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PackageWireList) DeepCopyInto(out *PackageWireList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]PackageWire, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new PackageWireList.
func (in *PackageWireList) DeepCopy() *PackageWireList {
	if in == nil {
		return nil
	}
	out := new(PackageWireList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *PackageWireList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
