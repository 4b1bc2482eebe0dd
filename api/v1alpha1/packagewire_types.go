package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PackageWire records which provider satisfies one package import of a module.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=pw
// +kubebuilder:printcolumn:name="Package",type=string,JSONPath=`.spec.package`
// +kubebuilder:printcolumn:name="Importer",type=string,JSONPath=`.spec.importer`
// +kubebuilder:printcolumn:name="Provider",type=string,JSONPath=`.spec.provider.moduleManifestName`
// +kubebuilder:printcolumn:name="Stale",type=boolean,JSONPath=`.status.stale`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type PackageWire struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PackageWireSpec   `json:"spec"`
	Status PackageWireStatus `json:"status,omitempty"`
}

type PackageWireSpec struct {
	Package string `json:"package"`
	// Importer is the name of the importing ModuleManifest.
	Importer string      `json:"importer"`
	Provider ProviderRef `json:"provider"`
}

type ProviderRef struct {
	ModuleManifestName string `json:"moduleManifestName"`
	PackageVersion     string `json:"packageVersion,omitempty"`
}

type PackageWireStatus struct {
	// Stale is set when the wire no longer matches what the resolver would choose and the
	// importer must be refreshed to pick up the change.
	Stale   bool   `json:"stale,omitempty"`
	Message string `json:"message,omitempty"`
}

// +kubebuilder:object:root=true
type PackageWireList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PackageWire `json:"items"`
}

func init() {
	SchemeBuilder.Register(&PackageWire{}, &PackageWireList{})
}
