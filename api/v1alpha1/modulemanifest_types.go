package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ModuleManifest declares a module's identity together with the packages it imports and exports.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=mm
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Module",type=string,JSONPath=`.spec.module.symbolicName`
// +kubebuilder:printcolumn:name="Version",type=string,JSONPath=`.spec.module.version`
// +kubebuilder:printcolumn:name="UseConflicts",type=string,JSONPath=`.status.conditions[?(@.type=="UseConflictsFree")].status`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type ModuleManifest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ModuleManifestSpec   `json:"spec"`
	Status ModuleManifestStatus `json:"status,omitempty"`
}

type ModuleManifestSpec struct {
	Module  ModuleIdentity  `json:"module"`
	Imports []PackageImport `json:"imports,omitempty"`
	Exports []PackageExport `json:"exports,omitempty"`
	// Headers holds raw Import-Package / Export-Package clauses. Packages declared here are
	// merged with Imports and Exports; structured entries win on a name collision.
	Headers *ManifestHeaders `json:"headers,omitempty"`
}

type ModuleIdentity struct {
	SymbolicName string `json:"symbolicName"`
	Version      string `json:"version"`
}

type PackageImport struct {
	Package string `json:"package"`
	// VersionRange uses interval notation, e.g. "[1.0,2.0)". A bare version means "at least".
	VersionRange string         `json:"versionRange,omitempty"`
	Resolution   ResolutionKind `json:"resolution,omitempty"`
}

type PackageExport struct {
	Package string   `json:"package"`
	Version string   `json:"version,omitempty"`
	Uses    []string `json:"uses,omitempty"`
}

type ManifestHeaders struct {
	ImportPackage string `json:"importPackage,omitempty"`
	ExportPackage string `json:"exportPackage,omitempty"`
}

type ModuleManifestStatus struct {
	ObservedGeneration     int64                         `json:"observedGeneration,omitempty"`
	Phase                  ModulePhase                   `json:"phase,omitempty"`
	Message                string                        `json:"message,omitempty"`
	Conditions             []metav1.Condition            `json:"conditions,omitempty"`
	UseConflicts           []UseConflictStatus           `json:"useConflicts,omitempty"`
	MissingOptionalImports []MissingOptionalImportStatus `json:"missingOptionalImports,omitempty"`
	LastCheckedTime        *metav1.Time                  `json:"lastCheckedTime,omitempty"`
}

type UseConflictStatus struct {
	Kind        string `json:"kind"`
	Package     string `json:"package"`
	ImportRange string `json:"importRange"`
	// Module is the symbolicName/version of the module whose uses clash with the import.
	Module string `json:"module"`
	// UsedRange is set for header conflicts: the range Module imports the package with.
	UsedRange string `json:"usedRange,omitempty"`
	// WiredProvider and WiredVersion are set for wiring conflicts.
	WiredProvider    string `json:"wiredProvider,omitempty"`
	WiredVersion     string `json:"wiredVersion,omitempty"`
	Suggestion       string `json:"suggestion,omitempty"`
	SuggestionTarget string `json:"suggestionTarget,omitempty"`
}

type MissingOptionalImportStatus struct {
	Package      string `json:"package"`
	VersionRange string `json:"versionRange"`
	Reason       string `json:"reason"`
	Candidate    string `json:"candidate,omitempty"`
	Suggestion   string `json:"suggestion,omitempty"`
}

// +kubebuilder:object:root=true
type ModuleManifestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ModuleManifest `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ModuleManifest{}, &ModuleManifestList{})
}
