package v1alpha1

type ResolutionKind string

type ModulePhase string

const (
	ResolutionMandatory ResolutionKind = "mandatory"
	ResolutionOptional  ResolutionKind = "optional"

	ModulePhaseResolved   ModulePhase = "Resolved"
	ModulePhaseUnresolved ModulePhase = "Unresolved"
)

const (
	// LabelManagedBy marks objects written by the wiring controller.
	LabelManagedBy = "app.kubernetes.io/managed-by"
	// AnnotationRefresh on a ModuleManifest asks the wiring controller to rewire a resolved module.
	AnnotationRefresh = "bindery.platform/refresh"
)

const (
	ConditionUseConflictsFree         = "UseConflictsFree"
	ConditionOptionalImportsSatisfied = "OptionalImportsSatisfied"
)
