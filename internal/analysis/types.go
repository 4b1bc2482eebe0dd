package analysis

import (
	"fmt"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

type ConflictKind string

const (
	// ConflictHeaderVersionMismatch: the subject's import range and a transitively used import range do not intersect.
	ConflictHeaderVersionMismatch ConflictKind = "HeaderVersionMismatch"
	// ConflictWiringProviderMismatch: the provider wired for a used package does not match the subject's import.
	ConflictWiringProviderMismatch ConflictKind = "WiringProviderMismatch"
)

// UseConflict is one incompatibility found for a subject import.
//
// ConflictImport is set for header conflicts, ConflictExport for wiring conflicts.
type UseConflict struct {
	Kind           ConflictKind
	Subject        metadata.ImportedPackage
	ConflictModule metadata.ModuleRef
	ConflictImport metadata.ImportedPackage
	ConflictExport metadata.ExportedPackage
}

func (c UseConflict) String() string {
	switch c.Kind {
	case ConflictHeaderVersionMismatch:
		return fmt.Sprintf("%s imports %s but %s uses %s", c.Subject.Module, c.Subject, c.ConflictModule, c.ConflictImport)
	default:
		return fmt.Sprintf("%s imports %s but %s is wired to %s from %s", c.Subject.Module, c.Subject, c.ConflictModule, c.ConflictExport, c.ConflictExport.Module)
	}
}

func (c UseConflict) key() string {
	switch c.Kind {
	case ConflictHeaderVersionMismatch:
		return fmt.Sprintf("%s|%s|%s|%s", c.Kind, c.Subject.Name, c.ConflictModule, c.ConflictImport)
	default:
		return fmt.Sprintf("%s|%s|%s|%s|%s", c.Kind, c.Subject.Name, c.ConflictModule, c.ConflictExport.Module, c.ConflictExport)
	}
}

type MissingReason string

const (
	MissingUnavailable     MissingReason = "Unavailable"
	MissingUseConflict     MissingReason = "UseConflict"
	MissingRefreshRequired MissingReason = "RefreshRequired"
	MissingUnknown         MissingReason = "Unknown"
	// MissingNotApplicable is never derived by the analyzer; it exists for adapters and reports.
	MissingNotApplicable MissingReason = "NotApplicable"
)

// MissingOptionalImport is an optional import without an active wire.
type MissingOptionalImport struct {
	Import metadata.ImportedPackage
	Reason MissingReason
	// Candidate is the best-match provider, when one exists.
	Candidate metadata.ModuleRef
	// Conflicts are set when Reason is MissingUseConflict.
	Conflicts []UseConflict
}

type SuggestionKind string

const (
	SuggestNone      SuggestionKind = "None"
	SuggestUninstall SuggestionKind = "UninstallBundle"
	SuggestRefresh   SuggestionKind = "RefreshBundle"
)

type ResolutionSuggestion struct {
	Kind   SuggestionKind
	Target metadata.ModuleRef
}

func (s ResolutionSuggestion) String() string {
	if s.Kind == SuggestNone {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Target)
}
