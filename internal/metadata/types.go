package metadata

// Package metadata describes the package imports, exports and uses declared by a module manifest.
//
// All types are plain values; nothing here talks to a registry or resolver.

import (
	"github.com/bayleafwalker/bindery-usecheck/internal/semver"
)

// Resolution is the resolution kind of an import.
type Resolution string

const (
	ResolutionMandatory Resolution = "mandatory"
	ResolutionOptional  Resolution = "optional"
)

// ModuleRef identifies a module within a registry snapshot.
type ModuleRef struct {
	SymbolicName string
	Version      string
}

func (m ModuleRef) String() string {
	if m.Version == "" {
		return m.SymbolicName
	}
	return m.SymbolicName + "/" + m.Version
}

func (m ModuleRef) IsZero() bool { return m == ModuleRef{} }

type ImportedPackage struct {
	Name       string
	Range      semver.Range
	Resolution Resolution
	// Module is the importing module.
	Module ModuleRef
}

func (i ImportedPackage) Optional() bool { return i.Resolution == ResolutionOptional }

// SatisfiedBy reports whether e has the same package name and a version inside the import range.
func (i ImportedPackage) SatisfiedBy(e ExportedPackage) bool {
	return i.Name == e.Name && i.Range.Contains(e.Version)
}

func (i ImportedPackage) String() string {
	return i.Name + ";version=" + i.Range.String()
}

type ExportedPackage struct {
	Name    string
	Version semver.Version
	// Module is the exporting module.
	Module ModuleRef
	// Uses names the packages the exported implementation depends on internally.
	Uses []string
}

func (e ExportedPackage) String() string {
	return e.Name + ";version=" + e.Version.String()
}

// NewExport builds an ExportedPackage, dropping self references and duplicates from uses.
func NewExport(owner ModuleRef, name string, version semver.Version, uses []string) ExportedPackage {
	seen := make(map[string]struct{}, len(uses))
	cleaned := make([]string, 0, len(uses))
	for _, u := range uses {
		if u == "" || u == name {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		cleaned = append(cleaned, u)
	}
	return ExportedPackage{Name: name, Version: version, Module: owner, Uses: cleaned}
}

// Manifest is the raw metadata a module declares.
type Manifest struct {
	Module  ModuleRef
	Imports []ImportedPackage
	Exports []ExportedPackage
}

// Import returns the first import of the named package.
func (m Manifest) Import(name string) (ImportedPackage, bool) {
	for _, imp := range m.Imports {
		if imp.Name == name {
			return imp, true
		}
	}
	return ImportedPackage{}, false
}

// Export returns the first export of the named package.
func (m Manifest) Export(name string) (ExportedPackage, bool) {
	for _, exp := range m.Exports {
		if exp.Name == name {
			return exp, true
		}
	}
	return ExportedPackage{}, false
}

// ExportSatisfying returns the first export that satisfies imp.
func (m Manifest) ExportSatisfying(imp ImportedPackage) (ExportedPackage, bool) {
	for _, exp := range m.Exports {
		if imp.SatisfiedBy(exp) {
			return exp, true
		}
	}
	return ExportedPackage{}, false
}
