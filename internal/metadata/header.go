package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bayleafwalker/bindery-usecheck/internal/semver"
)

// ErrManifestParse indicates a malformed import or export declaration.
var ErrManifestParse = errors.New("malformed manifest declaration")

// clause is one comma-separated entry of an Import-Package or Export-Package header.
type clause struct {
	packages   []string
	attributes map[string]string
	directives map[string]string
}

// ParseImportPackage parses an OSGi-style Import-Package header, e.g.
//
//	a.b;c.d;version="[1.0,2.0)";resolution:=optional, e.f
func ParseImportPackage(header string, owner ModuleRef) ([]ImportedPackage, error) {
	clauses, err := parseClauses(header)
	if err != nil {
		return nil, err
	}
	out := make([]ImportedPackage, 0, len(clauses))
	for _, c := range clauses {
		r, err := semver.ParseRange(c.attributes["version"])
		if err != nil {
			return nil, fmt.Errorf("%w: import %s: %v", ErrManifestParse, strings.Join(c.packages, ";"), err)
		}
		resolution := ResolutionMandatory
		switch c.directives["resolution"] {
		case "", string(ResolutionMandatory):
		case string(ResolutionOptional):
			resolution = ResolutionOptional
		default:
			return nil, fmt.Errorf("%w: import %s: unknown resolution %q", ErrManifestParse, strings.Join(c.packages, ";"), c.directives["resolution"])
		}
		for _, pkg := range c.packages {
			out = append(out, ImportedPackage{Name: pkg, Range: r, Resolution: resolution, Module: owner})
		}
	}
	return out, nil
}

// ParseExportPackage parses an OSGi-style Export-Package header, e.g.
//
//	a.b;version=1.2;uses:="c.d,e.f", g.h
func ParseExportPackage(header string, owner ModuleRef) ([]ExportedPackage, error) {
	clauses, err := parseClauses(header)
	if err != nil {
		return nil, err
	}
	out := make([]ExportedPackage, 0, len(clauses))
	for _, c := range clauses {
		raw := c.attributes["version"]
		if raw == "" {
			raw = "0.0.0"
		}
		v, err := semver.ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: export %s: %v", ErrManifestParse, strings.Join(c.packages, ";"), err)
		}
		var uses []string
		if u := c.directives["uses"]; u != "" {
			for _, name := range strings.Split(u, ",") {
				uses = append(uses, strings.TrimSpace(name))
			}
		}
		for _, pkg := range c.packages {
			out = append(out, NewExport(owner, pkg, v, uses))
		}
	}
	return out, nil
}

func parseClauses(header string) ([]clause, error) {
	var out []clause
	for _, rawClause := range splitUnquoted(header, ',') {
		rawClause = strings.TrimSpace(rawClause)
		if rawClause == "" {
			continue
		}
		c := clause{attributes: map[string]string{}, directives: map[string]string{}}
		for _, part := range splitUnquoted(rawClause, ';') {
			part = strings.TrimSpace(part)
			if part == "" {
				return nil, fmt.Errorf("%w: empty element in %q", ErrManifestParse, rawClause)
			}
			if i := strings.Index(part, ":="); i >= 0 {
				key := strings.TrimSpace(part[:i])
				val, err := unquote(part[i+2:])
				if err != nil || key == "" {
					return nil, fmt.Errorf("%w: bad directive %q", ErrManifestParse, part)
				}
				c.directives[key] = val
				continue
			}
			if i := strings.Index(part, "="); i >= 0 {
				key := strings.TrimSpace(part[:i])
				val, err := unquote(part[i+1:])
				if err != nil || key == "" {
					return nil, fmt.Errorf("%w: bad attribute %q", ErrManifestParse, part)
				}
				c.attributes[key] = val
				continue
			}
			if len(c.attributes) > 0 || len(c.directives) > 0 {
				return nil, fmt.Errorf("%w: package %q after parameters in %q", ErrManifestParse, part, rawClause)
			}
			if strings.ContainsAny(part, " \t\"") {
				return nil, fmt.Errorf("%w: bad package name %q", ErrManifestParse, part)
			}
			c.packages = append(c.packages, part)
		}
		if len(c.packages) == 0 {
			return nil, fmt.Errorf("%w: clause %q names no package", ErrManifestParse, rawClause)
		}
		out = append(out, c)
	}
	return out, nil
}

func splitUnquoted(s string, sep byte) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func unquote(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, `"`) {
		if strings.Contains(raw, `"`) {
			return "", fmt.Errorf("stray quote in %q", raw)
		}
		return raw, nil
	}
	if len(raw) < 2 || !strings.HasSuffix(raw, `"`) {
		return "", fmt.Errorf("unterminated quote in %q", raw)
	}
	return raw[1 : len(raw)-1], nil
}
