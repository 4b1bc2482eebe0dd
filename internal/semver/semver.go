package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a module or package version.
//
// The numeric part is parsed by github.com/Masterminds/semver/v3. A fourth dot-separated
// segment is kept as an OSGi-style qualifier, which sorts after the unqualified version.
type Version struct {
	v         *mm.Version
	qualifier string
}

func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Version{}, fmt.Errorf("semver: parse version %q: empty", raw)
	}
	core, qualifier := raw, ""
	if parts := strings.SplitN(raw, ".", 4); len(parts) == 4 && !strings.ContainsAny(parts[2], "-+") {
		core = strings.Join(parts[:3], ".")
		qualifier = parts[3]
		if qualifier == "" {
			return Version{}, fmt.Errorf("semver: parse version %q: empty qualifier", raw)
		}
	}
	v, err := mm.NewVersion(core)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v, qualifier: qualifier}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool { return v.v == nil }

func (v Version) String() string {
	if v.v == nil {
		return "0.0.0"
	}
	s := fmt.Sprintf("%d.%d.%d", v.v.Major(), v.v.Minor(), v.v.Patch())
	if pre := v.v.Prerelease(); pre != "" {
		s += "-" + pre
	}
	if v.qualifier != "" {
		s += "." + v.qualifier
	}
	return s
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// A zero Version sorts as 0.0.0.
func Compare(a, b Version) int {
	av, bv := a.v, b.v
	if av == nil {
		av = zero
	}
	if bv == nil {
		bv = zero
	}
	if c := av.Compare(bv); c != 0 {
		return c
	}
	return strings.Compare(a.qualifier, b.qualifier)
}

var zero = mm.MustParse("0.0.0")
