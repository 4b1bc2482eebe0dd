package semver

import (
	"fmt"
	"strings"
)

// Range is a version interval.
//
// Examples:
// - "[1.0,2.0)" 1.0 inclusive up to 2.0 exclusive
// - "(1.0,1.5]"
// - "1.2"       at least 1.2, no upper bound
// - ""          any version
type Range struct {
	floor          Version
	floorInclusive bool

	ceiling          Version
	ceilingInclusive bool
	bounded          bool
}

// AnyVersion contains every version. An unset floor is unbounded below, so prereleases of 0.0.0
// are contained too.
var AnyVersion = Range{floorInclusive: true}

func ParseRange(raw string) (Range, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return AnyVersion, nil
	}

	open, close := raw[0], raw[len(raw)-1]
	if open != '[' && open != '(' {
		floor, err := ParseVersion(raw)
		if err != nil {
			return Range{}, fmt.Errorf("semver: parse range %q: %w", raw, err)
		}
		return AtLeast(floor), nil
	}
	if close != ']' && close != ')' {
		return Range{}, fmt.Errorf("semver: parse range %q: missing closing bracket", raw)
	}

	bounds := strings.Split(raw[1:len(raw)-1], ",")
	if len(bounds) != 2 {
		return Range{}, fmt.Errorf("semver: parse range %q: expected two bounds", raw)
	}
	floor, err := ParseVersion(bounds[0])
	if err != nil {
		return Range{}, fmt.Errorf("semver: parse range %q: %w", raw, err)
	}
	ceiling, err := ParseVersion(bounds[1])
	if err != nil {
		return Range{}, fmt.Errorf("semver: parse range %q: %w", raw, err)
	}
	return Range{
		floor:            floor,
		floorInclusive:   open == '[',
		ceiling:          ceiling,
		ceilingInclusive: close == ']',
		bounded:          true,
	}, nil
}

func MustParseRange(raw string) Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// AtLeast returns the range [v, infinity).
func AtLeast(v Version) Range {
	return Range{floor: v, floorInclusive: true}
}

// Exactly returns the range [v, v].
func Exactly(v Version) Range {
	return Range{floor: v, floorInclusive: true, ceiling: v, ceilingInclusive: true, bounded: true}
}

func (r Range) Contains(v Version) bool {
	if !r.floor.IsZero() {
		c := Compare(v, r.floor)
		if c < 0 || (c == 0 && !r.floorInclusive) {
			return false
		}
	}
	if !r.bounded {
		return true
	}
	c := Compare(v, r.ceiling)
	return c < 0 || (c == 0 && r.ceilingInclusive)
}

// IsEmpty reports whether no version can satisfy r.
func (r Range) IsEmpty() bool {
	if !r.bounded || r.floor.IsZero() {
		return false
	}
	c := Compare(r.floor, r.ceiling)
	return c > 0 || (c == 0 && !(r.floorInclusive && r.ceilingInclusive))
}

// Intersects reports whether at least one version is contained in both r and o.
func (r Range) Intersects(o Range) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}

	floor, floorInclusive := r.floor, r.floorInclusive
	switch c := Compare(o.floor, floor); {
	case o.floor.IsZero():
	case floor.IsZero() || c > 0:
		floor, floorInclusive = o.floor, o.floorInclusive
	case c == 0:
		floorInclusive = floorInclusive && o.floorInclusive
	}

	var ceiling Version
	var ceilingInclusive, bounded bool
	switch {
	case r.bounded && o.bounded:
		ceiling, ceilingInclusive, bounded = r.ceiling, r.ceilingInclusive, true
		switch c := Compare(o.ceiling, ceiling); {
		case c < 0:
			ceiling, ceilingInclusive = o.ceiling, o.ceilingInclusive
		case c == 0:
			ceilingInclusive = ceilingInclusive && o.ceilingInclusive
		}
	case r.bounded:
		ceiling, ceilingInclusive, bounded = r.ceiling, r.ceilingInclusive, true
	case o.bounded:
		ceiling, ceilingInclusive, bounded = o.ceiling, o.ceilingInclusive, true
	}

	return !Range{
		floor:            floor,
		floorInclusive:   floorInclusive,
		ceiling:          ceiling,
		ceilingInclusive: ceilingInclusive,
		bounded:          bounded,
	}.IsEmpty()
}

func (r Range) String() string {
	if !r.bounded {
		if r.floor.IsZero() && r.floorInclusive {
			return "0.0.0"
		}
		if r.floorInclusive {
			return r.floor.String()
		}
		return "(" + r.floor.String() + ",)"
	}
	open, close := "(", ")"
	if r.floorInclusive {
		open = "["
	}
	if r.ceilingInclusive {
		close = "]"
	}
	return open + r.floor.String() + "," + r.ceiling.String() + close
}
