package version

import "strings"

// Range is a compatibility range of host versions. A nil bound is open.
type Range struct {
	Since Version
	Until Version
}

// Contains reports whether v lies within the range, bounds inclusive.
func (r Range) Contains(v Version) bool {
	if r.Since != nil && r.Since.Compare(v) > 0 {
		return false
	}
	if r.Until != nil && v.Compare(r.Until) > 0 {
		return false
	}
	return true
}

// IsCompatible reports whether v is inside r.
func IsCompatible(v Version, r Range) bool {
	return r.Contains(v)
}

// String renders the range for humans: "since - until", "since+", "1.0 - until" or "all".
func (r Range) String() string {
	switch {
	case r.Since != nil && r.Until != nil:
		return r.Since.String() + " - " + r.Until.String()
	case r.Since != nil:
		return r.Since.String() + "+"
	case r.Until != nil:
		return "1.0 - " + r.Until.String()
	default:
		return "all"
	}
}

// ParseRange parses optional dotted bounds. Empty strings leave a bound open.
func ParseRange(since, until string) (Range, error) {
	var r Range
	if s := strings.TrimSpace(since); s != "" {
		v, err := Parse(s)
		if err != nil {
			return Range{}, err
		}
		r.Since = v
	}
	if u := strings.TrimSpace(until); u != "" {
		v, err := Parse(u)
		if err != nil {
			return Range{}, err
		}
		r.Until = v
	}
	return r, nil
}
