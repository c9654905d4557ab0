// Package version models host build numbers, plugin-API versions and the
// compatibility ranges plugins declare against them.
//
// Two shapes of version exist. Dotted versions carry an optional product code
// and at least two numeric components ("IU-233.11799.241", "9.3"). Simple
// versions are opaque strings ordered lexically, used for plugin-API builds
// whose numbering is not under our control.
//
//	v, err := version.Parse("IU-233.11799")
//	if err != nil {
//		return err
//	}
//	r := version.Range{Since: version.MustParse("231.1")}
//	fmt.Println(version.IsCompatible(v, r)) // true
package version

import (
	"fmt"
	"strings"
)

// Version is an immutable, totally ordered version value.
// Two versions are equal exactly when their String forms are equal.
type Version interface {
	// String returns the canonical form.
	String() string

	// Compare returns a negative number, zero or a positive number when the
	// receiver sorts before, equal to or after other.
	Compare(other Version) int
}

// Compare orders two versions. Versions of different shapes are ordered by
// their canonical strings.
func Compare(a, b Version) int {
	return a.Compare(b)
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b Version) bool {
	return a.String() == b.String()
}

// Max returns the greatest of vs, keeping the first one on ties.
// It returns nil for an empty list.
func Max(vs ...Version) Version {
	var best Version
	for _, v := range vs {
		if best == nil || v.Compare(best) > 0 {
			best = v
		}
	}
	return best
}

// FormatError is returned when a version string cannot be parsed.
type FormatError struct {
	Input     string
	Substring string // offending part of Input, empty when the whole input is at fault
	Reason    string
}

func (e *FormatError) Error() string {
	if e.Substring == "" {
		return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid version %q: %s %q", e.Input, e.Reason, e.Substring)
}

// Simple is an opaque version ordered lexically.
type Simple struct {
	s string
}

// ParseSimple wraps s as a Simple version. Blank strings are rejected.
func ParseSimple(s string) (Simple, error) {
	if strings.TrimSpace(s) == "" {
		return Simple{}, &FormatError{Input: s, Reason: "version string must not be empty"}
	}
	return Simple{s: s}, nil
}

func (v Simple) String() string {
	return v.s
}

func (v Simple) Compare(other Version) int {
	return strings.Compare(v.s, other.String())
}
