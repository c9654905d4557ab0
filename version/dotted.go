package version

import (
	"cmp"
	"strconv"
	"strings"
)

// Dotted is a build number such as "RS-9.3.1" or "233.11799".
type Dotted struct {
	productCode string
	components  []int
}

// Parse parses a dotted version with an optional "<code>-" prefix.
// At least two non-negative integer components are required.
func Parse(s string) (Dotted, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Dotted{}, &FormatError{Input: s, Reason: "version string is blank"}
	}

	code, rest := "", trimmed
	if i := strings.IndexByte(trimmed, '-'); i > 0 {
		code, rest = trimmed[:i], trimmed[i+1:]
		if !isAlphanumeric(code) {
			return Dotted{}, &FormatError{Input: s, Substring: code, Reason: "product code must be alphanumeric"}
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) < 2 {
		return Dotted{}, &FormatError{Input: s, Substring: rest, Reason: "at least two numeric components are required, got"}
	}

	components := make([]int, len(parts))
	for i, p := range parts {
		n, ok := parseComponent(p)
		if !ok {
			return Dotted{}, &FormatError{Input: s, Substring: p, Reason: "component is not a non-negative integer:"}
		}
		components[i] = n
	}

	return Dotted{productCode: code, components: components}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Dotted {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ProductCode returns the product code, or "" when absent.
func (v Dotted) ProductCode() string {
	return v.productCode
}

// Components returns a copy of the numeric components.
func (v Dotted) Components() []int {
	return append([]int(nil), v.components...)
}

// Baseline returns the first component.
func (v Dotted) Baseline() int {
	if len(v.components) == 0 {
		return 0
	}
	return v.components[0]
}

func (v Dotted) String() string {
	var b strings.Builder
	if v.productCode != "" {
		b.WriteString(v.productCode)
		b.WriteByte('-')
	}
	for i, c := range v.components {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// Compare orders two versions carrying different product codes by code
// first ("IC-200.0" < "IU-100.0"). Otherwise it orders component by
// component, then by length, and a product code only breaks ties, so
// "IU-241.1" lies within "233.1 - 241.9999".
//
// The code-first rule makes the order non-transitive across a set that
// mixes coded and code-less versions.
func (v Dotted) Compare(other Version) int {
	o, ok := other.(Dotted)
	if !ok {
		return strings.Compare(v.String(), other.String())
	}
	if v.productCode != "" && o.productCode != "" && v.productCode != o.productCode {
		return strings.Compare(v.productCode, o.productCode)
	}
	for i := 0; i < len(v.components) && i < len(o.components); i++ {
		if c := cmp.Compare(v.components[i], o.components[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(v.components), len(o.components)); c != 0 {
		return c
	}
	return strings.Compare(v.productCode, o.productCode)
}

func parseComponent(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
