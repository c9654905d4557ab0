package version

import (
	"cmp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// preRelease words sort before the release they qualify ("1.0-beta" < "1.0").
var preRelease = map[string]bool{
	"snapshot": true,
	"alpha":    true,
	"beta":     true,
	"eap":      true,
	"m":        true,
	"rc":       true,
}

// CompareStrings orders free-form plugin version strings such as "1.2.3",
// "2023.1-beta" or "1.0.0.4". Semantic versions are compared with semver
// rules; anything else is compared token by token. Distinct strings never
// compare equal.
func CompareStrings(a, b string) int {
	if a == b {
		return 0
	}
	if va, vb := "v"+a, "v"+b; semver.IsValid(va) && semver.IsValid(vb) {
		if c := semver.Compare(va, vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}
	if c := compareTokens(tokenize(a), tokenize(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareTokens(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareToken(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) > len(b):
		if preRelease[a[len(b)]] {
			return -1
		}
		return 1
	case len(a) < len(b):
		if preRelease[b[len(a)]] {
			return 1
		}
		return -1
	}
	return 0
}

func compareToken(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		// numbers sort after words: "1.0.1" > "1.0.beta"
		return 1
	case errB == nil:
		return -1
	}
	pa, pb := preRelease[a], preRelease[b]
	switch {
	case pa && !pb:
		return -1
	case !pa && pb:
		return 1
	}
	return strings.Compare(a, b)
}

// tokenize splits s into lower-cased runs of digits and letters.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	kind := 0
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range s {
		var k int
		switch {
		case unicode.IsDigit(r):
			k = 1
		case unicode.IsLetter(r):
			k = 2
		default:
			flush()
			kind = 0
			continue
		}
		if k != kind {
			flush()
			kind = k
		}
		cur.WriteRune(r)
	}
	flush()
	return tokens
}
