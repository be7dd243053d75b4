package updater

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Newer reports whether candidate is a later version than current. Semantic
// versions are compared by semver rules. Otherwise both must be plain
// major.minor.patch triples; an unparsable candidate is never newer and an
// unparsable current version is always superseded.
func Newer(candidate, current string) bool {
	c, errC := semver.StrictNewVersion(candidate)
	v, errV := semver.StrictNewVersion(current)
	if errC == nil && errV == nil {
		return c.GreaterThan(v)
	}

	ct, ok := triple(candidate)
	if !ok {
		return false
	}
	vt, ok := triple(current)
	if !ok {
		return true
	}
	for i := range ct {
		if ct[i] != vt[i] {
			return ct[i] > vt[i]
		}
	}
	return false
}

// triple parses the leading major.minor.patch integers of s. Trailing text
// after the patch number is ignored.
func triple(s string) ([3]int, bool) {
	var out [3]int
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		if i == 2 {
			p = leadingDigits(p)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
