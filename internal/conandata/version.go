package conandata

import (
	"slices"
	"strings"
)

// CompareVersions orders two version strings the way conan orders recipe
// versions. A leading "v" and any "+build" suffix are ignored. Dot separated
// items compare numerically when both are numbers, a number sorting before
// a word, and trailing zero items do not count, so "1.0" equals "1.0.0".
// A "-pre" suffix sorts before the plain version.
func CompareVersions(a, b string) int {
	amain, apre := splitVersion(a)
	bmain, bpre := splitVersion(b)
	if c := compareItems(amain, bmain); c != 0 {
		return c
	}
	switch {
	case apre == bpre:
		return 0
	case apre == "":
		return 1
	case bpre == "":
		return -1
	}
	return compareItems(apre, bpre)
}

// SortVersions sorts versions in ascending order.
func SortVersions(versions []string) {
	slices.SortStableFunc(versions, CompareVersions)
}

func splitVersion(v string) (main, pre string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	v, _, _ = strings.Cut(v, "+")
	main, pre, _ = strings.Cut(v, "-")
	return main, pre
}

func compareItems(a, b string) int {
	as, bs := trimZeros(strings.Split(a, ".")), trimZeros(strings.Split(b, "."))
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareItem(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func compareItem(a, b string) int {
	an, bn := isNumber(a), isNumber(b)
	switch {
	case an && bn:
		a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return strings.Compare(a, b)
	case an:
		return -1
	case bn:
		return 1
	}
	return strings.Compare(a, b)
}

func trimZeros(items []string) []string {
	for len(items) > 0 && isNumber(items[len(items)-1]) && strings.Trim(items[len(items)-1], "0") == "" {
		items = items[:len(items)-1]
	}
	return items
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
