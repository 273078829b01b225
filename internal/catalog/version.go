package catalog

import (
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// compareVersions orders versions semantically when both parse as semver
// (with or without a leading "v") and lexically otherwise.
func compareVersions(a, b string) int {
	va, vb := canonical(a), canonical(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		if c := semver.Compare(va, vb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// latest returns the highest version in versions.
func latest(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	return slices.MaxFunc(versions, compareVersions)
}
