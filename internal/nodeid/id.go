// internal/nodeid/id.go
package nodeid

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Func produces an id for a node with the given label. The reducer takes one
// so tests can make ids deterministic.
type Func func(label string) string

// New returns a fresh id of the form `<slug>_<8 hex chars>`.
func New(label string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Slug(label) + "_" + suffix
}

// Sequential returns a Func that numbers ids in call order instead of using
// random suffixes.
func Sequential() Func {
	next := 0
	return func(label string) string {
		next++
		return fmt.Sprintf("%s_%08d", Slug(label), next)
	}
}

// Slug lowercases label and replaces every run of characters that are not
// letters or digits with a single dash.
func Slug(label string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteRune('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "node"
	}
	return slug
}
