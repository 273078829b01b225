// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

import (
	"fmt"
	"strings"
)

// Artifact identifies a versioned plugin bundle or pipeline engine.
type Artifact struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Version string `json:"version" yaml:"version" validate:"required"`
	Scope   string `json:"scope" yaml:"scope"`
}

// Equal reports deep equality of name, version and scope.
func (a Artifact) Equal(other Artifact) bool {
	return a.Name == other.Name && a.Version == other.Version && a.Scope == other.Scope
}

// IsZero reports whether no artifact has been selected.
func (a Artifact) IsZero() bool {
	return a == Artifact{}
}

// String renders the artifact as name:version:scope.
func (a Artifact) String() string {
	if a.Scope == "" {
		return fmt.Sprintf("%s:%s", a.Name, a.Version)
	}
	return fmt.Sprintf("%s:%s:%s", a.Name, a.Version, a.Scope)
}

// ParseArtifact parses the name[:version[:scope]] form used on the command line.
func ParseArtifact(raw string) (Artifact, error) {
	parts := strings.Split(raw, ":")
	if raw == "" || len(parts) > 3 || parts[0] == "" {
		return Artifact{}, fmt.Errorf("invalid artifact %q: expected name[:version[:scope]]", raw)
	}
	a := Artifact{Name: parts[0]}
	if len(parts) > 1 {
		a.Version = parts[1]
	}
	if len(parts) > 2 {
		a.Scope = parts[2]
	}
	return a, nil
}

// FindArtifact returns the first artifact in known deep-equal to want.
func FindArtifact(known []Artifact, want Artifact) (Artifact, bool) {
	for _, a := range known {
		if a.Equal(want) {
			return a, true
		}
	}
	return Artifact{}, false
}

// MatchArtifact resolves a possibly partial artifact (empty version or scope
// act as wildcards) against the known list.
func MatchArtifact(known []Artifact, want Artifact) (Artifact, bool) {
	for _, a := range known {
		if a.Name != want.Name {
			continue
		}
		if want.Version != "" && a.Version != want.Version {
			continue
		}
		if want.Scope != "" && a.Scope != want.Scope {
			continue
		}
		return a, true
	}
	return Artifact{}, false
}
