// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph is wrapped by every error returned from Graph.Validate.
var ErrInvalidGraph = errors.New("invalid graph")

// Graph is the pipeline being edited.
type Graph struct {
	Nodes       []Node
	Connections []Connection
	Artifact    Artifact
}

// NewGraph returns an empty graph targeting the given artifact.
func NewGraph(artifact Artifact) Graph {
	return Graph{
		Nodes:       []Node{},
		Connections: []Connection{},
		Artifact:    artifact,
	}
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes:       make([]Node, len(g.Nodes)),
		Connections: make([]Connection, len(g.Connections)),
		Artifact:    g.Artifact,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Connections, g.Connections)
	return out
}

// NodeByID returns the index of the node with the given id, or -1.
func (g Graph) NodeByID(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// NodeByLabel returns the index of the node with the given label, or -1.
func (g Graph) NodeByLabel(label string) int {
	for i, n := range g.Nodes {
		if n.Plugin.Label == label {
			return i
		}
	}
	return -1
}

// HasConnection reports whether the exact edge from -> to exists.
func (g Graph) HasConnection(from, to string) bool {
	for _, c := range g.Connections {
		if c.From == from && c.To == to {
			return true
		}
	}
	return false
}

// NodesOfType returns the nodes of one plugin type in graph order.
func (g Graph) NodesOfType(t PluginType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Reachable reports whether to can be reached from from by following
// connections.
func (g Graph) Reachable(from, to string) bool {
	adjacency := make(map[string][]string, len(g.Nodes))
	for _, c := range g.Connections {
		adjacency[c.From] = append(adjacency[c.From], c.To)
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			return true
		}
		for _, next := range adjacency[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Validate checks the structural invariants every published graph satisfies:
// unique ids and labels, known plugin types, and connections whose endpoints
// exist and differ.
func (g Graph) Validate() error {
	ids := make(map[string]bool, len(g.Nodes))
	labels := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %q has no id", ErrInvalidGraph, n.Plugin.Label)
		}
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidGraph, n.ID)
		}
		ids[n.ID] = true
		if labels[n.Plugin.Label] {
			return fmt.Errorf("%w: duplicate node label %q", ErrInvalidGraph, n.Plugin.Label)
		}
		labels[n.Plugin.Label] = true
		if !n.Type.Valid() {
			return fmt.Errorf("%w: node %q has unknown type %q", ErrInvalidGraph, n.Plugin.Label, n.Type)
		}
	}
	for _, c := range g.Connections {
		if c.From == c.To {
			return fmt.Errorf("%w: self-referential connection on %q", ErrInvalidGraph, c.From)
		}
		if !labels[c.From] {
			return fmt.Errorf("%w: connection references unknown node %q", ErrInvalidGraph, c.From)
		}
		if !labels[c.To] {
			return fmt.Errorf("%w: connection references unknown node %q", ErrInvalidGraph, c.To)
		}
	}
	return nil
}
