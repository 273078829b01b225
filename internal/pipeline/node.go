// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

// PluginRef is the plugin configuration carried by a node.
type PluginRef struct {
	Label      string         `json:"label"`
	Name       string         `json:"name"`
	Artifact   Artifact       `json:"artifact"`
	Properties map[string]any `json:"properties"`
}

// Node is a single stage placed on the canvas.
type Node struct {
	// ID is unique within a graph. It is derived from the label and is never
	// exported.
	ID     string
	Plugin PluginRef
	Type   PluginType

	Icon         string
	Description  string
	InputSchema  string
	OutputSchema string

	// PluginTemplate names the template the node was created from, if any.
	PluginTemplate string
	// Lock prevents property edits on nodes created from locked templates.
	Lock bool
	// Warning marks nodes that still need to be configured.
	Warning bool
}

// Label is the node's unique, human-readable stage name.
func (n Node) Label() string {
	return n.Plugin.Label
}

// Clone returns a copy that shares no maps with n.
func (n Node) Clone() Node {
	n.Plugin.Properties = cloneProperties(n.Plugin.Properties)
	return n
}

// Connection is a directed edge between two node labels.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}
