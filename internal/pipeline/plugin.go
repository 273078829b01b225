// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

import (
	"fmt"
	"maps"
)

// PluginType distinguishes the role a plugin plays in a pipeline.
type PluginType string

const (
	Source    PluginType = "source"
	Transform PluginType = "transform"
	Sink      PluginType = "sink"
)

// PluginTypes lists every plugin type in pipeline order.
var PluginTypes = []PluginType{Source, Transform, Sink}

// Valid reports whether t is one of the known plugin types.
func (t PluginType) Valid() bool {
	switch t {
	case Source, Transform, Sink:
		return true
	}
	return false
}

// ParsePluginType converts a user-supplied string into a PluginType.
func ParsePluginType(s string) (PluginType, error) {
	t := PluginType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown plugin type %q: must be 'source', 'transform' or 'sink'", s)
	}
	return t, nil
}

// RealtimeArtifact is the pipeline artifact name for streaming pipelines.
const RealtimeArtifact = "cdap-etl-realtime"

// ExtensionType maps a plugin type to the extension type the catalog backend
// files it under for the given pipeline artifact.
func ExtensionType(pipelineArtifact string, t PluginType) string {
	if t == Transform {
		return "transform"
	}
	prefix := "batch"
	if pipelineArtifact == RealtimeArtifact {
		prefix = "realtime"
	}
	return prefix + string(t)
}

// PluginDescriptor is a catalog entry for one plugin at one artifact version.
type PluginDescriptor struct {
	Name         string         `json:"name"`
	Label        string         `json:"label,omitempty"`
	Type         PluginType     `json:"type"`
	Artifact     Artifact       `json:"artifact"`
	Icon         string         `json:"icon,omitempty"`
	Description  string         `json:"description,omitempty"`
	InputSchema  string         `json:"inputSchema,omitempty"`
	OutputSchema string         `json:"outputSchema,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// DisplayLabel is the label shown in the palette.
func (d PluginDescriptor) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// Clone returns a copy that shares no maps with d.
func (d PluginDescriptor) Clone() PluginDescriptor {
	d.Properties = cloneProperties(d.Properties)
	return d
}

// PluginTemplate is a saved, reusable preset configuration of a plugin.
type PluginTemplate struct {
	Namespace    string         `json:"namespace"`
	TemplateType string         `json:"templateType"`
	PluginType   PluginType     `json:"pluginType"`
	TemplateName string         `json:"pluginTemplate"`
	PluginName   string         `json:"pluginName"`
	Artifact     Artifact       `json:"artifact"`
	Properties   map[string]any `json:"properties,omitempty"`
	InputSchema  string         `json:"inputSchema,omitempty"`
	OutputSchema string         `json:"outputSchema,omitempty"`
	Lock         bool           `json:"lock,omitempty"`
}

// Clone returns a copy that shares no maps with t.
func (t PluginTemplate) Clone() PluginTemplate {
	t.Properties = cloneProperties(t.Properties)
	return t
}

func cloneProperties(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return maps.Clone(in)
}
