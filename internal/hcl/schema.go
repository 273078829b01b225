package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Artifacts []*artifactBlock `hcl:"artifact,block"`
	Plugins   []*pluginBlock   `hcl:"plugin,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type artifactBlock struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version"`
	Scope   string `hcl:"scope,optional"`
}

type pluginBlock struct {
	Type         string           `hcl:"type,label"`
	Name         string           `hcl:"name,label"`
	Label        string           `hcl:"label,optional"`
	Description  string           `hcl:"description,optional"`
	Icon         string           `hcl:"icon,optional"`
	Pipelines    []string         `hcl:"pipelines,optional"`
	InputSchema  string           `hcl:"input_schema,optional"`
	OutputSchema string           `hcl:"output_schema,optional"`
	Artifact     *artifactBlock   `hcl:"artifact,block"`
	Properties   []*propertyBlock `hcl:"property,block"`
}

type propertyBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}
