package codec

import "github.com/specialistvlad/pipelinestudio/internal/pipeline"

// Document is the exported form of a pipeline.
type Document struct {
	Artifact *pipeline.Artifact `json:"artifact" validate:"required"`
	Config   *Config            `json:"config" validate:"required"`
}

// Config holds the stages partitioned by plugin type.
type Config struct {
	Source     *Stage  `json:"source" validate:"required"`
	Transforms []Stage `json:"transforms" validate:"dive"`
	Sinks      []Stage `json:"sinks" validate:"required,min=1,dive"`
	// Connections is nil when the document carries none, in which case a
	// linear chain is synthesized on import.
	Connections []pipeline.Connection `json:"connections"`
}

// Stage is one exported node.
type Stage struct {
	Name         string      `json:"name" validate:"required"`
	Plugin       StagePlugin `json:"plugin"`
	OutputSchema string      `json:"outputSchema,omitempty"`
	InputSchema  string      `json:"inputSchema,omitempty"`
}

// StagePlugin is the plugin configuration of a stage.
type StagePlugin struct {
	Name       string            `json:"name" validate:"required"`
	Label      string            `json:"label,omitempty"`
	Artifact   pipeline.Artifact `json:"artifact" validate:"-"`
	Properties map[string]any    `json:"properties"`
}
