package codec

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// MalformedConfigMessage is shown to the user when an import is not JSON.
const MalformedConfigMessage = "Syntax Error. Ill-formed pipeline configuration."

var (
	// ErrMalformedConfig is matched by every *MalformedConfigError.
	ErrMalformedConfig = errors.New("malformed pipeline configuration")
	// ErrInvalidSchema is matched by every *InvalidSchemaError.
	ErrInvalidSchema = errors.New("invalid pipeline configuration")
	// ErrUnknownArtifact is matched by every *UnknownArtifactError.
	ErrUnknownArtifact = errors.New("unknown pipeline artifact")
	// ErrIncompletePipeline is returned when exporting a graph without
	// exactly one source and at least one sink.
	ErrIncompletePipeline = errors.New("incomplete pipeline")
)

// MalformedConfigError reports an import that could not be parsed.
type MalformedConfigError struct {
	Err error
}

func (e *MalformedConfigError) Error() string { return MalformedConfigMessage }

// Unwrap exposes both the sentinel and the parser error.
func (e *MalformedConfigError) Unwrap() []error { return []error{ErrMalformedConfig, e.Err} }

// InvalidSchemaError reports a structurally incomplete import.
type InvalidSchemaError struct {
	// Field is the JSON path of the offending field, e.g. "config.source".
	Field   string
	Message string
}

func (e *InvalidSchemaError) Error() string { return e.Message }

func (e *InvalidSchemaError) Unwrap() error { return ErrInvalidSchema }

// UnknownArtifactError reports an import whose artifact is not in the
// catalog.
type UnknownArtifactError struct {
	Artifact pipeline.Artifact
}

func (e *UnknownArtifactError) Error() string {
	return fmt.Sprintf("pipeline artifact %s is not available", e.Artifact)
}

func (e *UnknownArtifactError) Unwrap() error { return ErrUnknownArtifact }

// Kind names the import error class of err for metrics and logs, or
// returns "" for errors that are not import errors.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedConfig):
		return "malformed"
	case errors.Is(err, ErrInvalidSchema):
		return "invalid_schema"
	case errors.Is(err, ErrUnknownArtifact):
		return "unknown_artifact"
	}
	return ""
}
