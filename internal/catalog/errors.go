package catalog

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

var (
	// ErrNetwork classifies fetch failures caused by the transport or the
	// backend itself.
	ErrNetwork = errors.New("catalog backend unreachable")
	// ErrNotFound classifies fetches for artifacts or plugin types the
	// backend does not know.
	ErrNotFound = errors.New("not found in catalog")
	// ErrSuperseded is returned by a Load that was overtaken by a newer one.
	ErrSuperseded = errors.New("catalog load superseded")
)

// FetchError describes a failed plugin list fetch.
type FetchError struct {
	PluginType pipeline.PluginType
	Artifact   pipeline.Artifact
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s plugins for %s: %v", e.PluginType, e.Artifact, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify makes sure err matches ErrNetwork or ErrNotFound. Errors that do
// neither are treated as network failures.
func classify(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
