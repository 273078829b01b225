package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// StaticBackend is an in-memory catalog backend.
type StaticBackend struct {
	mu sync.Mutex

	ArtifactList []pipeline.Artifact
	// PluginsFor maps a pipeline artifact name to the plugins it offers.
	PluginsFor map[string][]pipeline.PluginDescriptor
	// Errs fails fetches of one plugin type.
	Errs map[pipeline.PluginType]error
	// ArtifactsErr fails artifact listing.
	ArtifactsErr error
	// Gate, if set, runs before every plugin fetch returns. It may block.
	Gate func(ctx context.Context, artifact pipeline.Artifact, t pipeline.PluginType) error

	calls int
}

// NewStaticBackend serves CatalogFixture for Batch and a single source for
// Realtime.
func NewStaticBackend() *StaticBackend {
	return &StaticBackend{
		ArtifactList: []pipeline.Artifact{Batch, Realtime},
		PluginsFor: map[string][]pipeline.PluginDescriptor{
			Batch.Name:    CatalogFixture(),
			Realtime.Name: {Descriptor("JMS", pipeline.Source), Descriptor("Stream", pipeline.Sink)},
		},
	}
}

// Artifacts implements the catalog backend contract.
func (b *StaticBackend) Artifacts(ctx context.Context) ([]pipeline.Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ArtifactsErr != nil {
		return nil, b.ArtifactsErr
	}
	return append([]pipeline.Artifact(nil), b.ArtifactList...), nil
}

// Plugins implements the catalog backend contract.
func (b *StaticBackend) Plugins(ctx context.Context, artifact pipeline.Artifact, t pipeline.PluginType) ([]pipeline.PluginDescriptor, error) {
	b.mu.Lock()
	b.calls++
	gate := b.Gate
	err := b.Errs[t]
	var out []pipeline.PluginDescriptor
	for _, d := range b.PluginsFor[artifact.Name] {
		if d.Type == t {
			out = append(out, d.Clone())
		}
	}
	b.mu.Unlock()

	if gate != nil {
		if gateErr := gate(ctx, artifact, t); gateErr != nil {
			return nil, gateErr
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Calls returns the number of plugin fetches served.
func (b *StaticBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
