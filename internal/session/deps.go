package session

import (
	"context"

	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/templatestore"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

// Catalog is the part of catalog.Catalog the editor uses.
type Catalog interface {
	LoadArtifacts(ctx context.Context) ([]pipeline.Artifact, error)
	Artifacts() []pipeline.Artifact
	Load(ctx context.Context, artifact pipeline.Artifact) error
	Plugins(pluginType pipeline.PluginType) []pipeline.PluginDescriptor
	Descriptor(name string, pluginType pipeline.PluginType) (pipeline.PluginDescriptor, bool)
	SetVersion(d pipeline.PluginDescriptor) error
}

// Codec imports and exports pipeline documents.
type Codec interface {
	Import(raw []byte, known []pipeline.Artifact) (pipeline.Graph, error)
	Export(g pipeline.Graph) (*codec.Document, error)
}

// Templates is the part of templatestore.Store the editor uses.
type Templates interface {
	GetPluginTemplate(ctx context.Context, namespace, templateType string, pluginType pipeline.PluginType, name string) (pipeline.PluginTemplate, error)
	ListPluginTemplates(ctx context.Context, namespace, templateType string, pluginType pipeline.PluginType) ([]pipeline.PluginTemplate, error)
	PutPluginTemplate(ctx context.Context, t pipeline.PluginTemplate) error
	DeletePluginTemplate(ctx context.Context, namespace, templateType string, pluginType pipeline.PluginType, name string) error
	GetPipelineTemplate(ctx context.Context, namespace, templateType, name string) (templatestore.PipelineTemplate, error)
}

// StatusGuard gates destructive operations on unsaved changes.
type StatusGuard interface {
	Check(ctx context.Context, op Operation, confirm ConfirmFunc) (Decision, error)
	IsDirty() bool
	MarkClean(ctx context.Context)
}

// Destination is where the host UI should go after the graph was replaced.
type Destination struct {
	ArtifactType string
	Graph        pipeline.Graph
}

// Navigator moves the host UI to a new destination. The editor never routes
// by itself.
type Navigator interface {
	Navigate(ctx context.Context, dest Destination) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, dest Destination) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, dest Destination) error {
	return f(ctx, dest)
}

// Observer is told about outcomes worth counting.
type Observer interface {
	ImportFailed(ctx context.Context, err error)
	Confirmed(ctx context.Context, op Operation, d Decision)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) ImportFailed(context.Context, error)            {}
func (NopObserver) Confirmed(context.Context, Operation, Decision) {}

// Deps are the collaborators of an Editor. Catalog, Codec, Store and Guard
// are required. Templates, Navigator, Confirm and Observer may be nil.
type Deps struct {
	Catalog   Catalog
	Codec     Codec
	Store     topologystore.Store
	Guard     StatusGuard
	Templates Templates
	Navigator Navigator
	Confirm   ConfirmFunc
	Observer  Observer
	// Namespace scopes template lookups.
	Namespace string
}
