package testutil

import "github.com/specialistvlad/pipelinestudio/internal/pipeline"

var (
	// Batch is the batch pipeline artifact used across tests.
	Batch = pipeline.Artifact{Name: "cdap-etl-batch", Version: "3.2.0", Scope: "SYSTEM"}
	// Realtime is the realtime pipeline artifact used across tests.
	Realtime = pipeline.Artifact{Name: pipeline.RealtimeArtifact, Version: "3.2.0", Scope: "SYSTEM"}
	// CorePlugins is the plugin artifact the fixture descriptors ship in.
	CorePlugins = pipeline.Artifact{Name: "core-plugins", Version: "1.0.0", Scope: "SYSTEM"}
)

// Descriptor returns a descriptor shipped in CorePlugins.
func Descriptor(name string, t pipeline.PluginType) pipeline.PluginDescriptor {
	return pipeline.PluginDescriptor{
		Name:       name,
		Type:       t,
		Artifact:   CorePlugins,
		Properties: map[string]any{"referenceName": name},
	}
}

// DescriptorAt returns a descriptor of the given plugin artifact version.
func DescriptorAt(name string, t pipeline.PluginType, version string) pipeline.PluginDescriptor {
	d := Descriptor(name, t)
	d.Artifact.Version = version
	return d
}

// CatalogFixture is the plugin set served for Batch by NewStaticBackend.
func CatalogFixture() []pipeline.PluginDescriptor {
	return []pipeline.PluginDescriptor{
		Descriptor("Stream", pipeline.Source),
		Descriptor("Kafka", pipeline.Source),
		Descriptor("Projection", pipeline.Transform),
		Descriptor("Script", pipeline.Transform),
		Descriptor("Table", pipeline.Sink),
		DescriptorAt("Table", pipeline.Sink, "1.1.0"),
	}
}
