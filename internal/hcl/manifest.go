package hcl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/pipelinestudio/internal/bggohcl"
	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/fsutil"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// ManifestPattern selects the manifest files under a manifests path.
const ManifestPattern = "**/*.hcl"

// manifestPlugin is a plugin as declared, before it is bound to a pipeline
// artifact.
type manifestPlugin struct {
	descriptor pipeline.PluginDescriptor
	// pipelines restricts the plugin to these pipeline artifact names; empty
	// means every pipeline.
	pipelines []string
	// hasArtifact is false when the manifest left the plugin artifact out.
	hasArtifact bool
}

// ManifestBackend serves a catalog parsed from HCL manifests. It is
// immutable once opened and safe for concurrent use.
type ManifestBackend struct {
	artifacts []pipeline.Artifact
	plugins   []manifestPlugin
}

// ErrNoManifests is returned by Open when no path holds a manifest file.
var ErrNoManifests = errors.New("no manifest files found")

// Open parses every manifest under the given paths.
func Open(ctx context.Context, paths ...string) (*ManifestBackend, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Manifest loader started.", "path_count", len(paths))

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFiles(p, ManifestPattern)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if !slices.Contains(files, f) {
				files = append(files, f)
			}
		}
	}
	logger.Debug("Discovered manifest files.", "count", len(files))
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoManifests, strings.Join(paths, ", "))
	}

	b := &ManifestBackend{}
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := b.decode(hclFile.Body); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}

	logger.Debug("Manifest loading complete.", "artifacts", len(b.artifacts), "plugins", len(b.plugins))
	return b, nil
}

// Parse decodes a single manifest held in memory.
func Parse(src []byte, filename string) (*ManifestBackend, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	b := &ManifestBackend{}
	if err := b.decode(hclFile.Body); err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
	}
	return b, nil
}

func (b *ManifestBackend) decode(body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return diags
	}

	for _, a := range root.Artifacts {
		artifact := pipeline.Artifact{Name: a.Name, Version: a.Version, Scope: a.Scope}
		if _, dup := pipeline.FindArtifact(b.artifacts, artifact); dup {
			return fmt.Errorf("duplicate artifact %s", artifact)
		}
		b.artifacts = append(b.artifacts, artifact)
	}
	for _, p := range root.Plugins {
		mp, err := translatePlugin(p)
		if err != nil {
			return err
		}
		b.plugins = append(b.plugins, mp)
	}
	return nil
}

// translatePlugin converts the HCL-specific plugin schema into a descriptor.
func translatePlugin(p *pluginBlock) (manifestPlugin, error) {
	pluginType, err := pipeline.ParsePluginType(p.Type)
	if err != nil {
		return manifestPlugin{}, fmt.Errorf("plugin %q: %w", p.Name, err)
	}

	mp := manifestPlugin{
		descriptor: pipeline.PluginDescriptor{
			Name:         p.Name,
			Label:        p.Label,
			Type:         pluginType,
			Icon:         p.Icon,
			Description:  p.Description,
			InputSchema:  p.InputSchema,
			OutputSchema: p.OutputSchema,
			Properties:   make(map[string]any),
		},
		pipelines: p.Pipelines,
	}
	if p.Artifact != nil {
		mp.hasArtifact = true
		mp.descriptor.Artifact = pipeline.Artifact{Name: p.Artifact.Name, Version: p.Artifact.Version, Scope: p.Artifact.Scope}
	}

	for _, prop := range p.Properties {
		ty, diags := bggohcl.HCLTypeToCtyType(prop.Type)
		if diags.HasErrors() {
			return manifestPlugin{}, fmt.Errorf("plugin %q property %q: %w", p.Name, prop.Name, diags)
		}
		val, diags := prop.Default.Value(nil)
		if diags.HasErrors() {
			return manifestPlugin{}, fmt.Errorf("plugin %q property %q: %w", p.Name, prop.Name, diags)
		}
		// Properties without a default are left for the user to fill in.
		if val.IsNull() {
			continue
		}
		val, diags = bggohcl.ConformValue(val, ty, prop.Default.Range())
		if diags.HasErrors() {
			return manifestPlugin{}, fmt.Errorf("plugin %q property %q: %w", p.Name, prop.Name, diags)
		}
		goVal, err := bggohcl.ValueToGo(val)
		if err != nil {
			return manifestPlugin{}, fmt.Errorf("plugin %q property %q: %w", p.Name, prop.Name, err)
		}
		mp.descriptor.Properties[prop.Name] = goVal
	}
	return mp, nil
}

// Artifacts lists the declared pipeline artifacts in declaration order.
func (b *ManifestBackend) Artifacts(ctx context.Context) ([]pipeline.Artifact, error) {
	return slices.Clone(b.artifacts), nil
}

// Plugins lists the plugins of one type available to artifact. Plugins that
// declare no artifact of their own are reported under the pipeline artifact.
func (b *ManifestBackend) Plugins(ctx context.Context, artifact pipeline.Artifact, pluginType pipeline.PluginType) ([]pipeline.PluginDescriptor, error) {
	if _, ok := pipeline.FindArtifact(b.artifacts, artifact); !ok {
		return nil, fmt.Errorf("%w: artifact %s", catalog.ErrNotFound, artifact)
	}

	var out []pipeline.PluginDescriptor
	for _, mp := range b.plugins {
		if mp.descriptor.Type != pluginType {
			continue
		}
		if len(mp.pipelines) > 0 && !slices.Contains(mp.pipelines, artifact.Name) {
			continue
		}
		d := mp.descriptor.Clone()
		if !mp.hasArtifact {
			d.Artifact = artifact
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s plugins for artifact %s", catalog.ErrNotFound, pluginType, artifact)
	}
	return out, nil
}

var _ catalog.Backend = (*ManifestBackend)(nil)
