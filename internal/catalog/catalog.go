package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// Backend is where plugin descriptors come from.
type Backend interface {
	// Artifacts lists the pipeline artifacts the backend knows.
	Artifacts(ctx context.Context) ([]pipeline.Artifact, error)
	// Plugins lists every version of every plugin of one type available to
	// pipelines built on artifact.
	Plugins(ctx context.Context, artifact pipeline.Artifact, pluginType pipeline.PluginType) ([]pipeline.PluginDescriptor, error)
}

// Options tunes a Catalog.
type Options struct {
	// OnFetchError is called for every plugin fetch that failed during Load.
	OnFetchError func(ctx context.Context, err *FetchError)
}

type pluginKey struct {
	pluginType pipeline.PluginType
	name       string
}

// entries is everything fetched for one artifact.
type entries struct {
	// names keeps first-seen order per plugin type for stable palettes.
	names    map[pipeline.PluginType][]string
	versions map[pluginKey][]pipeline.PluginDescriptor
}

func newEntries() entries {
	return entries{
		names:    make(map[pipeline.PluginType][]string),
		versions: make(map[pluginKey][]pipeline.PluginDescriptor),
	}
}

func (e entries) add(d pipeline.PluginDescriptor) {
	k := pluginKey{pluginType: d.Type, name: d.Name}
	if _, ok := e.versions[k]; !ok {
		e.names[d.Type] = append(e.names[d.Type], d.Name)
	}
	e.versions[k] = append(e.versions[k], d)
}

// Catalog is safe for concurrent use.
type Catalog struct {
	backend      Backend
	onFetchError func(ctx context.Context, err *FetchError)

	mu         sync.RWMutex
	generation uint64
	cancelLoad context.CancelFunc
	artifact   pipeline.Artifact
	artifacts  []pipeline.Artifact
	entries    entries
	pins       map[pluginKey]string
}

// New returns an empty catalog backed by backend.
func New(backend Backend, opts Options) *Catalog {
	return &Catalog{
		backend:      backend,
		onFetchError: opts.OnFetchError,
		entries:      newEntries(),
		pins:         make(map[pluginKey]string),
	}
}

// Fetch asks the backend for the plugins of one type. Failures are returned
// as *FetchError wrapping ErrNetwork or ErrNotFound.
func (c *Catalog) Fetch(ctx context.Context, pluginType pipeline.PluginType, artifact pipeline.Artifact) ([]pipeline.PluginDescriptor, error) {
	list, err := c.backend.Plugins(ctx, artifact, pluginType)
	if err != nil {
		return nil, &FetchError{PluginType: pluginType, Artifact: artifact, Err: classify(err)}
	}
	out := make([]pipeline.PluginDescriptor, 0, len(list))
	for _, d := range list {
		if d.Type == "" {
			d.Type = pluginType
		}
		out = append(out, d.Clone())
	}
	return out, nil
}

// LoadArtifacts refreshes the list of known pipeline artifacts.
func (c *Catalog) LoadArtifacts(ctx context.Context) ([]pipeline.Artifact, error) {
	list, err := c.backend.Artifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", classify(err))
	}
	c.mu.Lock()
	c.artifacts = slices.Clone(list)
	c.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Artifacts loaded.", "count", len(list))
	return slices.Clone(list), nil
}

// Artifacts returns the artifacts from the last LoadArtifacts.
func (c *Catalog) Artifacts() []pipeline.Artifact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.artifacts)
}

// Artifact returns the artifact of the most recent Load.
func (c *Catalog) Artifact() pipeline.Artifact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.artifact
}

// Load replaces the catalog contents with the plugins of artifact. Prior
// entries and version pins are discarded as soon as Load starts.
//
// Starting a new Load cancels the one in flight; the overtaken call returns
// ErrSuperseded and its results are dropped. Individual fetch failures are
// not returned: they are logged, passed to Options.OnFetchError, and leave
// that plugin type empty.
func (c *Catalog) Load(ctx context.Context, artifact pipeline.Artifact) error {
	logger := ctxlog.FromContext(ctx)

	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.generation++
	gen := c.generation
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.artifact = artifact
	c.entries = newEntries()
	c.pins = make(map[pluginKey]string)
	c.mu.Unlock()
	defer cancel()

	logger.Debug("Catalog load started.", "artifact", artifact.String(), "generation", gen)

	results := make([][]pipeline.PluginDescriptor, len(pipeline.PluginTypes))
	var g errgroup.Group
	for i, pluginType := range pipeline.PluginTypes {
		g.Go(func() error {
			list, err := c.Fetch(loadCtx, pluginType, artifact)
			if err != nil {
				if loadCtx.Err() != nil {
					return nil
				}
				var fetchErr *FetchError
				if errors.As(err, &fetchErr) {
					logger.Warn("Plugin fetch failed, continuing without plugins.",
						"type", pluginType, "artifact", artifact.String(), "error", err)
					if c.onFetchError != nil {
						c.onFetchError(ctx, fetchErr)
					}
				}
				return nil
			}
			results[i] = list
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		logger.Debug("Catalog load superseded.", "artifact", artifact.String(), "generation", gen)
		return ErrSuperseded
	}
	c.cancelLoad = nil
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, list := range results {
		for _, d := range list {
			c.entries.add(d)
		}
	}
	logger.Info("Catalog loaded.", "artifact", artifact.String(), "plugins", len(c.entries.versions))
	return nil
}

// Plugins lists one descriptor per plugin name of the given type, each at
// its selected version.
func (c *Catalog) Plugins(pluginType pipeline.PluginType) []pipeline.PluginDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := c.entries.names[pluginType]
	out := make([]pipeline.PluginDescriptor, 0, len(names))
	for _, name := range names {
		if d, ok := c.descriptorLocked(name, pluginType); ok {
			out = append(out, d)
		}
	}
	return out
}

// Descriptor returns the plugin at its selected version.
func (c *Catalog) Descriptor(name string, pluginType pipeline.PluginType) (pipeline.PluginDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.descriptorLocked(name, pluginType)
}

func (c *Catalog) descriptorLocked(name string, pluginType pipeline.PluginType) (pipeline.PluginDescriptor, bool) {
	version, ok := c.versionLocked(name, pluginType)
	if !ok {
		return pipeline.PluginDescriptor{}, false
	}
	for _, d := range c.entries.versions[pluginKey{pluginType: pluginType, name: name}] {
		if d.Artifact.Version == version {
			return d.Clone(), true
		}
	}
	return pipeline.PluginDescriptor{}, false
}

// Versions lists the fetched versions of a plugin in ascending order.
func (c *Catalog) Versions(name string, pluginType pipeline.PluginType) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versionsLocked(name, pluginType)
}

func (c *Catalog) versionsLocked(name string, pluginType pipeline.PluginType) []string {
	list := c.entries.versions[pluginKey{pluginType: pluginType, name: name}]
	out := make([]string, 0, len(list))
	for _, d := range list {
		if !slices.Contains(out, d.Artifact.Version) {
			out = append(out, d.Artifact.Version)
		}
	}
	slices.SortFunc(out, compareVersions)
	return out
}

// GetVersion returns the pinned version of a plugin, or the latest fetched
// version if none is pinned. ok is false for unknown plugins.
func (c *Catalog) GetVersion(name string, pluginType pipeline.PluginType) (version string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versionLocked(name, pluginType)
}

func (c *Catalog) versionLocked(name string, pluginType pipeline.PluginType) (string, bool) {
	if v, ok := c.pins[pluginKey{pluginType: pluginType, name: name}]; ok {
		return v, true
	}
	versions := c.versionsLocked(name, pluginType)
	if len(versions) == 0 {
		return "", false
	}
	return latest(versions), true
}

// SetVersion pins the version of d for subsequent additions. The version
// must have been fetched.
func (c *Catalog) SetVersion(d pipeline.PluginDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(c.versionsLocked(d.Name, d.Type), d.Artifact.Version) {
		return fmt.Errorf("%w: %s plugin %q at version %q", ErrNotFound, d.Type, d.Name, d.Artifact.Version)
	}
	c.pins[pluginKey{pluginType: d.Type, name: d.Name}] = d.Artifact.Version
	return nil
}
