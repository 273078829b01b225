package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

var (
	// ErrNoArtifacts is returned by Start when the catalog offers no
	// pipeline artifact.
	ErrNoArtifacts = errors.New("no pipeline artifacts available")
	// ErrNotStarted is returned by operations that need a selected artifact.
	ErrNotStarted = errors.New("editor not started")
	// ErrNoTemplates is returned by template operations when the editor has
	// no template store.
	ErrNoTemplates = errors.New("template store not configured")
	// ErrUnknownPlugin is returned when the catalog has no descriptor for a
	// requested plugin. It wraps catalog.ErrNotFound.
	ErrUnknownPlugin = fmt.Errorf("unknown plugin: %w", catalog.ErrNotFound)
)

// Editor is one edit session. Its methods are safe for concurrent use, but
// graph mutations are applied in the order the store receives them.
type Editor struct {
	catalog   Catalog
	codec     Codec
	store     topologystore.Store
	guard     StatusGuard
	templates Templates
	navigator Navigator
	confirm   ConfirmFunc
	observer  Observer
	namespace string

	mu       sync.RWMutex
	artifact pipeline.Artifact
	// requests counts artifact requests; pending is set while the latest
	// one has not been committed.
	requests uint64
	pending  bool

	// commitMu serializes the check and the graph replacement of commits.
	commitMu sync.Mutex
}

// NewEditor returns an editor over deps. Call Start before anything else.
func NewEditor(deps Deps) (*Editor, error) {
	if deps.Catalog == nil || deps.Codec == nil || deps.Store == nil || deps.Guard == nil {
		return nil, errors.New("session: catalog, codec, store and guard are required")
	}
	observer := deps.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Editor{
		catalog:   deps.Catalog,
		codec:     deps.Codec,
		store:     deps.Store,
		guard:     deps.Guard,
		templates: deps.Templates,
		navigator: deps.Navigator,
		confirm:   deps.Confirm,
		observer:  observer,
		namespace: deps.Namespace,
	}, nil
}

// Start loads the artifact list, selects preferred if the catalog knows it
// or the first artifact otherwise, loads its plugins and starts an empty
// graph. A zero preferred selects the first artifact.
func (e *Editor) Start(ctx context.Context, preferred pipeline.Artifact) error {
	artifacts, err := e.catalog.LoadArtifacts(ctx)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return ErrNoArtifacts
	}
	selected := artifacts[0]
	if !preferred.IsZero() {
		if a, ok := pipeline.MatchArtifact(artifacts, preferred); ok {
			selected = a
		} else {
			ctxlog.FromContext(ctx).Warn("Preferred artifact unavailable, using the first one.",
				"preferred", preferred.String(), "selected", selected.String())
		}
	}
	req := e.request()
	if err := e.catalog.Load(ctx, selected); err != nil {
		e.abandon(req)
		return err
	}
	committed, err := e.commit(req, selected, func() error {
		_, err := e.store.Dispatch(ctx, dag.Replace{Graph: pipeline.NewGraph(selected)})
		return err
	})
	if err != nil || !committed {
		return err
	}
	ctxlog.FromContext(ctx).Info("Editor started.", "artifact", selected.String())
	return nil
}

// Artifact returns the selected pipeline artifact.
func (e *Editor) Artifact() pipeline.Artifact {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.artifact
}

// request records a new artifact request and returns its number. Any
// earlier request still loading is superseded by it.
func (e *Editor) request() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests++
	e.pending = true
	return e.requests
}

// switching reports whether an artifact request has not been committed yet.
func (e *Editor) switching() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pending
}

func (e *Editor) latest(req uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return req == e.requests
}

// abandon clears the pending flag when req is the latest request.
func (e *Editor) abandon(req uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if req == e.requests {
		e.pending = false
	}
}

// commit runs apply and selects a, unless a newer request superseded req.
// It reports false when req was superseded; apply is then not run.
func (e *Editor) commit(req uint64, a pipeline.Artifact, apply func() error) (bool, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	if !e.latest(req) {
		return false, nil
	}
	if apply != nil {
		if err := apply(); err != nil {
			e.abandon(req)
			return false, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.artifact = a
	if req == e.requests {
		e.pending = false
	}
	return true, nil
}

func (e *Editor) started() (pipeline.Artifact, error) {
	a := e.Artifact()
	if a.IsZero() {
		return a, ErrNotStarted
	}
	return a, nil
}

// State returns the current graph state.
func (e *Editor) State(ctx context.Context) dag.State {
	return e.store.State(ctx)
}

// IsDirty reports whether the session has unsaved changes.
func (e *Editor) IsDirty() bool {
	return e.guard.IsDirty()
}

// PaletteGroup lists what can be added for one plugin type.
type PaletteGroup struct {
	Type      pipeline.PluginType         `json:"type"`
	Plugins   []pipeline.PluginDescriptor `json:"plugins"`
	Templates []pipeline.PluginTemplate   `json:"templates"`
}

// Palette lists the plugins and plugin templates of the selected artifact,
// one group per plugin type in pipeline order.
func (e *Editor) Palette(ctx context.Context) ([]PaletteGroup, error) {
	a, err := e.started()
	if err != nil {
		return nil, err
	}
	groups := make([]PaletteGroup, 0, len(pipeline.PluginTypes))
	for _, t := range pipeline.PluginTypes {
		g := PaletteGroup{Type: t, Plugins: e.catalog.Plugins(t)}
		if e.templates != nil {
			g.Templates, err = e.templates.ListPluginTemplates(ctx, e.namespace, a.Name, t)
			if err != nil {
				return nil, fmt.Errorf("listing %s templates: %w", t, err)
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// AddPlugin adds a node for the selected version of a catalog plugin.
func (e *Editor) AddPlugin(ctx context.Context, pluginType pipeline.PluginType, name string) (pipeline.Node, error) {
	if _, err := e.started(); err != nil {
		return pipeline.Node{}, err
	}
	d, ok := e.catalog.Descriptor(name, pluginType)
	if !ok {
		return pipeline.Node{}, fmt.Errorf("%w: %s %q", ErrUnknownPlugin, pluginType, name)
	}
	if _, err := e.store.Dispatch(ctx, dag.ResetSelection{}); err != nil {
		return pipeline.Node{}, err
	}
	if err := e.catalog.SetVersion(d); err != nil {
		return pipeline.Node{}, err
	}
	return e.addNode(ctx, dag.AddNode{Plugin: &d})
}

// SetPluginVersion selects the version of a catalog plugin used by later
// AddPlugin calls.
func (e *Editor) SetPluginVersion(pluginType pipeline.PluginType, name, version string) error {
	d, ok := e.catalog.Descriptor(name, pluginType)
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrUnknownPlugin, pluginType, name)
	}
	d.Artifact.Version = version
	return e.catalog.SetVersion(d)
}

// AddPluginTemplate adds a node from a saved plugin template of the selected
// artifact.
func (e *Editor) AddPluginTemplate(ctx context.Context, pluginType pipeline.PluginType, templateName string) (pipeline.Node, error) {
	a, err := e.started()
	if err != nil {
		return pipeline.Node{}, err
	}
	if e.templates == nil {
		return pipeline.Node{}, ErrNoTemplates
	}
	tmpl, err := e.templates.GetPluginTemplate(ctx, e.namespace, a.Name, pluginType, templateName)
	if err != nil {
		return pipeline.Node{}, err
	}
	if _, err := e.store.Dispatch(ctx, dag.ResetSelection{}); err != nil {
		return pipeline.Node{}, err
	}
	return e.addNode(ctx, dag.AddNode{Template: &tmpl})
}

func (e *Editor) addNode(ctx context.Context, cmd dag.AddNode) (pipeline.Node, error) {
	res, err := e.store.Dispatch(ctx, cmd)
	if err != nil {
		return pipeline.Node{}, err
	}
	if res.Node == nil {
		return pipeline.Node{}, fmt.Errorf("%w: add_node produced no node", dag.ErrInvalidCommand)
	}
	return *res.Node, nil
}

// SaveAsPluginTemplate stores the plugin configuration of a node as a
// plugin template of the selected artifact.
func (e *Editor) SaveAsPluginTemplate(ctx context.Context, nodeID, templateName string, lock bool) (pipeline.PluginTemplate, error) {
	a, err := e.started()
	if err != nil {
		return pipeline.PluginTemplate{}, err
	}
	if e.templates == nil {
		return pipeline.PluginTemplate{}, ErrNoTemplates
	}
	st := e.store.State(ctx)
	i := st.Graph.NodeByID(nodeID)
	if i < 0 {
		return pipeline.PluginTemplate{}, fmt.Errorf("%w: %q", dag.ErrUnknownNode, nodeID)
	}
	n := st.Graph.Nodes[i]
	tmpl := pipeline.PluginTemplate{
		Namespace:    e.namespace,
		TemplateType: a.Name,
		PluginType:   n.Type,
		TemplateName: templateName,
		PluginName:   n.Plugin.Name,
		Artifact:     n.Plugin.Artifact,
		Properties:   n.Clone().Plugin.Properties,
		InputSchema:  n.InputSchema,
		OutputSchema: n.OutputSchema,
		Lock:         lock,
	}
	if err := e.templates.PutPluginTemplate(ctx, tmpl); err != nil {
		return pipeline.PluginTemplate{}, err
	}
	return tmpl, nil
}

// DeletePluginTemplate removes a plugin template of the selected artifact.
func (e *Editor) DeletePluginTemplate(ctx context.Context, pluginType pipeline.PluginType, templateName string) error {
	a, err := e.started()
	if err != nil {
		return err
	}
	if e.templates == nil {
		return ErrNoTemplates
	}
	return e.templates.DeletePluginTemplate(ctx, e.namespace, a.Name, pluginType, templateName)
}

// RemoveNode removes a node and its connections.
func (e *Editor) RemoveNode(ctx context.Context, id string) error {
	_, err := e.store.Dispatch(ctx, dag.RemoveNode{ID: id})
	return err
}

// SelectNode selects a node.
func (e *Editor) SelectNode(ctx context.Context, id string) error {
	_, err := e.store.Dispatch(ctx, dag.SelectNode{ID: id})
	return err
}

// ResetSelection clears the selection.
func (e *Editor) ResetSelection(ctx context.Context) error {
	_, err := e.store.Dispatch(ctx, dag.ResetSelection{})
	return err
}

// Connect adds a connection between two node labels.
func (e *Editor) Connect(ctx context.Context, from, to string) error {
	_, err := e.store.Dispatch(ctx, dag.Connect{From: from, To: to})
	return err
}

// Disconnect removes a connection between two node labels.
func (e *Editor) Disconnect(ctx context.Context, from, to string) error {
	_, err := e.store.Dispatch(ctx, dag.Disconnect{From: from, To: to})
	return err
}

// SetProperty sets one plugin property of a node. value is stored as given;
// after an export and import it comes back as its JSON equivalent.
func (e *Editor) SetProperty(ctx context.Context, id, name string, value any) error {
	_, err := e.store.Dispatch(ctx, dag.SetProperty{ID: id, Property: name, Value: value})
	return err
}

// check consults the guard and reports the answer of any prompt it showed.
func (e *Editor) check(ctx context.Context, op Operation) (bool, error) {
	var confirm ConfirmFunc
	if e.confirm != nil {
		confirm = func(ctx context.Context, op Operation) (Decision, error) {
			d, err := e.confirm(ctx, op)
			if err == nil {
				e.observer.Confirmed(ctx, op, d)
			}
			return d, err
		}
	}
	d, err := e.guard.Check(ctx, op, confirm)
	if err != nil {
		return false, err
	}
	if d != Proceed {
		ctxlog.FromContext(ctx).Info("Operation cancelled, unsaved changes kept.", "operation", string(op))
		return false, nil
	}
	return true, nil
}

// SwitchArtifact selects another pipeline artifact. It reports false when
// the user kept unsaved changes or a later switch or import superseded
// this one; the graph and the selected artifact are then unchanged.
// Otherwise the catalog is reloaded and the graph restarts empty. Switching
// back to the selected artifact while another switch is loading cancels
// that switch and keeps the graph.
func (e *Editor) SwitchArtifact(ctx context.Context, artifact pipeline.Artifact) (bool, error) {
	current, err := e.started()
	if err != nil {
		return false, err
	}
	target, ok := pipeline.MatchArtifact(e.catalog.Artifacts(), artifact)
	if !ok {
		return false, &codec.UnknownArtifactError{Artifact: artifact}
	}
	keep := target.Equal(current)
	if keep && !e.switching() {
		return true, nil
	}
	if !keep {
		proceed, err := e.check(ctx, OpSwitchArtifact)
		if err != nil || !proceed {
			return false, err
		}
	}

	req := e.request()
	if err := e.catalog.Load(ctx, target); err != nil {
		if errors.Is(err, catalog.ErrSuperseded) {
			ctxlog.FromContext(ctx).Debug("Artifact switch superseded.", "to", target.String())
			return false, nil
		}
		e.abandon(req)
		return false, err
	}
	g := pipeline.NewGraph(target)
	apply := func() error {
		_, err := e.store.Dispatch(ctx, dag.Replace{Graph: g})
		return err
	}
	if keep {
		apply = nil
	}
	committed, err := e.commit(req, target, apply)
	if err != nil || !committed {
		return false, err
	}
	if keep {
		ctxlog.FromContext(ctx).Info("Artifact switch cancelled.", "artifact", target.String())
		return true, nil
	}
	ctxlog.FromContext(ctx).Info("Artifact switched.", "from", current.String(), "to", target.String())
	return true, e.navigate(ctx, g)
}

// OpenImport gates the import dialog. It reports false when the user kept
// unsaved changes.
func (e *Editor) OpenImport(ctx context.Context) (bool, error) {
	if _, err := e.started(); err != nil {
		return false, err
	}
	return e.check(ctx, OpOpenImport)
}

// Import replaces the graph with the pipeline in raw. On error the graph is
// untouched. An imported pipeline of another artifact switches the
// selected artifact. An import superseded by a later switch or import
// while its catalog loads returns an error wrapping catalog.ErrSuperseded.
func (e *Editor) Import(ctx context.Context, raw []byte) (pipeline.Graph, error) {
	current, err := e.started()
	if err != nil {
		return pipeline.Graph{}, err
	}
	g, err := e.codec.Import(raw, e.catalog.Artifacts())
	if err != nil {
		e.observer.ImportFailed(ctx, err)
		ctxlog.FromContext(ctx).Error("Import failed.", "kind", codec.Kind(err), "error", err)
		return pipeline.Graph{}, err
	}
	reload := !g.Artifact.Equal(current) || e.switching()
	req := e.request()
	if reload {
		if err := e.catalog.Load(ctx, g.Artifact); err != nil {
			if errors.Is(err, catalog.ErrSuperseded) {
				return pipeline.Graph{}, fmt.Errorf("import of %s abandoned: %w", g.Artifact, err)
			}
			e.abandon(req)
			return pipeline.Graph{}, err
		}
	}
	committed, err := e.commit(req, g.Artifact, func() error {
		_, err := e.store.Dispatch(ctx, dag.Replace{Graph: g})
		return err
	})
	if err != nil {
		return pipeline.Graph{}, err
	}
	if !committed {
		return pipeline.Graph{}, fmt.Errorf("import of %s abandoned: %w", g.Artifact, catalog.ErrSuperseded)
	}
	ctxlog.FromContext(ctx).Info("Pipeline imported.", "artifact", g.Artifact.String(), "nodes", len(g.Nodes))
	return g, e.navigate(ctx, g)
}

// LoadTemplate replaces the graph with a pre-configured pipeline template
// of the selected artifact. It reports false when the user kept unsaved
// changes.
func (e *Editor) LoadTemplate(ctx context.Context, name string) (bool, error) {
	a, err := e.started()
	if err != nil {
		return false, err
	}
	if e.templates == nil {
		return false, ErrNoTemplates
	}
	proceed, err := e.check(ctx, OpLoadTemplate)
	if err != nil || !proceed {
		return false, err
	}
	tmpl, err := e.templates.GetPipelineTemplate(ctx, e.namespace, a.Name, name)
	if err != nil {
		return false, err
	}
	if _, err := e.Import(ctx, tmpl.Config); err != nil {
		return false, fmt.Errorf("loading template %q: %w", name, err)
	}
	return true, nil
}

// Export returns the document of the current graph.
func (e *Editor) Export(ctx context.Context) (*codec.Document, error) {
	return e.codec.Export(e.store.State(ctx).Graph)
}

// Save exports the current graph and marks the session clean.
func (e *Editor) Save(ctx context.Context) (*codec.Document, error) {
	doc, err := e.Export(ctx)
	if err != nil {
		return nil, err
	}
	e.guard.MarkClean(ctx)
	return doc, nil
}

// Reset discards the graph and starts an empty one for the selected
// artifact.
func (e *Editor) Reset(ctx context.Context) error {
	a, err := e.started()
	if err != nil {
		return err
	}
	_, err = e.store.Dispatch(ctx, dag.Replace{Graph: pipeline.NewGraph(a)})
	return err
}

func (e *Editor) navigate(ctx context.Context, g pipeline.Graph) error {
	if e.navigator == nil {
		return nil
	}
	if err := e.navigator.Navigate(ctx, Destination{ArtifactType: g.Artifact.Name, Graph: g}); err != nil {
		return fmt.Errorf("navigating to %s: %w", g.Artifact.Name, err)
	}
	return nil
}
