package dag

import (
	"fmt"

	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// Result is the outcome of applying one command.
type Result struct {
	State State
	// Dirty is true when the command changed the pipeline configuration.
	// Selection changes and Replace never set it.
	Dirty bool
	// Node is the node created by AddNode.
	Node *pipeline.Node
}

// Reducer applies commands to states.
type Reducer struct {
	newID nodeid.Func
}

// NewReducer returns a reducer that assigns node ids with newID, or with
// nodeid.New when newID is nil.
func NewReducer(newID nodeid.Func) *Reducer {
	if newID == nil {
		newID = nodeid.New
	}
	return &Reducer{newID: newID}
}

// Reduce applies cmd to s. The input state is never modified; on error the
// returned result carries s unchanged.
func (r *Reducer) Reduce(s State, cmd Command) (Result, error) {
	var (
		res Result
		err error
	)
	switch c := cmd.(type) {
	case AddNode:
		res, err = r.addNode(s, c)
	case RemoveNode:
		res = removeNode(s, c)
	case SelectNode:
		res, err = selectNode(s, c)
	case ResetSelection:
		res = Result{State: State{Graph: s.Graph}}
	case Connect:
		res, err = connect(s, c)
	case Disconnect:
		res, err = disconnect(s, c)
	case SetProperty:
		res, err = setProperty(s, c)
	case Replace:
		res, err = replace(c)
	default:
		err = fmt.Errorf("%w: unsupported command %T", ErrInvalidCommand, cmd)
	}
	if err != nil {
		return Result{State: s}, err
	}
	return res, nil
}

func (r *Reducer) addNode(s State, c AddNode) (Result, error) {
	var n pipeline.Node
	switch {
	case c.Plugin != nil && c.Template != nil:
		return Result{}, fmt.Errorf("%w: add_node takes a plugin or a template, not both", ErrInvalidCommand)
	case c.Plugin != nil:
		n = nodeFromDescriptor(s.Graph.Nodes, c.Plugin.Clone())
	case c.Template != nil:
		n = nodeFromTemplate(s.Graph.Nodes, c.Template.Clone())
	default:
		return Result{}, fmt.Errorf("%w: add_node needs a plugin or a template", ErrInvalidCommand)
	}
	if !n.Type.Valid() {
		return Result{}, fmt.Errorf("%w: plugin %q has unknown type %q", ErrInvalidCommand, n.Plugin.Name, n.Type)
	}
	n.ID = r.newID(n.Label())
	for s.Graph.NodeByID(n.ID) >= 0 {
		n.ID = r.newID(n.Label())
	}

	g := s.Graph.Clone()
	g.Nodes = append(g.Nodes, n)
	added := n.Clone()
	return Result{State: State{Graph: g, Selected: s.Selected}, Dirty: true, Node: &added}, nil
}

func nodeFromDescriptor(existing []pipeline.Node, d pipeline.PluginDescriptor) pipeline.Node {
	icon := d.Icon
	if icon == "" {
		icon = pipeline.IconFor(d.Name)
	}
	return pipeline.Node{
		Plugin: pipeline.PluginRef{
			Label:      nodeid.Label(existing, d.Name),
			Name:       d.Name,
			Artifact:   d.Artifact,
			Properties: d.Properties,
		},
		Type:         d.Type,
		Icon:         icon,
		Description:  d.Description,
		InputSchema:  d.InputSchema,
		OutputSchema: d.OutputSchema,
		Warning:      true,
	}
}

func nodeFromTemplate(existing []pipeline.Node, t pipeline.PluginTemplate) pipeline.Node {
	return pipeline.Node{
		Plugin: pipeline.PluginRef{
			Label:      nodeid.Label(existing, t.TemplateName),
			Name:       t.PluginName,
			Artifact:   t.Artifact,
			Properties: t.Properties,
		},
		Type:           t.PluginType,
		Icon:           pipeline.IconFor(t.PluginName),
		InputSchema:    t.InputSchema,
		OutputSchema:   t.OutputSchema,
		PluginTemplate: t.TemplateName,
		Lock:           t.Lock,
	}
}

func removeNode(s State, c RemoveNode) Result {
	i := s.Graph.NodeByID(c.ID)
	if i < 0 {
		return Result{State: s}
	}
	label := s.Graph.Nodes[i].Label()

	g := pipeline.NewGraph(s.Graph.Artifact)
	for j, n := range s.Graph.Nodes {
		if j != i {
			g.Nodes = append(g.Nodes, n.Clone())
		}
	}
	for _, conn := range s.Graph.Connections {
		if conn.From != label && conn.To != label {
			g.Connections = append(g.Connections, conn)
		}
	}

	selected := s.Selected
	if selected == c.ID {
		selected = ""
	}
	return Result{State: State{Graph: g, Selected: selected}, Dirty: true}
}

func selectNode(s State, c SelectNode) (Result, error) {
	if s.Graph.NodeByID(c.ID) < 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownNode, c.ID)
	}
	return Result{State: State{Graph: s.Graph, Selected: c.ID}}, nil
}

func checkEndpoints(g pipeline.Graph, from, to string) error {
	if from == to {
		return &InvalidConnectionError{From: from, To: to, Reason: "a node cannot connect to itself"}
	}
	if g.NodeByLabel(from) < 0 {
		return &InvalidConnectionError{From: from, To: to, Reason: fmt.Sprintf("no node labeled %q", from)}
	}
	if g.NodeByLabel(to) < 0 {
		return &InvalidConnectionError{From: from, To: to, Reason: fmt.Sprintf("no node labeled %q", to)}
	}
	return nil
}

func connect(s State, c Connect) (Result, error) {
	if err := checkEndpoints(s.Graph, c.From, c.To); err != nil {
		return Result{}, err
	}
	if s.Graph.HasConnection(c.From, c.To) {
		return Result{State: s}, nil
	}
	if s.Graph.Reachable(c.To, c.From) {
		return Result{}, &InvalidConnectionError{From: c.From, To: c.To, Reason: "connection would create a cycle"}
	}

	g := s.Graph.Clone()
	g.Connections = append(g.Connections, pipeline.Connection{From: c.From, To: c.To})
	return Result{State: State{Graph: g, Selected: s.Selected}, Dirty: true}, nil
}

func disconnect(s State, c Disconnect) (Result, error) {
	if err := checkEndpoints(s.Graph, c.From, c.To); err != nil {
		return Result{}, err
	}
	if !s.Graph.HasConnection(c.From, c.To) {
		return Result{State: s}, nil
	}

	g := s.Graph.Clone()
	g.Connections = g.Connections[:0]
	for _, conn := range s.Graph.Connections {
		if conn.From != c.From || conn.To != c.To {
			g.Connections = append(g.Connections, conn)
		}
	}
	return Result{State: State{Graph: g, Selected: s.Selected}, Dirty: true}, nil
}

func setProperty(s State, c SetProperty) (Result, error) {
	i := s.Graph.NodeByID(c.ID)
	if i < 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownNode, c.ID)
	}
	if s.Graph.Nodes[i].Lock {
		return Result{}, fmt.Errorf("%w: %q", ErrNodeLocked, s.Graph.Nodes[i].Label())
	}
	if c.Property == "" {
		return Result{}, fmt.Errorf("%w: set_property needs a property name", ErrInvalidCommand)
	}

	g := s.Graph.Clone()
	g.Nodes[i].Plugin.Properties[c.Property] = c.Value
	g.Nodes[i].Warning = false
	return Result{State: State{Graph: g, Selected: s.Selected}, Dirty: true}, nil
}

func replace(c Replace) (Result, error) {
	if err := c.Graph.Validate(); err != nil {
		return Result{}, err
	}
	return Result{State: State{Graph: c.Graph.Clone()}}, nil
}
