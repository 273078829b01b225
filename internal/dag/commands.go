package dag

import "github.com/specialistvlad/pipelinestudio/internal/pipeline"

// Command is a single graph mutation. The set of commands is closed.
type Command interface {
	// Name identifies the command kind in logs and metrics.
	Name() string
	isCommand()
}

// AddNode places a new node built from either a catalog descriptor or a
// saved plugin template. Exactly one of the two must be set.
type AddNode struct {
	Plugin   *pipeline.PluginDescriptor
	Template *pipeline.PluginTemplate
}

// RemoveNode deletes a node and every connection touching it. Unknown ids
// are ignored.
type RemoveNode struct {
	ID string
}

// SelectNode marks one node as selected.
type SelectNode struct {
	ID string
}

// ResetSelection clears the selection.
type ResetSelection struct{}

// Connect adds an edge between two node labels.
type Connect struct {
	From string
	To   string
}

// Disconnect removes an edge between two node labels.
type Disconnect struct {
	From string
	To   string
}

// SetProperty sets one plugin property on a node.
type SetProperty struct {
	ID       string
	Property string
	Value    any
}

// Replace swaps the whole graph, used by import, template load, artifact
// switch and reset.
type Replace struct {
	Graph pipeline.Graph
}

func (AddNode) Name() string        { return "add_node" }
func (RemoveNode) Name() string     { return "remove_node" }
func (SelectNode) Name() string     { return "select_node" }
func (ResetSelection) Name() string { return "reset_selection" }
func (Connect) Name() string        { return "connect" }
func (Disconnect) Name() string     { return "disconnect" }
func (SetProperty) Name() string    { return "set_property" }
func (Replace) Name() string        { return "replace" }

func (AddNode) isCommand()        {}
func (RemoveNode) isCommand()     {}
func (SelectNode) isCommand()     {}
func (ResetSelection) isCommand() {}
func (Connect) isCommand()        {}
func (Disconnect) isCommand()     {}
func (SetProperty) isCommand()    {}
func (Replace) isCommand()        {}
