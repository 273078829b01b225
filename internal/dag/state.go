package dag

import "github.com/specialistvlad/pipelinestudio/internal/pipeline"

// State is a snapshot of the edit session's graph plus the transient
// selection. Published states are never modified.
type State struct {
	Graph pipeline.Graph
	// Selected is the id of the currently selected node, or empty.
	Selected string
}

// NewState returns an empty state for the given pipeline artifact.
func NewState(artifact pipeline.Artifact) State {
	return State{Graph: pipeline.NewGraph(artifact)}
}

// SelectedNode returns the selected node, if any.
func (s State) SelectedNode() (pipeline.Node, bool) {
	if s.Selected == "" {
		return pipeline.Node{}, false
	}
	i := s.Graph.NodeByID(s.Selected)
	if i < 0 {
		return pipeline.Node{}, false
	}
	return s.Graph.Nodes[i], true
}
