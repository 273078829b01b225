// Package canvasrelay forwards graph store changes to an external canvas
// over socket.io so it can redraw. Each change becomes one
// EventPipelineChanged event carrying the full node and connection lists.
package canvasrelay

import (
	"context"

	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

// EventPipelineChanged is the event name emitted for every change.
const EventPipelineChanged = "pipeline:changed"

// EmitFunc sends one event.
type EmitFunc func(event string, payload any)

// NodeView is what the canvas needs to draw a node.
type NodeView struct {
	ID       string              `json:"id"`
	Label    string              `json:"label"`
	Type     pipeline.PluginType `json:"type"`
	Icon     string              `json:"icon"`
	Selected bool                `json:"selected"`
	Warning  bool                `json:"warning,omitempty"`
}

// Event is the payload of EventPipelineChanged.
type Event struct {
	Seq         uint64                `json:"seq"`
	Command     string                `json:"command"`
	Artifact    pipeline.Artifact     `json:"artifact"`
	Nodes       []NodeView            `json:"nodes"`
	Connections []pipeline.Connection `json:"connections"`
}

// Relay turns store changes into canvas events.
type Relay struct {
	emit EmitFunc
}

// New returns a relay that sends events through emit.
func New(emit EmitFunc) *Relay {
	return &Relay{emit: emit}
}

// Attach subscribes the relay to store.
func (r *Relay) Attach(store topologystore.Store) (detach func()) {
	return store.Subscribe(r.Observe)
}

// Observe emits the event for one change.
func (r *Relay) Observe(ctx context.Context, change topologystore.Change) {
	ev := NewEvent(change)
	ctxlog.FromContext(ctx).Debug("Relaying change to canvas.", "seq", ev.Seq, "command", ev.Command, "nodes", len(ev.Nodes))
	r.emit(EventPipelineChanged, ev)
}

// NewEvent builds the canvas event for change.
func NewEvent(change topologystore.Change) Event {
	g := change.State.Graph
	ev := Event{
		Seq:         change.Seq,
		Artifact:    g.Artifact,
		Nodes:       make([]NodeView, 0, len(g.Nodes)),
		Connections: append([]pipeline.Connection{}, g.Connections...),
	}
	if change.Command != nil {
		ev.Command = change.Command.Name()
	}
	for _, n := range g.Nodes {
		ev.Nodes = append(ev.Nodes, NodeView{
			ID:       n.ID,
			Label:    n.Label(),
			Type:     n.Type,
			Icon:     n.Icon,
			Selected: n.ID == change.State.Selected,
			Warning:  n.Warning,
		})
	}
	return ev
}
