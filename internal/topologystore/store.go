// Package topologystore defines the interface of the pipeline graph store,
// the single source of truth for an edit session's graph.
//
// # Why The Store Exists
//
// The store isolates the graph state from everything that reacts to it. The
// editor issues commands, the store applies them through the dag reducer and
// then tells its subscribers what happened. Dependent views (the canvas
// relay, the session guard, metrics) never read or patch the graph behind
// the store's back.
//
// # Ordering
//
// Commands are applied strictly in the order Dispatch is called. After each
// successful command every listener receives one Change, in subscription
// order, before Dispatch returns. Failed commands publish nothing.
//
// # Typical Implementation
//
// See internal/inmemorytopology for the in-memory implementation used by the
// editor and the CLI.
package topologystore

import (
	"context"

	"github.com/specialistvlad/pipelinestudio/internal/dag"
)

// Change describes one applied command.
type Change struct {
	// Seq increases by one with every published change, starting at 1.
	Seq uint64
	// Command is the command that was applied.
	Command dag.Command
	// State is the state after the command.
	State dag.State
	// Dirty reports whether the command changed the pipeline configuration.
	Dirty bool
}

// Listener is notified of every change. Listeners run synchronously inside
// Dispatch and must not call Dispatch themselves.
type Listener func(ctx context.Context, change Change)

// Store is the interface of the pipeline graph store.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. Concurrent Dispatch calls
// are serialized; State may be called from listeners.
type Store interface {
	// State returns the current state. The returned value must be treated
	// as read-only.
	State(ctx context.Context) dag.State

	// Dispatch applies cmd. On error the state is unchanged and no listener
	// is called.
	Dispatch(ctx context.Context, cmd dag.Command) (dag.Result, error)

	// Subscribe registers l and returns a function that removes it. Calling
	// the cancel function more than once is harmless.
	Subscribe(l Listener) (cancel func())
}
