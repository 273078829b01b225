package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

// Status is the persistence state of an edit session.
type Status int

const (
	// Clean means everything in the graph has been saved, imported or
	// loaded.
	Clean Status = iota
	// Dirty means the graph has unsaved mutations.
	Dirty
)

func (s Status) String() string {
	if s == Dirty {
		return "DIRTY"
	}
	return "CLEAN"
}

// Operation names a destructive operation.
type Operation string

const (
	// OpSwitchArtifact replaces the graph with an empty one of another
	// pipeline artifact.
	OpSwitchArtifact Operation = "switch_artifact"
	// OpOpenImport opens the import dialog, whose result replaces the graph.
	OpOpenImport     Operation = "open_import"
	// OpLoadTemplate replaces the graph with a pipeline template.
	OpLoadTemplate   Operation = "load_template"
)

// Decision is the answer to a confirmation prompt.
type Decision int

const (
	// Cancel keeps the current graph.
	Cancel Decision = iota
	// Proceed discards unsaved changes and performs the operation.
	Proceed
)

func (d Decision) String() string {
	if d == Proceed {
		return "proceed"
	}
	return "cancel"
}

// ConfirmFunc asks whether to discard unsaved changes for op. It blocks
// until the user answers or ctx is done.
type ConfirmFunc func(ctx context.Context, op Operation) (Decision, error)

// Guard tracks whether the session is dirty. It is safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	status Status
}

// NewGuard returns a clean guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Attach subscribes g to store so mutations mark it dirty and replacements
// mark it clean. The returned function detaches it.
func (g *Guard) Attach(store topologystore.Store) (detach func()) {
	return store.Subscribe(g.Observe)
}

// Observe updates the status from one store change.
func (g *Guard) Observe(ctx context.Context, change topologystore.Change) {
	switch {
	case isReplace(change.Command):
		g.set(ctx, Clean)
	case change.Dirty:
		g.set(ctx, Dirty)
	}
}

func isReplace(cmd dag.Command) bool {
	_, ok := cmd.(dag.Replace)
	return ok
}

func (g *Guard) set(ctx context.Context, s Status) {
	g.mu.Lock()
	prev := g.status
	g.status = s
	g.mu.Unlock()
	if prev != s {
		ctxlog.FromContext(ctx).Debug("Session status changed.", "from", prev.String(), "to", s.String())
	}
}

// Status returns the current status.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// IsDirty reports whether the session has unsaved changes.
func (g *Guard) IsDirty() bool {
	return g.Status() == Dirty
}

// MarkClean records an explicit save.
func (g *Guard) MarkClean(ctx context.Context) {
	g.set(ctx, Clean)
}

// Check decides whether op may run. A clean session proceeds without
// calling confirm. A dirty session asks confirm; a nil confirm or a failed
// prompt cancels.
func (g *Guard) Check(ctx context.Context, op Operation, confirm ConfirmFunc) (Decision, error) {
	if !g.IsDirty() {
		return Proceed, nil
	}
	if confirm == nil {
		return Cancel, nil
	}
	d, err := confirm(ctx, op)
	if err != nil {
		return Cancel, fmt.Errorf("confirming %s: %w", op, err)
	}
	if d != Proceed {
		return Cancel, nil
	}
	return Proceed, nil
}
