// Package localsession wires an in-process edit session: the dag reducer,
// the in-memory graph store, the session guard and the codec behind one
// session.Editor.
package localsession

import (
	"context"
	"errors"

	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/inmemorytopology"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/session"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

// Options are the collaborators that live outside the session.
type Options struct {
	Catalog   session.Catalog
	Templates session.Templates
	Navigator session.Navigator
	Confirm   session.ConfirmFunc
	Observer  session.Observer
	Namespace string
	// Listeners are subscribed to the graph store before the editor starts.
	Listeners []topologystore.Listener
	// Closers release resources the session owns, such as the connection
	// behind a listener. Session.Close runs them once, newest first. They
	// also run when NewSession fails.
	Closers   []func() error
}

// SessionFactory creates local sessions.
type SessionFactory struct {
	// NewID assigns node ids. Nil uses nodeid.New.
	NewID nodeid.Func
}

// NewSession creates and wires a new local session. The editor is not
// started.
func (f *SessionFactory) NewSession(ctx context.Context, opts Options) (*Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.SessionFactory.NewSession called")

	// --- This is where the dependency injection wiring happens ---
	store := inmemorytopology.New(dag.NewState(pipeline.Artifact{}), dag.NewReducer(f.NewID))
	guard := session.NewGuard()
	cancels := []func(){guard.Attach(store)}
	for _, l := range opts.Listeners {
		cancels = append(cancels, store.Subscribe(l))
	}
	editor, err := session.NewEditor(session.Deps{
		Catalog:   opts.Catalog,
		Codec:     codec.New(f.NewID),
		Store:     store,
		Guard:     guard,
		Templates: opts.Templates,
		Navigator: opts.Navigator,
		Confirm:   opts.Confirm,
		Observer:  opts.Observer,
		Namespace: opts.Namespace,
	})
	// --- End of dependency injection ---
	if err != nil {
		for _, cancel := range cancels {
			cancel()
		}
		return nil, errors.Join(err, runClosers(opts.Closers))
	}

	return &Session{editor: editor, store: store, guard: guard, cancels: cancels, closers: opts.Closers}, nil
}

func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}

// Session owns one editor and its graph store.
type Session struct {
	editor  *session.Editor
	store   *inmemorytopology.Store
	guard   *session.Guard
	cancels []func()
	closers []func() error
}

// Editor returns the editor that was created and wired up by the factory.
func (s *Session) Editor() *session.Editor {
	return s.editor
}

// Store returns the graph store, for dependent views that subscribe late.
func (s *Session) Store() topologystore.Store {
	return s.store
}

// Status returns the persistence status of the session.
func (s *Session) Status() session.Status {
	return s.guard.Status()
}

// Close detaches every listener the factory subscribed, then runs the
// closers. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.Session.Close called", "status", s.guard.Status().String())
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	err := runClosers(s.closers)
	s.closers = nil
	return err
}
