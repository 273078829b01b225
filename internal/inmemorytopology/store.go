package inmemorytopology

import (
	"context"
	"sync"

	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

type subscription struct {
	id       uint64
	listener topologystore.Listener
}

// Store implements topologystore.Store around a dag.Reducer.
type Store struct {
	// dispatchMu serializes Dispatch, including listener notification, so
	// listeners observe changes in issue order.
	dispatchMu sync.Mutex

	mu      sync.RWMutex
	reducer *dag.Reducer
	state   dag.State
	seq     uint64
	nextSub uint64
	subs    []subscription
}

// New creates a store holding initial. A nil reducer gets the default one.
func New(initial dag.State, reducer *dag.Reducer) *Store {
	if reducer == nil {
		reducer = dag.NewReducer(nil)
	}
	initial.Graph = initial.Graph.Clone()
	return &Store{reducer: reducer, state: initial}
}

// State returns the current state.
func (s *Store) State(ctx context.Context) dag.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies cmd and notifies listeners of the change.
func (s *Store) Dispatch(ctx context.Context, cmd dag.Command) (dag.Result, error) {
	logger := ctxlog.FromContext(ctx)

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	res, err := s.reducer.Reduce(s.state, cmd)
	if err != nil {
		s.mu.Unlock()
		logger.Debug("Command rejected.", "command", cmd.Name(), "error", err)
		return res, err
	}
	s.state = res.State
	s.seq++
	change := topologystore.Change{Seq: s.seq, Command: cmd, State: res.State, Dirty: res.Dirty}
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	logger.Debug("Command applied.",
		"command", cmd.Name(),
		"seq", change.Seq,
		"nodes", len(res.State.Graph.Nodes),
		"connections", len(res.State.Graph.Connections),
	)
	for _, sub := range subs {
		sub.listener(ctx, change)
	}
	return res, nil
}

// Subscribe registers a listener.
func (s *Store) Subscribe(l topologystore.Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

var _ topologystore.Store = (*Store)(nil)
