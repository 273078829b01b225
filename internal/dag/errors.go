package dag

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNode is returned when a command names a node id that is not in
	// the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNodeLocked is returned when editing a node created from a locked
	// template.
	ErrNodeLocked = errors.New("node is locked")
	// ErrInvalidCommand is returned for malformed commands.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrInvalidConnection is wrapped by every InvalidConnectionError.
	ErrInvalidConnection = errors.New("invalid connection")
)

// InvalidConnectionError reports a connect or disconnect that cannot take
// effect.
type InvalidConnectionError struct {
	From   string
	To     string
	Reason string
}

func (e *InvalidConnectionError) Error() string {
	return fmt.Sprintf("invalid connection %q -> %q: %s", e.From, e.To, e.Reason)
}

func (e *InvalidConnectionError) Unwrap() error {
	return ErrInvalidConnection
}

// CycleError is returned by DetectCycle.
type CycleError struct {
	Label string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving node '%s'", e.Label)
}
