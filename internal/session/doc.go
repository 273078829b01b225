// Package session implements the edit session around a pipeline graph: the
// Guard that tracks unsaved changes and gates destructive operations, and
// the Editor that drives the catalog, the graph store and the codec on the
// user's behalf.
//
// Destructive operations (switching the pipeline artifact, opening an
// import, loading a pipeline template) consult the Guard first. While the
// session is dirty the Guard asks a ConfirmFunc, which answers Proceed or
// Cancel synchronously. Cancel leaves the graph and the selected artifact
// exactly as they were.
package session
