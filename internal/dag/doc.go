// Package dag is the graph mutation layer of the editor. Every change to a
// pipeline graph is expressed as a Command and applied by the Reducer, which
// returns a new State and never mutates the one it was given.
//
// Commands are plain values so they can be logged, counted and replayed.
// Failed commands leave the state untouched.
package dag
