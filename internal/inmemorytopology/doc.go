// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface. One store holds the graph of one
// edit session; nothing is persisted.
package inmemorytopology
