// Package app contains the core application logic. It wires the catalog
// backend, the template store, metrics and edit sessions from a
// config.Config, and runs the headless editor protocol, decoupled from any
// specific entrypoint like a CLI or server.
package app
