// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package pipeline provides the Go representation of a pipeline under
// construction in the studio editor.
//
// # Core Concepts
//
//   - Artifact: the versioned bundle that decides which plugin set and which
//     engine (batch or realtime) a pipeline targets.
//
//   - PluginDescriptor: a catalog entry describing a source, transform or sink
//     plugin at one artifact version. It is the "definition" of a stage.
//
//   - PluginTemplate: a saved preset of a plugin's configuration that can be
//     dropped on the canvas like a descriptor.
//
//   - Node: an "instance" of a descriptor or template placed in the graph. Its
//     label is the human-readable stage name and must be unique in the graph.
//
//   - Connection: a directed edge between two node labels.
//
//   - Graph: nodes, connections and the selected artifact. It is a plain value;
//     all mutation goes through the dag package so every published state keeps
//     the invariants checked by Graph.Validate.
package pipeline
