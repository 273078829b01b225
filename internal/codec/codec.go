package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// Codec imports and exports pipeline documents. It is safe for concurrent
// use as long as its id function is.
type Codec struct {
	newID    nodeid.Func
	validate *validator.Validate
}

// New returns a codec that assigns imported node ids with newID, or with
// nodeid.New when newID is nil.
func New(newID nodeid.Func) *Codec {
	if newID == nil {
		newID = nodeid.New
	}
	return &Codec{newID: newID, validate: newValidator()}
}

// stages returns source, transforms and sinks in sequence order.
func (d *Document) stages() []Stage {
	out := make([]Stage, 0, 1+len(d.Config.Transforms)+len(d.Config.Sinks))
	if d.Config.Source != nil {
		out = append(out, *d.Config.Source)
	}
	out = append(out, d.Config.Transforms...)
	return append(out, d.Config.Sinks...)
}

// Export converts g into a document. The graph must have exactly one source
// and at least one sink.
func (c *Codec) Export(g pipeline.Graph) (*Document, error) {
	sources := g.NodesOfType(pipeline.Source)
	sinks := g.NodesOfType(pipeline.Sink)
	if len(sources) != 1 {
		return nil, fmt.Errorf("%w: a pipeline needs exactly one source, found %d", ErrIncompletePipeline, len(sources))
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("%w: a pipeline needs at least one sink", ErrIncompletePipeline)
	}

	artifact := g.Artifact
	source := toStage(sources[0])
	doc := &Document{
		Artifact: &artifact,
		Config: &Config{
			Source:      &source,
			Transforms:  []Stage{},
			Sinks:       make([]Stage, 0, len(sinks)),
			Connections: make([]pipeline.Connection, len(g.Connections)),
		},
	}
	for _, n := range g.NodesOfType(pipeline.Transform) {
		doc.Config.Transforms = append(doc.Config.Transforms, toStage(n))
	}
	for _, n := range sinks {
		doc.Config.Sinks = append(doc.Config.Sinks, toStage(n))
	}
	copy(doc.Config.Connections, g.Connections)
	return doc, nil
}

func toStage(n pipeline.Node) Stage {
	n = n.Clone()
	return Stage{
		Name: n.Label(),
		Plugin: StagePlugin{
			Name:       n.Plugin.Name,
			Label:      n.Label(),
			Artifact:   n.Plugin.Artifact,
			Properties: n.Plugin.Properties,
		},
		OutputSchema: n.OutputSchema,
		InputSchema:  n.InputSchema,
	}
}

// Marshal renders doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON exports g and marshals the result.
func (c *Codec) ExportJSON(g pipeline.Graph) ([]byte, error) {
	doc, err := c.Export(g)
	if err != nil {
		return nil, err
	}
	return Marshal(doc)
}

// Decode parses and validates raw without checking the artifact.
func (c *Codec) Decode(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedConfigError{Err: err}
	}
	if err := c.validateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Import converts raw into a fresh graph. The document's artifact must be
// deep-equal to one of known. Documents without connections get a linear
// chain over source, transforms and sinks in that order.
//
// Plugin properties are decoded as plain JSON values: numbers become
// float64, objects map[string]any and arrays []any. A graph whose
// properties hold other Go types, such as an int, therefore imports back
// with the JSON equivalent of each value.
func (c *Codec) Import(raw []byte, known []pipeline.Artifact) (pipeline.Graph, error) {
	doc, err := c.Decode(raw)
	if err != nil {
		return pipeline.Graph{}, err
	}
	if _, ok := pipeline.FindArtifact(known, *doc.Artifact); !ok {
		return pipeline.Graph{}, &UnknownArtifactError{Artifact: *doc.Artifact}
	}
	return c.Build(doc)
}

// Build turns a validated document into a graph.
func (c *Codec) Build(doc *Document) (pipeline.Graph, error) {
	g := pipeline.NewGraph(*doc.Artifact)
	add := func(s Stage, t pipeline.PluginType) {
		n := pipeline.Node{
			Plugin: pipeline.PluginRef{
				Label:      s.Name,
				Name:       s.Plugin.Name,
				Artifact:   s.Plugin.Artifact,
				Properties: s.Plugin.Properties,
			},
			Type:         t,
			Icon:         pipeline.IconFor(s.Plugin.Name),
			InputSchema:  s.InputSchema,
			OutputSchema: s.OutputSchema,
		}
		n = n.Clone()
		n.ID = c.newID(n.Label())
		for g.NodeByID(n.ID) >= 0 {
			n.ID = c.newID(n.Label())
		}
		g.Nodes = append(g.Nodes, n)
	}
	add(*doc.Config.Source, pipeline.Source)
	for _, s := range doc.Config.Transforms {
		add(s, pipeline.Transform)
	}
	for _, s := range doc.Config.Sinks {
		add(s, pipeline.Sink)
	}

	if doc.Config.Connections == nil {
		g.Connections = LinearConnections(doc)
	} else {
		g.Connections = append(g.Connections, doc.Config.Connections...)
	}

	if err := g.Validate(); err != nil {
		return pipeline.Graph{}, &InvalidSchemaError{Field: "config", Message: err.Error()}
	}
	if err := dag.DetectCycle(g); err != nil {
		return pipeline.Graph{}, &InvalidSchemaError{Field: "config.connections", Message: err.Error()}
	}
	return g, nil
}

// LinearConnections chains every stage of doc in sequence order:
// source, transforms, then sinks.
func LinearConnections(doc *Document) []pipeline.Connection {
	stages := doc.stages()
	out := make([]pipeline.Connection, 0, len(stages))
	for i := 0; i+1 < len(stages); i++ {
		out = append(out, pipeline.Connection{From: stages[i].Name, To: stages[i+1].Name})
	}
	return out
}
