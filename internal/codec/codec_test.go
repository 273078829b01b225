package codec

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

var (
	batch = pipeline.Artifact{Name: "cdap-etl-batch", Version: "3.2.0", Scope: "SYSTEM"}
	known = []pipeline.Artifact{batch}
	core  = pipeline.Artifact{Name: "core-plugins", Version: "1.0.0", Scope: "SYSTEM"}
)

func node(label, plugin string, t pipeline.PluginType, props map[string]any) pipeline.Node {
	return pipeline.Node{
		ID:     nodeid.Slug(label) + "_x",
		Type:   t,
		Icon:   pipeline.IconFor(plugin),
		Plugin: pipeline.PluginRef{Label: label, Name: plugin, Artifact: core, Properties: props},
	}
}

func sampleGraphs() map[string]pipeline.Graph {
	linear := pipeline.NewGraph(batch)
	linear.Nodes = []pipeline.Node{
		node("Stream", "Stream", pipeline.Source, map[string]any{"name": "events", "duration": "1h"}),
		node("Projection", "Projection", pipeline.Transform, map[string]any{"drop": "ts"}),
		node("Table", "Table", pipeline.Sink, map[string]any{"name": "out"}),
	}
	linear.Nodes[1].OutputSchema = `{"type":"record","name":"etlSchemaBody","fields":[]}`
	linear.Connections = []pipeline.Connection{{From: "Stream", To: "Projection"}, {From: "Projection", To: "Table"}}

	fanOut := pipeline.NewGraph(batch)
	fanOut.Nodes = []pipeline.Node{
		node("Table2", "Table", pipeline.Sink, nil),
		node("Kafka", "Kafka", pipeline.Source, map[string]any{"brokers": "b:9092", "partitions": json.Number("3")}),
		node("Script", "Script", pipeline.Transform, map[string]any{}),
		node("Table", "Table", pipeline.Sink, map[string]any{}),
	}
	fanOut.Nodes[0].Lock = true
	fanOut.Nodes[0].Warning = true
	fanOut.Connections = []pipeline.Connection{
		{From: "Kafka", To: "Script"},
		{From: "Script", To: "Table"},
		{From: "Kafka", To: "Table2"},
	}

	disconnected := pipeline.NewGraph(batch)
	disconnected.Nodes = []pipeline.Node{
		node("Stream", "Stream", pipeline.Source, nil),
		node("Table", "Table", pipeline.Sink, nil),
	}

	return map[string]pipeline.Graph{"linear": linear, "fan out": fanOut, "no connections": disconnected}
}

// graphComparison ignores what import is allowed to change: ids, icons,
// editor flags and node order across types.
var graphComparison = []cmp.Option{
	cmpopts.IgnoreFields(pipeline.Node{}, "ID", "Icon", "Lock", "Warning", "Description", "PluginTemplate"),
	cmpopts.SortSlices(func(a, b pipeline.Node) bool { return a.Plugin.Label < b.Plugin.Label }),
	cmpopts.SortSlices(func(a, b pipeline.Connection) bool { return a.From+">"+a.To < b.From+">"+b.To }),
	cmpopts.EquateEmpty(),
}

func TestRoundTrip(t *testing.T) {
	c := New(nodeid.Sequential())
	for name, g := range sampleGraphs() {
		t.Run(name, func(t *testing.T) {
			raw, err := c.ExportJSON(g)
			require.NoError(t, err)

			imported, err := c.Import(raw, known)
			require.NoError(t, err)

			assert.Empty(t, cmp.Diff(roundTripValues(t, g), imported, graphComparison...))
			assert.Len(t, imported.Connections, len(g.Connections))
		})
	}
}

// roundTripValues passes property values through JSON the way an import
// does, so numbers become float64.
func roundTripValues(t *testing.T, g pipeline.Graph) pipeline.Graph {
	t.Helper()
	g = g.Clone()
	for i := range g.Nodes {
		raw, err := json.Marshal(g.Nodes[i].Plugin.Properties)
		require.NoError(t, err)
		var props map[string]any
		require.NoError(t, json.Unmarshal(raw, &props))
		g.Nodes[i].Plugin.Properties = props
	}
	return g
}

func TestImport_PropertiesDecodeAsJSONValues(t *testing.T) {
	c := New(nodeid.Sequential())
	g := sampleGraphs()["linear"]
	g.Nodes[0].Plugin.Properties = map[string]any{
		"partitions": 3,
		"ratio":      json.Number("0.5"),
		"topics":     []string{"a", "b"},
		"options":    map[string]int{"retries": 2},
		"enabled":    true,
	}

	raw, err := c.ExportJSON(g)
	require.NoError(t, err)
	imported, err := c.Import(raw, known)
	require.NoError(t, err)

	i := imported.NodeByLabel("Stream")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, map[string]any{
		"partitions": float64(3),
		"ratio":      0.5,
		"topics":     []any{"a", "b"},
		"options":    map[string]any{"retries": float64(2)},
		"enabled":    true,
	}, imported.Nodes[i].Plugin.Properties)
}

func TestExport_StripsEditorFields(t *testing.T) {
	c := New(nil)
	g := sampleGraphs()["fan out"]

	raw, err := c.ExportJSON(g)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	config := generic["config"].(map[string]any)
	assert.Equal(t, "Kafka", config["source"].(map[string]any)["name"])
	assert.Len(t, config["transforms"], 1)
	sinks := config["sinks"].([]any)
	require.Len(t, sinks, 2)
	assert.Equal(t, "Table2", sinks[0].(map[string]any)["name"], "graph order is kept within a type")

	for _, banned := range []string{`"id"`, `"icon"`, `"lock"`, `"warning"`, `"selected"`, `"pluginTemplate"`} {
		assert.NotContains(t, string(raw), banned)
	}
}

func TestExport_IncompletePipeline(t *testing.T) {
	c := New(nil)
	g := sampleGraphs()["linear"]

	noSink := g.Clone()
	noSink.Nodes = noSink.Nodes[:2]
	_, err := c.Export(noSink)
	require.ErrorIs(t, err, ErrIncompletePipeline)

	twoSources := g.Clone()
	twoSources.Nodes = append(twoSources.Nodes, node("Kafka", "Kafka", pipeline.Source, nil))
	_, err = c.Export(twoSources)
	require.ErrorIs(t, err, ErrIncompletePipeline)

	_, err = c.Export(pipeline.NewGraph(batch))
	require.ErrorIs(t, err, ErrIncompletePipeline)
}

const legacyConfig = `{
  "artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"},
  "config": {
    "source": {"name": "Stream", "plugin": {"name": "Stream", "properties": {"name": "events"}}},
    "transforms": [{"name": "Projection", "plugin": {"name": "Projection"}}],
    "sinks": [{"name": "Table", "plugin": {"name": "Table"}}]
  }
}`

func TestImport_SynthesizesLinearConnections(t *testing.T) {
	c := New(nodeid.Sequential())

	g, err := c.Import([]byte(legacyConfig), known)
	require.NoError(t, err)

	assert.Equal(t, []pipeline.Connection{
		{From: "Stream", To: "Projection"},
		{From: "Projection", To: "Table"},
	}, g.Connections)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "stream_00000001", g.Nodes[0].ID)
	assert.Equal(t, "icon-plugin-stream", g.Nodes[0].Icon)
	assert.Equal(t, map[string]any{}, g.Nodes[1].Plugin.Properties)
	assert.Equal(t, batch, g.Artifact)
}

func TestImport_LinearChainCoversEverySink(t *testing.T) {
	c := New(nil)
	raw := `{
  "artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"},
  "config": {
    "source": {"name": "A", "plugin": {"name": "Stream"}},
    "sinks": [{"name": "B", "plugin": {"name": "Table"}}, {"name": "C", "plugin": {"name": "Table"}}]
  }
}`
	g, err := c.Import([]byte(raw), known)
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Connection{{From: "A", To: "B"}, {From: "B", To: "C"}}, g.Connections)
}

func TestImport_EmptyConnectionsAreKept(t *testing.T) {
	c := New(nil)
	raw := `{
  "artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"},
  "config": {
    "source": {"name": "A", "plugin": {"name": "Stream"}},
    "sinks": [{"name": "B", "plugin": {"name": "Table"}}],
    "connections": []
  }
}`
	g, err := c.Import([]byte(raw), known)
	require.NoError(t, err)
	assert.Empty(t, g.Connections)
}

func TestImport_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		target      error
		expectField string
		expectMsg   string
	}{
		{
			name:      "not json",
			raw:       `{"artifact": `,
			target:    ErrMalformedConfig,
			expectMsg: MalformedConfigMessage,
		},
		{
			name:        "missing artifact",
			raw:         `{"config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "B", "plugin": {"name": "T"}}]}}`,
			target:      ErrInvalidSchema,
			expectField: "artifact",
		},
		{
			name:        "missing artifact version",
			raw:         `{"artifact": {"name": "cdap-etl-batch"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "B", "plugin": {"name": "T"}}]}}`,
			target:      ErrInvalidSchema,
			expectField: "artifact.version",
		},
		{
			name:        "missing config",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}}`,
			target:      ErrInvalidSchema,
			expectField: "config",
		},
		{
			name:        "missing source",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"sinks": [{"name": "B", "plugin": {"name": "T"}}]}}`,
			target:      ErrInvalidSchema,
			expectField: "config.source",
			expectMsg:   "Missing required field 'config.source'.",
		},
		{
			name:        "missing sinks",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}}}`,
			target:      ErrInvalidSchema,
			expectField: "config.sinks",
		},
		{
			name:        "empty sinks",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": []}}`,
			target:      ErrInvalidSchema,
			expectField: "config.sinks",
		},
		{
			name:        "stage without name",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"plugin": {"name": "T"}}]}}`,
			target:      ErrInvalidSchema,
			expectField: "config.sinks[0].name",
		},
		{
			name:        "duplicate stage",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "A", "plugin": {"name": "T"}}]}}`,
			target:      ErrInvalidSchema,
			expectField: "config",
		},
		{
			name:        "dangling connection",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "B", "plugin": {"name": "T"}}], "connections": [{"from": "A", "to": "Z"}]}}`,
			target:      ErrInvalidSchema,
			expectField: "config.connections[0]",
		},
		{
			name:        "cyclic connections",
			raw:         `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "B", "plugin": {"name": "T"}}], "connections": [{"from": "A", "to": "B"}, {"from": "B", "to": "A"}]}}`,
			target:      ErrInvalidSchema,
			expectField: "config.connections",
		},
		{
			name:   "unknown artifact",
			raw:    `{"artifact": {"name": "cdap-etl-batch", "version": "9.9.9", "scope": "SYSTEM"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "B", "plugin": {"name": "T"}}]}}`,
			target: ErrUnknownArtifact,
		},
		{
			name:   "artifact scope differs",
			raw:    `{"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "USER"}, "config": {"source": {"name": "A", "plugin": {"name": "S"}}, "sinks": [{"name": "B", "plugin": {"name": "T"}}]}}`,
			target: ErrUnknownArtifact,
		},
	}

	c := New(nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Import([]byte(tc.raw), known)
			require.ErrorIs(t, err, tc.target)
			assert.NotEmpty(t, Kind(err))
			if tc.expectField != "" {
				var schemaErr *InvalidSchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.Equal(t, tc.expectField, schemaErr.Field)
			}
			if tc.expectMsg != "" {
				assert.Equal(t, tc.expectMsg, err.Error())
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	c := New(nil)
	g := sampleGraphs()["linear"]
	doc, err := c.Export(g)
	require.NoError(t, err)

	first, err := Fingerprint(doc)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	// Key order in the source text does not matter.
	raw := []byte(`{"config": {"sinks": [{"plugin": {"properties": {"name": "out"}, "artifact": {"scope": "SYSTEM", "version": "1.0.0", "name": "core-plugins"}, "label": "Table", "name": "Table"}, "name": "Table"}], "transforms": [{"outputSchema": "{\"type\":\"record\",\"name\":\"etlSchemaBody\",\"fields\":[]}", "plugin": {"properties": {"drop": "ts"}, "artifact": {"scope": "SYSTEM", "version": "1.0.0", "name": "core-plugins"}, "label": "Projection", "name": "Projection"}, "name": "Projection"}], "source": {"plugin": {"properties": {"duration": "1h", "name": "events"}, "artifact": {"scope": "SYSTEM", "version": "1.0.0", "name": "core-plugins"}, "label": "Stream", "name": "Stream"}, "name": "Stream"}, "connections": [{"to": "Projection", "from": "Stream"}, {"to": "Table", "from": "Projection"}]}, "artifact": {"scope": "SYSTEM", "version": "3.2.0", "name": "cdap-etl-batch"}}`)
	parsed, err := c.Decode(raw)
	require.NoError(t, err)
	second, err := Fingerprint(parsed)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	doc.Config.Sinks[0].Plugin.Properties["name"] = "other"
	third, err := Fingerprint(doc)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte(legacyConfig)

	for _, name := range []string{"pipeline.json", "pipeline.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, data))
			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}

	_, err := ReadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
