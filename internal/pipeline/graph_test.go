package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph() Graph {
	g := NewGraph(Artifact{Name: "cdap-etl-batch", Version: "3.2.0", Scope: "SYSTEM"})
	g.Nodes = []Node{
		{ID: "a_1", Type: Source, Plugin: PluginRef{Label: "A", Name: "Stream", Properties: map[string]any{"name": "s"}}},
		{ID: "b_1", Type: Transform, Plugin: PluginRef{Label: "B", Name: "Projection"}},
		{ID: "c_1", Type: Sink, Plugin: PluginRef{Label: "C", Name: "Table"}},
	}
	g.Connections = []Connection{{From: "A", To: "B"}, {From: "B", To: "C"}}
	return g
}

func TestGraph_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(g *Graph)
		expectErr string
	}{
		{name: "valid graph", mutate: func(g *Graph) {}},
		{
			name:      "duplicate label",
			mutate:    func(g *Graph) { g.Nodes[1].Plugin.Label = "A" },
			expectErr: "duplicate node label",
		},
		{
			name:      "duplicate id",
			mutate:    func(g *Graph) { g.Nodes[2].ID = "a_1" },
			expectErr: "duplicate node id",
		},
		{
			name:      "self loop",
			mutate:    func(g *Graph) { g.Connections = append(g.Connections, Connection{From: "C", To: "C"}) },
			expectErr: "self-referential",
		},
		{
			name:      "dangling connection",
			mutate:    func(g *Graph) { g.Connections = append(g.Connections, Connection{From: "C", To: "D"}) },
			expectErr: "unknown node \"D\"",
		},
		{
			name:      "unknown type",
			mutate:    func(g *Graph) { g.Nodes[0].Type = "action" },
			expectErr: "unknown type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := testGraph()
			tc.mutate(&g)
			err := g.Validate()
			if tc.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidGraph)
			assert.Contains(t, err.Error(), tc.expectErr)
		})
	}
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := testGraph()
	c := g.Clone()
	c.Nodes[0].Plugin.Properties["name"] = "changed"
	c.Connections[0].To = "C"

	assert.Equal(t, "s", g.Nodes[0].Plugin.Properties["name"])
	assert.Equal(t, "B", g.Connections[0].To)
}

func TestGraph_Reachable(t *testing.T) {
	g := testGraph()
	assert.True(t, g.Reachable("A", "C"))
	assert.False(t, g.Reachable("C", "A"))
	assert.True(t, g.Reachable("B", "B"))
}

func TestParseArtifact(t *testing.T) {
	a, err := ParseArtifact("cdap-etl-batch:3.2.0:SYSTEM")
	require.NoError(t, err)
	assert.Equal(t, Artifact{Name: "cdap-etl-batch", Version: "3.2.0", Scope: "SYSTEM"}, a)

	a, err = ParseArtifact("cdap-etl-realtime")
	require.NoError(t, err)
	assert.Equal(t, "cdap-etl-realtime", a.Name)

	_, err = ParseArtifact("")
	require.Error(t, err)
	_, err = ParseArtifact("a:b:c:d")
	require.Error(t, err)
}

func TestMatchArtifact(t *testing.T) {
	known := []Artifact{
		{Name: "cdap-etl-batch", Version: "3.2.0", Scope: "SYSTEM"},
		{Name: "cdap-etl-realtime", Version: "3.2.0", Scope: "SYSTEM"},
	}

	got, ok := MatchArtifact(known, Artifact{Name: "cdap-etl-realtime"})
	require.True(t, ok)
	assert.Equal(t, known[1], got)

	_, ok = MatchArtifact(known, Artifact{Name: "cdap-etl-batch", Version: "9.9.9"})
	assert.False(t, ok)

	_, ok = FindArtifact(known, Artifact{Name: "cdap-etl-batch", Version: "3.2.0"})
	assert.False(t, ok, "scope takes part in deep equality")
}

func TestExtensionType(t *testing.T) {
	assert.Equal(t, "batchsource", ExtensionType("cdap-etl-batch", Source))
	assert.Equal(t, "batchsink", ExtensionType("cdap-etl-batch", Sink))
	assert.Equal(t, "realtimesource", ExtensionType(RealtimeArtifact, Source))
	assert.Equal(t, "transform", ExtensionType(RealtimeArtifact, Transform))
}

func TestIconFor(t *testing.T) {
	assert.Equal(t, "icon-kafka", IconFor("Kafka"))
	assert.Equal(t, DefaultIcon, IconFor("SomethingElse"))
}
