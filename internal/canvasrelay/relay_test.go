package canvasrelay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/inmemorytopology"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/testutil"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

type emitted struct {
	event   string
	payload any
}

func TestRelay_EmitsEveryChange(t *testing.T) {
	ctx, _ := testutil.LoggerContext(t)
	store := inmemorytopology.New(dag.NewState(testutil.Batch), dag.NewReducer(nodeid.Sequential()))

	var got []emitted
	relay := New(func(event string, payload any) { got = append(got, emitted{event, payload}) })
	detach := relay.Attach(store)

	src := testutil.Descriptor("Kafka", pipeline.Source)
	res, err := store.Dispatch(ctx, dag.AddNode{Plugin: &src})
	require.NoError(t, err)
	sink := testutil.Descriptor("Table", pipeline.Sink)
	_, err = store.Dispatch(ctx, dag.AddNode{Plugin: &sink})
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, dag.Connect{From: "Kafka", To: "Table"})
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, dag.SelectNode{ID: res.Node.ID})
	require.NoError(t, err)

	require.Len(t, got, 4)
	for _, e := range got {
		assert.Equal(t, EventPipelineChanged, e.event)
	}
	last := got[3].payload.(Event)
	assert.Equal(t, uint64(4), last.Seq)
	assert.Equal(t, "select_node", last.Command)
	assert.Equal(t, testutil.Batch, last.Artifact)
	assert.Equal(t, []NodeView{
		{ID: "kafka_00000001", Label: "Kafka", Type: pipeline.Source, Icon: "icon-kafka", Selected: true, Warning: true},
		{ID: "table_00000002", Label: "Table", Type: pipeline.Sink, Icon: "fa-table", Warning: true},
	}, last.Nodes)
	assert.Equal(t, []pipeline.Connection{{From: "Kafka", To: "Table"}}, last.Connections)

	detach()
	_, err = store.Dispatch(ctx, dag.ResetSelection{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestEvent_JSONShape(t *testing.T) {
	ev := NewEvent(topologystore.Change{
		Seq:     7,
		Command: dag.Replace{Graph: pipeline.NewGraph(testutil.Batch)},
		State:   dag.NewState(testutil.Batch),
	})
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"seq": 7,
		"command": "replace",
		"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"},
		"nodes": [],
		"connections": []
	}`, string(raw))
}

func TestDial_RejectsBadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "not-a-url", DialOptions{})
	require.Error(t, err)
}
