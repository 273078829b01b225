package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/inmemorytopology"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/testutil"
)

func TestGuard_TracksStoreChanges(t *testing.T) {
	ctx, _ := testutil.LoggerContext(t)
	store := inmemorytopology.New(dag.NewState(testutil.Batch), dag.NewReducer(nodeid.Sequential()))
	g := NewGuard()
	detach := g.Attach(store)
	defer detach()

	assert.Equal(t, Clean, g.Status())

	_, err := store.Dispatch(ctx, dag.AddNode{Plugin: &pipeline.PluginDescriptor{Name: "Stream", Type: pipeline.Source}})
	require.NoError(t, err)
	assert.Equal(t, Dirty, g.Status())

	_, err = store.Dispatch(ctx, dag.ResetSelection{})
	require.NoError(t, err)
	assert.True(t, g.IsDirty(), "selection does not clean the session")

	_, err = store.Dispatch(ctx, dag.Replace{Graph: pipeline.NewGraph(testutil.Batch)})
	require.NoError(t, err)
	assert.Equal(t, Clean, g.Status())

	_, err = store.Dispatch(ctx, dag.SelectNode{ID: "missing"})
	require.Error(t, err)
	assert.Equal(t, Clean, g.Status())
}

func TestGuard_Check(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	testCases := []struct {
		name     string
		dirty    bool
		answer   Decision
		err      error
		nilFunc  bool
		expected Decision
		prompted bool
	}{
		{name: "clean proceeds without prompt", answer: Cancel, expected: Proceed},
		{name: "dirty proceed", dirty: true, answer: Proceed, expected: Proceed, prompted: true},
		{name: "dirty cancel", dirty: true, answer: Cancel, expected: Cancel, prompted: true},
		{name: "dirty without prompt cancels", dirty: true, nilFunc: true, expected: Cancel},
		{name: "failed prompt cancels", dirty: true, answer: Proceed, err: boom, expected: Cancel, prompted: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGuard()
			if tc.dirty {
				g.set(ctx, Dirty)
			}
			var prompts []Operation
			confirm := func(_ context.Context, op Operation) (Decision, error) {
				prompts = append(prompts, op)
				return tc.answer, tc.err
			}
			if tc.nilFunc {
				confirm = nil
			}

			d, err := g.Check(ctx, OpOpenImport, confirm)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expected, d)
			if tc.prompted {
				assert.Equal(t, []Operation{OpOpenImport}, prompts)
			} else {
				assert.Empty(t, prompts)
			}
		})
	}
}

func TestGuard_MarkClean(t *testing.T) {
	ctx, logs := testutil.LoggerContext(t)
	g := NewGuard()
	g.set(ctx, Dirty)
	g.MarkClean(ctx)
	assert.False(t, g.IsDirty())
	assert.Contains(t, logs.String(), "Session status changed.")
	assert.Equal(t, "CLEAN", Clean.String())
	assert.Equal(t, "DIRTY", Dirty.String())
}

func TestOperation_WireNames(t *testing.T) {
	// Confirm events carry these names.
	assert.Equal(t, "switch_artifact", string(OpSwitchArtifact))
	assert.Equal(t, "open_import", string(OpOpenImport))
	assert.Equal(t, "load_template", string(OpLoadTemplate))
}

func TestNopObserver(t *testing.T) {
	var o Observer = NopObserver{}
	assert.NotPanics(t, func() {
		o.ImportFailed(context.Background(), errors.New("x"))
		o.Confirmed(context.Background(), OpOpenImport, Proceed)
	})
}
