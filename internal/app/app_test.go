package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/config"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/session"
	"github.com/specialistvlad/pipelinestudio/internal/testutil"
)

const manifest = `
artifact "cdap-etl-batch" {
  version = "3.2.0"
  scope   = "SYSTEM"
}

plugin "source" "Stream" {
  artifact "core-plugins" {
    version = "1.0.0"
    scope   = "SYSTEM"
  }
  property "name" {
    type    = string
    default = "events"
  }
}

plugin "sink" "Table" {
  artifact "core-plugins" {
    version = "1.0.0"
    scope   = "SYSTEM"
  }
}
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TemplatesDB = filepath.Join(t.TempDir(), "templates.db")
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	return cfg
}

// newTestApp builds an app over the static test backend.
func newTestApp(t *testing.T) (*App, *testutil.SafeBuffer) {
	t.Helper()
	logs := &testutil.SafeBuffer{}
	a, err := NewApp(context.Background(), logs, testConfig(t),
		WithBackend(testutil.NewStaticBackend()), WithNodeIDs(nodeid.Sequential()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, logs
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "verbose"
	_, err := NewApp(context.Background(), io.Discard, cfg)
	require.ErrorContains(t, err, "invalid log-level")
}

func TestNewApp_ManifestBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.ManifestsPath = testutil.WriteFiles(t, map[string]string{"plugins/core.hcl": manifest})

	a, err := NewApp(ctx, io.Discard, cfg)
	require.NoError(t, err)
	defer a.Close()

	s, err := a.NewSession(ctx, SessionOptions{})
	require.NoError(t, err)
	defer s.Close(ctx)

	ed := s.Editor()
	assert.Equal(t, "cdap-etl-batch", ed.Artifact().Name)
	n, err := ed.AddPlugin(ctx, pipeline.Source, "Stream")
	require.NoError(t, err)
	assert.Equal(t, "events", n.Plugin.Properties["name"])
}

func TestNewApp_MissingManifests(t *testing.T) {
	cfg := testConfig(t)
	cfg.ManifestsPath = filepath.Join(t.TempDir(), "missing")
	_, err := NewApp(context.Background(), io.Discard, cfg)
	require.Error(t, err)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	a, logs := newTestApp(t)
	ctx := a.Context()

	s, err := a.NewSession(ctx, SessionOptions{})
	require.NoError(t, err)
	defer s.Close(ctx)
	_, err = s.Editor().AddPlugin(ctx, pipeline.Source, "Stream")
	require.NoError(t, err)

	mux := a.healthMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
	assert.Contains(t, logs.String(), "Health check endpoint hit.")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pipelinestudio_graph_commands_total{command="add_node",dirty="true"} 1`)
}

func TestNewSession_OwnCatalog(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := a.Context()

	first, err := a.NewSession(ctx, SessionOptions{})
	require.NoError(t, err)
	defer first.Close(ctx)
	second, err := a.NewSession(ctx, SessionOptions{})
	require.NoError(t, err)
	defer second.Close(ctx)

	switched, err := second.Editor().SwitchArtifact(ctx, testutil.Realtime)
	require.NoError(t, err)
	require.True(t, switched)

	assert.Equal(t, testutil.Batch, first.Editor().Artifact())
	_, err = first.Editor().AddPlugin(ctx, pipeline.Transform, "Projection")
	require.NoError(t, err, "the other session keeps its plugins")
	_, err = first.Editor().AddPlugin(ctx, pipeline.Source, "JMS")
	require.ErrorIs(t, err, session.ErrUnknownPlugin)
	_, err = second.Editor().AddPlugin(ctx, pipeline.Source, "JMS")
	require.NoError(t, err)
}

func TestHealthCheckServer_DisabledByDefault(t *testing.T) {
	a, _ := newTestApp(t)
	a.StartHealthCheckServer()
	assert.Nil(t, a.httpServer)
	require.NoError(t, a.closeHealthCheckServer())
}

func TestTemplates_OpenedOnce(t *testing.T) {
	a, _ := newTestApp(t)
	first, err := a.Templates()
	require.NoError(t, err)
	second, err := a.Templates()
	require.NoError(t, err)
	assert.Same(t, first, second)
}
