package remotecatalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

var batch = pipeline.Artifact{Name: "cdap-etl-batch", Version: "3.2.0", Scope: "SYSTEM"}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "default", WithTimeout(2*time.Second))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestArtifacts(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/namespaces/default/artifacts", r.URL.Path)
		writeJSON(t, w, []pipeline.Artifact{batch})
	})

	list, err := c.Artifacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Artifact{batch}, list)
}

func TestPlugins(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/namespaces/default/artifacts/cdap-etl-batch/versions/3.2.0/extensions/batchsource", r.URL.Path)
		assert.Equal(t, "SYSTEM", r.URL.Query().Get("scope"))
		writeJSON(t, w, []map[string]any{{
			"name":        "Stream",
			"type":        "batchsource",
			"description": "Reads a stream.",
			"artifact":    map[string]string{"name": "core-plugins", "version": "1.0.0", "scope": "SYSTEM"},
		}})
	})

	list, err := c.Plugins(context.Background(), batch, pipeline.Source)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Stream", list[0].Name)
	assert.Equal(t, pipeline.Source, list[0].Type)
	assert.Equal(t, "icon-plugin-stream", list[0].Icon)
	assert.Equal(t, "1.0.0", list[0].Artifact.Version)
}

func TestErrorClassification(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		target error
	}{
		{name: "not found", status: http.StatusNotFound, target: catalog.ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, target: catalog.ErrNetwork},
		{name: "unauthorized", status: http.StatusUnauthorized, target: catalog.ErrNetwork},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := c.Plugins(context.Background(), batch, pipeline.Sink)
			require.ErrorIs(t, err, tc.target)
		})
	}

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := New(srv.URL, "default")
		defer c.Close()

		_, err := c.Artifacts(context.Background())
		require.ErrorIs(t, err, catalog.ErrNetwork)
	})
}
