package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipelinestudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
namespace: analytics
catalog_url: http://catalog:11015
catalog_timeout: 3s
default_artifact: cdap-etl-realtime:3.2.0:SYSTEM
log_level: DEBUG
healthcheck_port: 8080
`)
	t.Setenv(EnvPrefix+"LOG_FORMAT", "text")
	t.Setenv(EnvPrefix+"HEALTHCHECK_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "analytics", cfg.Namespace)
	assert.Equal(t, "http://catalog:11015", cfg.CatalogURL)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 9090, cfg.HealthcheckPort)
	assert.Equal(t, "manifests", cfg.ManifestsPath, "unset keys keep their defaults")

	a, err := cfg.Artifact()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Artifact{Name: pipeline.RealtimeArtifact, Version: "3.2.0", Scope: "SYSTEM"}, a)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeConfig(t, "workers: 10\n"))
		require.ErrorContains(t, err, "failed to parse config file")
	})
	t.Run("empty file", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
	t.Run("bad env port", func(t *testing.T) {
		t.Setenv(EnvPrefix+"HEALTHCHECK_PORT", "eighty")
		_, err := Load("")
		require.ErrorContains(t, err, "HEALTHCHECK_PORT")
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errMsg: "invalid log-format"},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "trace" }, errMsg: "invalid log-level"},
		{name: "namespace", mutate: func(c *Config) { c.Namespace = "" }, errMsg: "namespace cannot be empty"},
		{name: "no catalog", mutate: func(c *Config) { c.ManifestsPath = "" }, errMsg: "either catalog_url or manifests_path"},
		{name: "port", mutate: func(c *Config) { c.HealthcheckPort = 70000 }, errMsg: "invalid healthcheck_port"},
		{name: "artifact", mutate: func(c *Config) { c.DefaultArtifact = "a:b:c:d" }, errMsg: "invalid artifact"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}
}
