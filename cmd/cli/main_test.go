package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipelinestudio/internal/cli"
)

func TestRun_Help(t *testing.T) {
	// --- Arrange ---
	args := []string{"--help"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when help is requested")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_ValidateOffline(t *testing.T) {
	// --- Arrange ---
	doc := `{
		"artifact": {"name": "cdap-etl-batch", "version": "3.2.0", "scope": "SYSTEM"},
		"config": {
			"source": {"name": "Stream", "plugin": {"name": "Stream", "properties": {}}},
			"sinks": [{"name": "Table", "plugin": {"name": "Table", "properties": {}}}]
		}
	}`
	filePath := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(filePath, []byte(doc), 0600), "failed to set up test file")
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, []string{"validate", "--offline", filePath})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "valid (artifact cdap-etl-batch:3.2.0:SYSTEM, 2 stages, 1 connections)")
}

func TestRun_MissingManifests(t *testing.T) {
	// --- Arrange ---
	args := []string{"artifacts", "--manifests-path", filepath.Join(t.TempDir(), "missing")}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to load plugin manifests")
}
