package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	return root
}

func TestFindFiles(t *testing.T) {
	root := writeTree(t, "a.hcl", "core/b.hcl", "core/deep/c.hcl", "core/readme.md", "x.hcl.bak")

	files, err := FindFiles(root, "**/*.hcl")
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a.hcl", "core/b.hcl", "core/deep/c.hcl"}, rel)
}

func TestFindFiles_MultiplePatterns(t *testing.T) {
	root := writeTree(t, "a.json", "b.json.gz", "c.txt")

	files, err := FindFiles(root, "*.json", "*.json.gz")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindFiles_SingleFileAndMissingRoot(t *testing.T) {
	root := writeTree(t, "only.hcl")

	files, err := FindFiles(filepath.Join(root, "only.hcl"), "**/*.hcl")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	files, err = FindFiles(filepath.Join(root, "missing"), "**/*.hcl")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = FindFiles(root, "[")
	require.Error(t, err)
}
