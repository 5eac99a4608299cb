package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// test"), 0o644))
}

func TestFilesAddsExtension(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.js"))

	files, err := Files([]string{filepath.Join(tmpDir, "a")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "a.js")}, files)
}

func TestFilesDirectoryExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "dir", "a.js"))
	writeFile(t, filepath.Join(tmpDir, "dir", "sub", "b.js"))
	writeFile(t, filepath.Join(tmpDir, "dir", "sub", "c.txt"))

	files, err := Files([]string{filepath.Join(tmpDir, "dir")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "dir", "a.js"),
		filepath.Join(tmpDir, "dir", "sub", "b.js"),
	}, files)
}

func TestFilesRecursesDirectoryWithSiblingFileName(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "dir", "a", "inner.js"))
	writeFile(t, filepath.Join(tmpDir, "dir", "a.js"))

	files, err := Files([]string{filepath.Join(tmpDir, "dir")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "dir", "a", "inner.js"),
		filepath.Join(tmpDir, "dir", "a.js"),
	}, files)
}

func TestFilesMissingPath(t *testing.T) {
	_, err := Files([]string{"does-not-exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFilesDeduplicates(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.js")
	writeFile(t, path)

	files, err := Files([]string{path, filepath.Join(tmpDir, "a"), path})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFilesIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "dir", "a.js"))
	writeFile(t, filepath.Join(tmpDir, "dir", "b.js"))

	first, err := Files([]string{filepath.Join(tmpDir, "dir")})
	require.NoError(t, err)

	second, err := Files(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilesKeepsExplicitNonTestFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "helper.mjs")
	writeFile(t, path)

	files, err := Files([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}
