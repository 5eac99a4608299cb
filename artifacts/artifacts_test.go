package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareAndCleanup(t *testing.T) {
	a, err := Prepare("", []byte("// adapter"), log.New())
	require.NoError(t, err)

	data, err := os.ReadFile(a.AdapterPath)
	require.NoError(t, err)
	assert.Equal(t, "// adapter", string(data))
	assert.Equal(t, filepath.Join(a.Dir, AdapterFilename), a.AdapterPath)

	a.Cleanup()
	_, err = os.Stat(a.Dir)
	assert.True(t, os.IsNotExist(err), "build directory should be removed")
}

func TestPrepareExplicitDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")
	a, err := Prepare(dir, []byte("// adapter"), log.New())
	require.NoError(t, err)
	assert.Equal(t, dir, a.Dir)
	a.Cleanup()
}

func TestPrepareUnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permission bits")
	}
	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o555))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })

	_, err := Prepare(filepath.Join(parent, "build"), []byte("x"), log.New())
	require.Error(t, err)
}

func TestCleanupIdempotent(t *testing.T) {
	a, err := Prepare("", []byte("x"), log.New())
	require.NoError(t, err)

	a.Cleanup()
	a.Cleanup() // second call is a no-op

	var nilArtifacts *Artifacts
	nilArtifacts.Cleanup() // nil receiver is safe
}
