package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch <-chan struct{}) func() bool {
	return func() bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
}

func TestWatcherSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0644))

	w, err := New(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("void main() { }"), 0644))
	assert.Eventually(t, received(w.Changes()), 2*time.Second, 10*time.Millisecond)
}

func TestWatcherSignalsOnReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	w, err := New(path)
	require.NoError(t, err)
	defer w.Close()

	tmp := filepath.Join(dir, ".shader.frag.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("b"), 0644))
	require.NoError(t, os.Rename(tmp, path))
	assert.Eventually(t, received(w.Changes()), 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	w, err := New(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.frag"), []byte("b"), 0644))
	assert.Never(t, received(w.Changes()), 200*time.Millisecond, 10*time.Millisecond)
}

func TestWatcherClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	w, err := New(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Path()))
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "shader.frag"))
	assert.Error(t, err)
}
