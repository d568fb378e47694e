package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func pollUntil(t *testing.T, w *Watcher, want string) bool {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		gone, errs := w.Poll()
		require.Empty(t, errs)

		for _, name := range gone {
			if name == want {
				return true
			}
		}

		time.Sleep(10 * time.Millisecond)
	}

	return false
}

func TestWatcherReportsRemovedFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log.20210506")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))

	w, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	assert.True(t, pollUntil(t, w, path), "removal of %s not reported", path)

	require.NoError(t, w.Close())
}

func TestWatcherReportsRenamedFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log.20210506")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))

	w, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.Rename(path, path+".1"))
	assert.True(t, pollUntil(t, w, path), "rename of %s not reported", path)

	require.NoError(t, w.Close())
}

func TestWatcherIgnoresWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new"), []byte("x\n"), 0644))
	time.Sleep(50 * time.Millisecond)

	gone, errs := w.Poll()
	assert.Empty(t, gone)
	assert.Empty(t, errs)

	require.NoError(t, w.Close())
}

func TestWatcherMissingDir(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
