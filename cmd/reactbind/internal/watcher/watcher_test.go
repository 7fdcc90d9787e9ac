package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0o644))

	w, err := New([]string{path}, 50*time.Millisecond)
	require.NoError(t, err)
	ch, err := w.Start()
	require.NoError(t, err)
	defer func() { require.NoError(t, w.Stop()) }()

	for i := range 3 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case changed := <-ch:
		require.Equal(t, []string{path}, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	select {
	case extra := <-ch:
		t.Fatalf("unexpected second notification: %v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := New([]string{path}, time.Millisecond)
	require.NoError(t, err)

	require.True(t, w.isRelevantEvent(fsnotify.Event{Name: path, Op: fsnotify.Write}))
	require.False(t, w.isRelevantEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod}))
	require.False(t, w.isRelevantEvent(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write}))
	require.NoError(t, w.fsWatcher.Close())
}
