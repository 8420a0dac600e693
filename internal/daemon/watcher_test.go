package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root, deployDir string) *atomic.Int32 {
	t.Helper()
	var builds atomic.Int32
	r := startRunner(t, func(context.Context) error {
		builds.Add(1)
		return nil
	})
	w, err := NewWatcher(WatcherOptions{
		Root:        root,
		DeployDir:   deployDir,
		Runner:      r,
		QuietWindow: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &builds
}

func TestWatcher_DebouncesBurstIntoOneRebuild(t *testing.T) {
	root := t.TempDir()
	builds := startWatcher(t, root, filepath.Join(root, "_deploy"))

	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "index.html_"), []byte{byte('a' + i)}, 0o644))
	}
	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())
}

func TestWatcher_IgnoresDeployAndHiddenFiles(t *testing.T) {
	root := t.TempDir()
	deployDir := filepath.Join(root, "_deploy")
	require.NoError(t, os.MkdirAll(deployDir, 0o755))
	builds := startWatcher(t, root, deployDir)

	require.NoError(t, os.WriteFile(filepath.Join(deployDir, "index.html"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html.swp"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), builds.Load())
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	builds := startWatcher(t, root, "")

	nested := filepath.Join(root, "_posts")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(nested, "2024-03-05-hello.md"), []byte("Hi"), 0o644))
	require.Eventually(t, func() bool { return builds.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Ignored(t *testing.T) {
	root := t.TempDir()
	r, err := NewRunner(func(context.Context) error { return nil })
	require.NoError(t, err)
	w, err := NewWatcher(WatcherOptions{Root: root, DeployDir: filepath.Join(root, "out"), Runner: r})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	assert.True(t, w.ignored(filepath.Join(root, "out")))
	assert.True(t, w.ignored(filepath.Join(root, "out", "a.html")))
	assert.False(t, w.ignored(filepath.Join(root, "outline.md")))
	assert.True(t, w.ignored(filepath.Join(root, ".git", "HEAD")))
	assert.True(t, w.ignored(filepath.Join(root, "notes.md~")))
	assert.True(t, w.ignored(filepath.Join(root, "#draft.md#")))
	assert.False(t, w.ignored(filepath.Join(root, "_posts", "2024-01-01-a.md")))
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(WatcherOptions{})
	require.Error(t, err)
	_, err = NewWatcher(WatcherOptions{Root: t.TempDir()})
	require.Error(t, err)
}
