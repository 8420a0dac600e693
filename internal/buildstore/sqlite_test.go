package buildstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func build(id string, status Status, started time.Time) Build {
	return Build{
		ID:         id,
		Source:     "/srv/site",
		Deploy:     "/srv/site/_deploy",
		Status:     status,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Posts:      2,
		Pages:      1,
		Static:     3,
	}
}

func TestRecordAndListBuilds(t *testing.T) {
	store := openMemory(t)
	ctx := t.Context()
	t0 := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordBuild(ctx, build("b1", StatusSuccess, t0), []Output{
		{Path: "index.html", Source: "index.html_", Kind: "page", Fingerprint: "aaa"},
		{Path: "2024/03/05/hello/index.html", Source: "_posts/2024-03-05-hello.md", Kind: "post", Fingerprint: "bbb"},
	}))
	failed := build("b2", StatusFailed, t0.Add(time.Hour))
	failed.Error = "[template] failed to parse template"
	require.NoError(t, store.RecordBuild(ctx, failed, nil))

	builds, err := store.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "b2", builds[0].ID, "newest first")
	assert.Equal(t, StatusFailed, builds[0].Status)
	assert.Equal(t, failed.Error, builds[0].Error)
	assert.Equal(t, "", builds[1].Error)
	assert.Equal(t, 1500*time.Millisecond, builds[1].Duration())
	assert.True(t, builds[1].StartedAt.Equal(t0))

	limited, err := store.ListBuilds(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	outputs, err := store.Outputs(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "2024/03/05/hello/index.html", outputs[0].Path, "ordered by path")
}

func TestLastFingerprints_UsesLatestSuccessfulBuild(t *testing.T) {
	store := openMemory(t)
	ctx := t.Context()
	t0 := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	fps, err := store.LastFingerprints(ctx, "/srv/site")
	require.NoError(t, err)
	assert.Empty(t, fps)

	require.NoError(t, store.RecordBuild(ctx, build("old", StatusSuccess, t0), []Output{{Path: "a", Source: "a", Kind: "static", Fingerprint: "1"}}))
	require.NoError(t, store.RecordBuild(ctx, build("new", StatusSuccess, t0.Add(time.Minute)), []Output{{Path: "a", Source: "a", Kind: "static", Fingerprint: "2"}}))
	require.NoError(t, store.RecordBuild(ctx, build("broken", StatusFailed, t0.Add(2*time.Minute)), []Output{{Path: "a", Source: "a", Kind: "static", Fingerprint: "3"}}))

	fps, err = store.LastFingerprints(ctx, "/srv/site")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2"}, fps)
}

func TestRecordBuild_DuplicateIDRollsBack(t *testing.T) {
	store := openMemory(t)
	ctx := t.Context()
	b := build("dup", StatusSuccess, time.Now())

	require.NoError(t, store.RecordBuild(ctx, b, nil))
	require.Error(t, store.RecordBuild(ctx, b, []Output{{Path: "x", Source: "x", Kind: "static", Fingerprint: "f"}}))

	outputs, err := store.Outputs(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestOpen_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordBuild(t.Context(), build("b1", StatusSuccess, time.Now()), nil))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	builds, err := reopened.ListBuilds(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, builds, 1)
}

var _ Store = (*SQLiteStore)(nil)
