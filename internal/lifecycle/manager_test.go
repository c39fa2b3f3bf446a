package lifecycle

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/snapshot"
)

var desktop = snapshot.Viewport{Width: 1280, Height: 720, Name: "desktop"}

func newTestManager(t *testing.T) (*Manager, *snapshot.Store) {
	t.Helper()
	store, err := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	return NewManager(store, nil), store
}

// seed writes a baseline and current image pair for id.
func seed(t *testing.T, store *snapshot.Store, id snapshot.Identity, baseline, current string) {
	t.Helper()
	require.NoError(t, os.WriteFile(store.Paths(id).Baseline, []byte(baseline), 0644))
	require.NoError(t, store.WriteCurrent(id, []byte(current)))
}

func fileHash(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}

func failedResult(id snapshot.Identity) snapshot.Result {
	return snapshot.Result{Identity: id, Status: snapshot.StatusFailed}
}

func TestUpdatePromotesEverythingWithACurrent(t *testing.T) {
	m, store := newTestManager(t)

	passed := snapshot.NewIdentity("Btn", "default", desktop)
	failed := snapshot.NewIdentity("Btn", "hover", desktop)
	seed(t, store, passed, "old-a", "new-a")
	seed(t, store, failed, "old-b", "new-b")

	results := []snapshot.Result{
		{Identity: passed, Status: snapshot.StatusPassed},
		{Identity: failed, Status: snapshot.StatusFailed},
	}

	count, err := m.Update(results)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := os.ReadFile(store.Paths(passed).Baseline)
	require.NoError(t, err)
	assert.Equal(t, "new-a", string(got))
	got, err = os.ReadFile(store.Paths(failed).Baseline)
	require.NoError(t, err)
	assert.Equal(t, "new-b", string(got))
}

func TestUpdateSkipsResultsWithoutCurrent(t *testing.T) {
	m, store := newTestManager(t)

	id := snapshot.NewIdentity("Btn", "default", desktop)
	require.NoError(t, os.WriteFile(store.Paths(id).Baseline, []byte("old"), 0644))

	count, err := m.Update([]snapshot.Result{{Identity: id, Status: snapshot.StatusError}})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := os.ReadFile(store.Paths(id).Baseline)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestApproveScopedByPattern(t *testing.T) {
	m, store := newTestManager(t)

	def := snapshot.NewIdentity("Btn", "default", desktop)
	hover := snapshot.NewIdentity("Btn", "hover", desktop)
	seed(t, store, def, "old-default", "new-default")
	seed(t, store, hover, "old-hover", "new-hover")

	hoverBefore := fileHash(t, store.Paths(hover).Baseline)

	count, err := m.Approve([]snapshot.Result{failedResult(def), failedResult(hover)}, "*/default")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := os.ReadFile(store.Paths(def).Baseline)
	require.NoError(t, err)
	assert.Equal(t, "new-default", string(got))

	assert.Equal(t, hoverBefore, fileHash(t, store.Paths(hover).Baseline),
		"out-of-pattern baseline must be untouched")
}

func TestApproveEmptyPatternApprovesAllFailed(t *testing.T) {
	m, store := newTestManager(t)

	def := snapshot.NewIdentity("Btn", "default", desktop)
	hover := snapshot.NewIdentity("Btn", "hover", desktop)
	seed(t, store, def, "old-a", "new-a")
	seed(t, store, hover, "old-b", "new-b")

	count, err := m.Approve([]snapshot.Result{failedResult(def), failedResult(hover)}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestApproveNeverTouchesNonFailedResults(t *testing.T) {
	m, store := newTestManager(t)

	passed := snapshot.NewIdentity("Btn", "default", desktop)
	errored := snapshot.NewIdentity("Btn", "broken", desktop)
	seed(t, store, passed, "old-a", "new-a")
	seed(t, store, errored, "old-b", "half-written-garbage")

	results := []snapshot.Result{
		{Identity: passed, Status: snapshot.StatusPassed},
		{Identity: errored, Status: snapshot.StatusError},
	}

	count, err := m.Approve(results, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := os.ReadFile(store.Paths(errored).Baseline)
	require.NoError(t, err)
	assert.Equal(t, "old-b", string(got), "an errored capture must never be promoted")
}

func TestCleanOrphans(t *testing.T) {
	m, store := newTestManager(t)

	declared := snapshot.NewIdentity("Btn", "default", desktop)
	skipped := snapshot.NewIdentity("Modal", "open", desktop)
	orphan := snapshot.NewIdentity("Old", "variant", desktop)
	for _, id := range []snapshot.Identity{declared, skipped, orphan} {
		require.NoError(t, os.WriteFile(store.Paths(id).Baseline, []byte("x"), 0644))
	}

	variants := []registry.Variant{
		{Owner: "Btn", Name: "default"},
		{Owner: "Modal", Name: "open", Skip: true},
	}

	deleted, err := m.CleanOrphans(variants, []snapshot.Viewport{desktop})
	require.NoError(t, err)

	assert.Equal(t, []snapshot.Identity{orphan}, deleted)
	assert.True(t, store.BaselineExists(declared))
	assert.True(t, store.BaselineExists(skipped), "a skipped variant's baseline is still declared")
	assert.False(t, store.BaselineExists(orphan))
}
