package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	return store
}

func TestNewStoreCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "snapshots")

	_, err := NewStore(root)
	require.NoError(t, err)

	for _, dir := range []string{root, filepath.Join(root, "current"), filepath.Join(root, "diff")} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on an existing layout.
	_, err = NewStore(root)
	assert.NoError(t, err)
}

func TestStorePaths(t *testing.T) {
	store := newTestStore(t)
	id := Identity{Owner: "Card", Variant: "default", ViewportLabel: "800x600"}

	paths := store.Paths(id)

	assert.Equal(t, filepath.Join(store.Root(), "Card--default--800x600.png"), paths.Baseline)
	assert.Equal(t, filepath.Join(store.Root(), "current", "Card--default--800x600.png"), paths.Current)
	assert.Equal(t, filepath.Join(store.Root(), "diff", "Card--default--800x600.png"), paths.Diff)
}

func TestWriteCurrentAndPromote(t *testing.T) {
	store := newTestStore(t)
	id := Identity{Owner: "Btn", Variant: "hover", ViewportLabel: "desktop"}

	assert.False(t, store.BaselineExists(id))
	assert.False(t, store.CurrentExists(id))

	data := []byte("png-bytes")
	require.NoError(t, store.WriteCurrent(id, data))
	assert.True(t, store.CurrentExists(id))

	require.NoError(t, store.PromoteCurrent(id))
	assert.True(t, store.BaselineExists(id))

	got, err := os.ReadFile(store.Paths(id).Baseline)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestListBaselinesSkipsForeignFiles(t *testing.T) {
	store := newTestStore(t)

	a := Identity{Owner: "A", Variant: "v", ViewportLabel: "desktop"}
	b := Identity{Owner: "B", Variant: "v", ViewportLabel: "mobile"}
	for _, id := range []Identity{b, a} {
		require.NoError(t, os.WriteFile(store.Paths(id).Baseline, []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "report.json"), []byte("{}"), 0644))

	ids, err := store.ListBaselines()
	require.NoError(t, err)

	assert.Equal(t, []Identity{a, b}, ids)
}

func TestRemoveBaselineRemovesCompanions(t *testing.T) {
	store := newTestStore(t)
	id := Identity{Owner: "Btn", Variant: "old", ViewportLabel: "desktop"}
	paths := store.Paths(id)

	require.NoError(t, os.WriteFile(paths.Baseline, []byte("b"), 0644))
	require.NoError(t, os.WriteFile(paths.Current, []byte("c"), 0644))
	require.NoError(t, os.WriteFile(paths.Diff, []byte("d"), 0644))

	require.NoError(t, store.RemoveBaseline(id))

	for _, p := range []string{paths.Baseline, paths.Current, paths.Diff} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "expected %s to be gone", p)
	}
}

func TestRemoveDiffMissingIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	id := Identity{Owner: "Btn", Variant: "x", ViewportLabel: "desktop"}

	assert.NoError(t, store.RemoveDiff(id))
}
