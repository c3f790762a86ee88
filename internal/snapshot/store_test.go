package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pushwork/pushwork/internal/docmodel"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	require.NoError(t, store.Lock())
	defer store.Unlock()

	snap := store.CreateEmpty()
	snap.RootDirectoryURL = "pushwork://root"
	snap.UpsertFile(docmodel.SnapshotFileEntry{Path: "a.txt", URL: "pushwork://a", Head: "h1"})
	snap.UpsertDir(docmodel.SnapshotDirectoryEntry{Path: "", URL: "pushwork://root"})

	require.NoError(t, store.Save(snap))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "pushwork://root", loaded.RootDirectoryURL)
	require.Equal(t, "h1", loaded.Files["a.txt"].Head)
	require.Contains(t, loaded.Directories, "")
}

func TestStoreLoadMissingIsNilNotError(t *testing.T) {
	store := New(t.TempDir())
	snap, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestStoreLockExclusive(t *testing.T) {
	root := t.TempDir()
	a := New(root)
	b := New(root)

	require.NoError(t, a.Lock())
	defer a.Unlock()

	err := b.Lock()
	require.ErrorIs(t, err, ErrLocked)
}
