package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/ignore"
	"github.com/pushwork/pushwork/internal/repo/memrepo"
	"github.com/pushwork/pushwork/internal/vfs"
)

func newTestDetector(root string) *Detector {
	matcher := ignore.New(root, nil, nil)
	return New(vfs.NewOS(), memrepo.New(), matcher, Options{})
}

func TestLocalPassFindsNewFileAsLocalOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("hi"), 0o644))

	det := newTestDetector(root)
	snap := docmodel.NewSyncSnapshot(root)

	result, err := det.Detect(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	require.Equal(t, "new.txt", result.Changes[0].Path)
	require.Equal(t, LocalOnly, result.Changes[0].ChangeType)
	require.True(t, result.Changes[0].HasLocal())
}

func TestDetectIsEmptyWhenNothingChanged(t *testing.T) {
	root := t.TempDir()
	det := newTestDetector(root)
	snap := docmodel.NewSyncSnapshot(root)

	result, err := det.Detect(context.Background(), snap)
	require.NoError(t, err)
	require.Empty(t, result.Changes)
}

func TestLocalPassIgnoresExcludedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg.json"), []byte("{}"), 0o644))

	det := newTestDetector(root)
	snap := docmodel.NewSyncSnapshot(root)

	result, err := det.Detect(context.Background(), snap)
	require.NoError(t, err)
	require.Empty(t, result.Changes)
}
