package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pushwork/pushwork/internal/detect"
	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/ignore"
	"github.com/pushwork/pushwork/internal/repo/memrepo"
	"github.com/pushwork/pushwork/internal/vfs"
)

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	matcher := ignore.New(root, nil, nil)
	return New(root, vfs.NewOS(), memrepo.New(), matcher, Options{})
}

func newTestEngineWithArtifacts(t *testing.T, root string, artifactDirs []string) *Engine {
	t.Helper()
	matcher := ignore.New(root, nil, artifactDirs)
	return New(root, vfs.NewOS(), memrepo.New(), matcher, Options{})
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSyncCreatesRemoteDocumentsForNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "hello.txt", "hello world")

	eng := newTestEngine(t, root)
	ctx := context.Background()

	result, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.FilesChanged)

	status, err := eng.GetStatus(ctx)
	require.NoError(t, err)
	require.Contains(t, status.Snapshot.Files, "hello.txt")
	require.False(t, status.HasChanges)
}

func TestSyncIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "content a")

	eng := newTestEngine(t, root)
	ctx := context.Background()

	first, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.True(t, second.Success)
	require.Zero(t, second.FilesChanged)
	require.Zero(t, second.DirectoriesChanged)
}

func TestSyncPullsRemoteOnlyFileToDisk(t *testing.T) {
	root := t.TempDir()
	eng := newTestEngine(t, root)
	ctx := context.Background()

	// First sync establishes the root document with nothing local.
	_, err := eng.Sync(ctx)
	require.NoError(t, err)

	status, err := eng.GetStatus(ctx)
	require.NoError(t, err)
	rootHandle, err := eng.repo.FindDir(ctx, status.Snapshot.RootDirectoryURL)
	require.NoError(t, err)

	doc := docmodel.NewFileDocument("remote.txt", ".txt", "text/plain", 0o644)
	doc.SetContent(docmodel.ContentText, []byte("from the other peer"))
	fileHandle, err := eng.repo.CreateFile(doc)
	require.NoError(t, err)

	// Attach the new file under root directly through the repo so the
	// detector discovers it as remote-only on the next pass.
	require.NoError(t, rootHandle.Change(func(d *docmodel.DirectoryDocument) {
		d.Upsert(docmodel.DirEntry{Name: "remote.txt", Type: docmodel.EntryFile, URL: fileHandle.URL()})
	}))

	result, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.FilesChanged)

	data, err := os.ReadFile(filepath.Join(root, "remote.txt"))
	require.NoError(t, err)
	require.Equal(t, "from the other peer", string(data))
}

func TestArtifactDirectoryEntryCarriesVersionedURL(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/weights.bin", "v1")

	eng := newTestEngineWithArtifacts(t, root, []string{"models"})
	ctx := context.Background()

	result, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)

	status, err := eng.GetStatus(ctx)
	require.NoError(t, err)
	entry := status.Snapshot.Files["models/weights.bin"]
	require.True(t, docurl.HasHeads(entry.URL), "artifact entry URL should be versioned: %q", entry.URL)
	require.Equal(t, entry.Head, docurl.Parse(entry.URL).Heads)
}

func TestArtifactUpdateReplacesDocumentRatherThanEditingInPlace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/weights.bin", "v1")

	eng := newTestEngineWithArtifacts(t, root, []string{"models"})
	ctx := context.Background()

	_, err := eng.Sync(ctx)
	require.NoError(t, err)
	status, err := eng.GetStatus(ctx)
	require.NoError(t, err)
	firstURL := status.Snapshot.Files["models/weights.bin"].URL

	writeFile(t, root, "models/weights.bin", "v2")
	result, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.FilesChanged)

	status, err = eng.GetStatus(ctx)
	require.NoError(t, err)
	secondURL := status.Snapshot.Files["models/weights.bin"].URL
	require.NotEqual(t, docurl.Plain(firstURL), docurl.Plain(secondURL), "artifact update should create a brand-new document")

	data, err := os.ReadFile(filepath.Join(root, "models", "weights.bin"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))
}

func TestPullMaterializesBothChangedContentAsWarningNotError(t *testing.T) {
	root := t.TempDir()
	eng := newTestEngine(t, root)
	ctx := context.Background()

	snap := docmodel.NewSyncSnapshot(root)
	change := detect.DetectedChange{
		Path:          "shared.txt",
		ChangeType:    detect.BothChanged,
		FileType:      detect.TypeFile,
		LocalContent:  []byte("local edit"),
		RemoteContent: []byte("converged content"),
		RemoteHead:    "h2",
	}

	out := eng.pull(ctx, snap, []detect.DetectedChange{change})
	require.Empty(t, out.errors, "BOTH_CHANGED must not surface as an error")
	require.NotEmpty(t, out.warnings, "BOTH_CHANGED should still surface as a warning")
	require.Equal(t, 1, out.filesChanged)

	data, err := os.ReadFile(filepath.Join(root, "shared.txt"))
	require.NoError(t, err)
	require.Equal(t, "converged content", string(data))

	entry := snap.Files["shared.txt"]
	require.Equal(t, "h2", entry.Head)
}

func TestCommitLocalPushesWithoutNetworkBarrier(t *testing.T) {
	root := t.TempDir()
	eng := newTestEngine(t, root)
	ctx := context.Background()

	writeFile(t, root, "only.txt", "v1")
	result, err := eng.CommitLocal(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.FilesChanged)
}
