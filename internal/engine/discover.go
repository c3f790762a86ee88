package engine

import (
	"context"
	"fmt"

	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/repo"
)

// ensureDirectoryDocument returns the directory document handle for
// path, creating it and every missing ancestor up to root along the way
// (spec §4.4.8). Root itself ("") resolves to snap.RootDirectoryURL,
// which InitRoot, Sync and CommitLocal create when the snapshot has none;
// it is recorded in snap.Directories on first use.
func (e *Engine) ensureDirectoryDocument(ctx context.Context, snap *docmodel.SyncSnapshot, path string) (repo.DirHandle, error) {
	path = docurl.NormPath(path)

	if entry, ok := snap.Directories[path]; ok {
		handle, err := e.repo.FindDir(ctx, entry.URL)
		if err == nil {
			return handle, nil
		}
		// stale snapshot entry; fall through and recreate
	}

	if path == "" {
		if snap.RootDirectoryURL == "" {
			return nil, fmt.Errorf("engine: snapshot has no root directory URL")
		}
		handle, err := e.repo.FindDir(ctx, snap.RootDirectoryURL)
		if err != nil {
			return nil, fmt.Errorf("engine: find root directory document: %w", err)
		}
		snap.UpsertDir(docmodel.SnapshotDirectoryEntry{Path: "", URL: snap.RootDirectoryURL, Head: string(handle.Heads())})
		return handle, nil
	}

	parentPath := docurl.Dir(path)
	parentHandle, err := e.ensureDirectoryDocument(ctx, snap, parentPath)
	if err != nil {
		return nil, err
	}

	// The existing-entry probe below runs before the write transaction,
	// not re-checked inside it (spec §4.4.8 calls for the latter). The
	// engine drives one sync round at a time against a single repo
	// handle, so no concurrent insert can land between the probe and
	// the Change call; revisit if that assumption changes.
	name := docurl.Base(path)
	if parentDoc, ok := parentHandle.Doc(); ok {
		if existing, found := parentDoc.Find(name, docmodel.EntryFolder); found {
			childHandle, err := e.repo.FindDir(ctx, existing.URL)
			if err == nil {
				snap.UpsertDir(docmodel.SnapshotDirectoryEntry{Path: path, URL: existing.URL, Head: string(childHandle.Heads())})
				return childHandle, nil
			}
		}
	}

	childHandle, err := e.repo.CreateDir(docmodel.NewDirectoryDocument(name))
	if err != nil {
		return nil, fmt.Errorf("engine: create directory document for %q: %w", path, err)
	}
	if err := parentHandle.Change(func(doc *docmodel.DirectoryDocument) {
		doc.Upsert(docmodel.DirEntry{Name: name, Type: docmodel.EntryFolder, URL: childHandle.URL()})
	}); err != nil {
		return nil, fmt.Errorf("engine: attach directory %q to parent: %w", path, err)
	}

	snap.UpsertDir(docmodel.SnapshotDirectoryEntry{Path: path, URL: childHandle.URL(), Head: string(childHandle.Heads())})
	return childHandle, nil
}

// findOrCreateRoot ensures the root directory document exists, creating
// one and recording it in the snapshot if absent.
func (e *Engine) findOrCreateRoot(ctx context.Context, snap *docmodel.SyncSnapshot) (repo.DirHandle, error) {
	if entry, ok := snap.Directories[""]; ok {
		handle, err := e.repo.FindDir(ctx, entry.URL)
		if err == nil {
			return handle, nil
		}
	}
	handle, err := e.repo.CreateDir(docmodel.NewDirectoryDocument(""))
	if err != nil {
		return nil, fmt.Errorf("engine: create root directory document: %w", err)
	}
	snap.RootDirectoryURL = handle.URL()
	snap.UpsertDir(docmodel.SnapshotDirectoryEntry{Path: "", URL: handle.URL(), Head: string(handle.Heads())})
	return handle, nil
}
