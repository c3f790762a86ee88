// Push phase: apply locally-detected changes into the CRDT document
// graph one file at a time, deepest paths first; each file's parent
// directory chain is created on demand by ensureDirectoryDocument
// (spec §4.4.3).
//
// Grounded on internal/client/sync/sync_engine_priority_upload.go and
// sync_engine_upload.go's per-batch worker-pool upload loop.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/pushwork/pushwork/internal/detect"
	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/mime"
	"github.com/pushwork/pushwork/internal/move"
	"github.com/pushwork/pushwork/internal/repo"
)

type pushOutcome struct {
	filesChanged   int
	dirsChanged    int
	errors         []ChangeError
	touchedHandles []repo.FileHandle
}

func (e *Engine) push(ctx context.Context, snap *docmodel.SyncSnapshot, changes []detect.DetectedChange, candidates []move.Candidate) pushOutcome {
	var out pushOutcome

	moveOut := e.applyMoves(ctx, snap, candidates)
	out.filesChanged += moveOut.filesChanged
	out.errors = append(out.errors, moveOut.errors...)
	out.touchedHandles = append(out.touchedHandles, moveOut.touchedHandles...)

	var local []detect.DetectedChange
	for _, c := range changes {
		if c.FileType != detect.TypeFile {
			continue
		}
		if c.ChangeType == detect.LocalOnly || (c.ChangeType == detect.BothChanged && c.HasLocal()) {
			local = append(local, c)
		}
	}

	// leaf-first: deepest paths pushed first so creating a nested file's
	// parent directory chain happens exactly once per distinct ancestor.
	sort.SliceStable(local, func(i, j int) bool {
		di, dj := docurl.Depth(local[i].Path), docurl.Depth(local[j].Path)
		if di != dj {
			return di > dj
		}
		return local[i].Path < local[j].Path
	})

	for _, c := range local {
		var err error
		var handle repo.FileHandle
		switch {
		case !c.HasLocal():
			err = e.pushDelete(ctx, snap, c.Path)
		default:
			if _, tracked := snap.Files[c.Path]; tracked {
				handle, err = e.pushUpdate(ctx, snap, c)
			} else {
				handle, err = e.pushCreate(ctx, snap, c)
			}
		}
		if err != nil {
			out.errors = append(out.errors, ChangeError{Path: c.Path, Operation: "push", Err: err, Recoverable: true})
			continue
		}
		out.filesChanged++
		if handle != nil {
			out.touchedHandles = append(out.touchedHandles, handle)
		}
	}

	return out
}

func (e *Engine) pushCreate(ctx context.Context, snap *docmodel.SyncSnapshot, c detect.DetectedChange) (repo.FileHandle, error) {
	name := docurl.Base(c.Path)
	ext := mime.Extension(c.Path)
	mt := mime.DetectType(c.Path)

	doc := docmodel.NewFileDocument(name, ext, mt, 0o644)
	isArtifact := e.ignore.IsArtifact(c.Path)
	switch {
	case mime.IsBinary(c.LocalContent):
		doc.SetContent(docmodel.ContentBytes, c.LocalContent)
	case isArtifact:
		doc.SetContent(docmodel.ContentImmutableText, c.LocalContent)
	default:
		doc.SetContent(docmodel.ContentText, c.LocalContent)
	}

	handle, err := e.repo.CreateFile(doc)
	if err != nil {
		return nil, fmt.Errorf("create file document: %w", err)
	}

	// spec §4.4.7: an artifact's directory entry pins the document's
	// current heads so a later listing resolves the exact version that
	// was attached, not whatever the document drifts to afterward.
	entryURL := handle.URL()
	if isArtifact {
		entryURL = docurl.WithHeads(handle.URL(), string(handle.Heads()))
	}

	parentHandle, err := e.ensureDirectoryDocument(ctx, snap, docurl.Dir(c.Path))
	if err != nil {
		return nil, fmt.Errorf("ensure parent directory: %w", err)
	}
	if err := parentHandle.Change(func(d *docmodel.DirectoryDocument) {
		d.Upsert(docmodel.DirEntry{Name: name, Type: docmodel.EntryFile, URL: entryURL})
	}); err != nil {
		return nil, fmt.Errorf("attach file to parent directory: %w", err)
	}

	snap.UpsertFile(docmodel.SnapshotFileEntry{
		Path: c.Path, URL: entryURL, Head: string(handle.Heads()),
		Extension: ext, MimeType: mt, ContentHash: contentHash(c.LocalContent),
	})
	return handle, nil
}

func (e *Engine) pushUpdate(ctx context.Context, snap *docmodel.SyncSnapshot, c detect.DetectedChange) (repo.FileHandle, error) {
	entry := snap.Files[c.Path]
	handle, err := e.repo.FindFile(ctx, docurl.Plain(entry.URL))
	if err != nil {
		return nil, fmt.Errorf("find file document: %w", err)
	}

	isArtifact := e.ignore.IsArtifact(c.Path)
	oldDoc, _ := handle.Doc()
	immutable := oldDoc != nil && oldDoc.ContentKind != docmodel.ContentText

	// spec §4.4.3/§4.4.7: artifacts and anything already stored as an
	// immutable snapshot are replaced wholesale, never spliced in
	// place, so the parent entry always names the exact version that
	// matches what's on disk.
	if isArtifact || immutable || mime.IsBinary(c.LocalContent) {
		name := docurl.Base(c.Path)
		ext, mt := entry.Extension, entry.MimeType
		var perm uint32 = 0o644
		if oldDoc != nil {
			if oldDoc.Extension != "" {
				ext = oldDoc.Extension
			}
			if oldDoc.MimeType != "" {
				mt = oldDoc.MimeType
			}
			perm = oldDoc.Permissions
		}

		replacement := docmodel.NewFileDocument(name, ext, mt, perm)
		switch {
		case mime.IsBinary(c.LocalContent):
			replacement.SetContent(docmodel.ContentBytes, c.LocalContent)
		case isArtifact:
			replacement.SetContent(docmodel.ContentImmutableText, c.LocalContent)
		default:
			replacement.SetContent(docmodel.ContentBytes, c.LocalContent)
		}

		newHandle, err := e.repo.CreateFile(replacement)
		if err != nil {
			return nil, fmt.Errorf("create replacement file document: %w", err)
		}

		entryURL := newHandle.URL()
		if isArtifact {
			entryURL = docurl.WithHeads(newHandle.URL(), string(newHandle.Heads()))
		}

		parentHandle, err := e.ensureDirectoryDocument(ctx, snap, docurl.Dir(c.Path))
		if err != nil {
			return nil, fmt.Errorf("find parent directory: %w", err)
		}
		if err := parentHandle.Change(func(d *docmodel.DirectoryDocument) {
			d.Upsert(docmodel.DirEntry{Name: name, Type: docmodel.EntryFile, URL: entryURL})
		}); err != nil {
			return nil, fmt.Errorf("repoint parent directory entry: %w", err)
		}

		entry.URL = entryURL
		entry.Head = string(newHandle.Heads())
		entry.ContentHash = contentHash(c.LocalContent)
		snap.UpsertFile(entry)
		return newHandle, nil
	}

	err = handle.ChangeAt(repo.Heads(entry.Head), func(doc *docmodel.FileDocument) {
		old := string(doc.Content())
		applyTextPolicy(doc, old, string(c.LocalContent))
	})
	if err != nil {
		return nil, fmt.Errorf("apply update: %w", err)
	}

	entry.Head = string(handle.Heads())
	entry.ContentHash = contentHash(c.LocalContent)
	snap.UpsertFile(entry)
	return handle, nil
}

func (e *Engine) pushDelete(ctx context.Context, snap *docmodel.SyncSnapshot, path string) error {
	entry, ok := snap.Files[path]
	if !ok {
		return nil
	}
	parentHandle, err := e.ensureDirectoryDocument(ctx, snap, docurl.Dir(path))
	if err != nil {
		return fmt.Errorf("find parent directory: %w", err)
	}
	name := docurl.Base(path)
	if err := parentHandle.Change(func(d *docmodel.DirectoryDocument) {
		d.Remove(name, docmodel.EntryFile)
	}); err != nil {
		return fmt.Errorf("detach file from parent directory: %w", err)
	}
	_ = entry
	snap.RemoveFile(path)
	return nil
}
