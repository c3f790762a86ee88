package engine

import (
	"context"
	"fmt"

	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/move"
)

// applyMoves re-parents a file document's directory entry from its old
// path to its new one, preserving the document's URL and history (spec
// §4.4.5: "a move reattaches the same document under a new name/parent
// rather than creating a new one"). When the move also changed content,
// the new content is pushed in the same step.
func (e *Engine) applyMoves(ctx context.Context, snap *docmodel.SyncSnapshot, candidates []move.Candidate) pushOutcome {
	var out pushOutcome
	for _, cand := range candidates {
		if err := e.applyOneMove(ctx, snap, cand); err != nil {
			out.errors = append(out.errors, ChangeError{Path: cand.FromPath, Operation: "move", Err: err, Recoverable: true})
			continue
		}
		out.filesChanged++
		if entry, ok := snap.Files[cand.ToPath]; ok {
			if handle, err := e.repo.FindFile(ctx, docurl.Plain(entry.URL)); err == nil {
				out.touchedHandles = append(out.touchedHandles, handle)
			}
		}
	}
	return out
}

func (e *Engine) applyOneMove(ctx context.Context, snap *docmodel.SyncSnapshot, cand move.Candidate) error {
	entry, ok := snap.Files[cand.FromPath]
	if !ok {
		return fmt.Errorf("move source %q not tracked", cand.FromPath)
	}
	handle, err := e.repo.FindFile(ctx, docurl.Plain(entry.URL))
	if err != nil {
		return fmt.Errorf("find moved document: %w", err)
	}

	oldParent, err := e.ensureDirectoryDocument(ctx, snap, docurl.Dir(cand.FromPath))
	if err != nil {
		return fmt.Errorf("find source parent: %w", err)
	}
	newParent, err := e.ensureDirectoryDocument(ctx, snap, docurl.Dir(cand.ToPath))
	if err != nil {
		return fmt.Errorf("ensure destination parent: %w", err)
	}

	newName := docurl.Base(cand.ToPath)
	if err := oldParent.Change(func(d *docmodel.DirectoryDocument) {
		d.Remove(docurl.Base(cand.FromPath), docmodel.EntryFile)
	}); err != nil {
		return fmt.Errorf("detach from source parent: %w", err)
	}

	if cand.NewContent != nil {
		if err := handle.Change(func(doc *docmodel.FileDocument) {
			doc.Name = newName
			old := string(doc.Content())
			applyTextPolicy(doc, old, string(cand.NewContent))
		}); err != nil {
			return fmt.Errorf("apply content change alongside move: %w", err)
		}
	} else if err := handle.Change(func(doc *docmodel.FileDocument) { doc.Name = newName }); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}

	// spec §4.4.7: an artifact keeps a versioned directory entry even
	// across a move, pinned to whatever heads the rename/content step
	// above just produced.
	entryURL := handle.URL()
	if e.ignore.IsArtifact(cand.ToPath) {
		entryURL = docurl.WithHeads(handle.URL(), string(handle.Heads()))
	}
	if err := newParent.Change(func(d *docmodel.DirectoryDocument) {
		d.Upsert(docmodel.DirEntry{Name: newName, Type: docmodel.EntryFile, URL: entryURL})
	}); err != nil {
		return fmt.Errorf("attach to destination parent: %w", err)
	}

	finalContent := []byte(nil)
	if doc, ok := handle.Doc(); ok {
		finalContent = doc.Content()
	}

	snap.RemoveFile(cand.FromPath)
	snap.UpsertFile(docmodel.SnapshotFileEntry{
		Path: cand.ToPath, URL: entryURL, Head: string(handle.Heads()),
		Extension: entry.Extension, MimeType: entry.MimeType,
		ContentHash: contentHash(finalContent),
	})
	return nil
}
