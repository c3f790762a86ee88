// Pull phase: write remote-only changes back to the local filesystem
// (spec §4.4.4). Parent directories are created on demand via
// vfs.Filesystem.MkdirAll, so no explicit ordering is required beyond
// processing one change at a time.
//
// Grounded on internal/client/sync/sync_engine_download.go and
// sync_down.go's write-to-disk loop.
package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pushwork/pushwork/internal/detect"
	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/mime"
)

type pullOutcome struct {
	filesChanged int
	dirsChanged  int
	errors       []ChangeError
	warnings     []string
}

func (e *Engine) pull(ctx context.Context, snap *docmodel.SyncSnapshot, changes []detect.DetectedChange) pullOutcome {
	var out pullOutcome

	for _, c := range changes {
		if c.FileType != detect.TypeFile {
			continue
		}
		switch c.ChangeType {
		case detect.RemoteOnly, detect.BothChanged:
			if err := e.pullOne(snap, c); err != nil {
				out.errors = append(out.errors, ChangeError{Path: c.Path, Operation: "pull", Err: err, Recoverable: true})
				continue
			}
			out.filesChanged++
			if c.ChangeType == detect.BothChanged {
				// spec §4.4.4/§8: every file is a CRDT, so the shared
				// document already holds both sides' contributions; the
				// local write just materializes the converged text.
				// That's a fact worth surfacing, not a failure.
				out.warnings = append(out.warnings, fmt.Sprintf("%s: converged concurrent edits", c.Path))
			}
		}
	}
	return out
}

func (e *Engine) pullOne(snap *docmodel.SyncSnapshot, c detect.DetectedChange) error {
	localPath := filepath.Join(snap.RootPath, filepath.FromSlash(c.Path))

	if !c.HasRemote() {
		if err := e.fs.Remove(localPath); err != nil {
			return fmt.Errorf("remove local file: %w", err)
		}
		snap.RemoveFile(c.Path)
		return nil
	}

	if err := e.fs.MkdirAll(filepath.Dir(localPath)); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := e.fs.Write(localPath, c.RemoteContent, 0o644); err != nil {
		return fmt.Errorf("write local file: %w", err)
	}

	entry := snap.Files[c.Path]
	entry.Path = c.Path
	entry.Head = string(c.RemoteHead)
	entry.ContentHash = contentHash(c.RemoteContent)
	if c.RemoteURL != "" {
		entry.URL = c.RemoteURL
		if e.ignore.IsArtifact(c.Path) {
			entry.URL = docurl.WithHeads(c.RemoteURL, string(c.RemoteHead))
		}
	}
	if entry.Extension == "" {
		entry.Extension = mime.Extension(c.Path)
	}
	snap.UpsertFile(entry)
	return nil
}
