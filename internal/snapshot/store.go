// Package snapshot implements the Snapshot Store (spec §4.1): the
// persisted mapping relative-path -> {document URL, heads, hash?} that
// the change detector diffs the live world against.
//
// Grounded on internal/client/sync/sync_journal.go's file-backed
// persistence lifecycle (Open/Close/Destroy-with-backup) and
// internal/client/workspace/workspace.go's flock lock lifecycle, adapted
// from a SQLite journal to the JSON file spec §6 mandates.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pushwork/pushwork/internal/docmodel"
)

const (
	controlDir   = ".pushwork"
	snapshotFile = "snapshot.json"
	lockFile     = "snapshot.lock"
)

// ErrLocked is returned when another process already holds the
// snapshot lock (spec §5: "the snapshot file is owned exclusively by
// the engine for the duration of a sync").
var ErrLocked = errors.New("snapshot: locked by another process")

// Store owns the on-disk snapshot file for one root directory.
type Store struct {
	rootPath string
	path     string
	flock    *flock.Flock
}

// New creates a Store for rootPath. It does not touch disk.
func New(rootPath string) *Store {
	dir := filepath.Join(rootPath, controlDir)
	return &Store{
		rootPath: rootPath,
		path:     filepath.Join(dir, snapshotFile),
		flock:    flock.New(filepath.Join(dir, lockFile)),
	}
}

// Path returns the snapshot file's absolute path.
func (s *Store) Path() string { return s.path }

// Lock acquires the exclusive advisory lock for the duration of one
// sync invocation.
func (s *Store) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create control dir: %w", err)
	}
	locked, err := s.flock.TryLock()
	if err != nil {
		return fmt.Errorf("snapshot: lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

// Unlock releases the lock acquired by Lock.
func (s *Store) Unlock() error {
	if !s.flock.Locked() {
		return nil
	}
	return s.flock.Unlock()
}

// Load reads the snapshot from disk. A missing file is not an error; it
// returns (nil, nil) so callers can distinguish "uninitialized" from a
// read failure.
func (s *Store) Load() (*docmodel.SyncSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}

	var snap docmodel.SyncSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: parse: %w", err)
	}
	if errs := snap.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("snapshot: invalid (%d errors): %w", len(errs), errs[0])
	}
	return &snap, nil
}

// CreateEmpty returns a fresh, empty snapshot rooted at s.rootPath. It
// does not persist it; call Save to do so.
func (s *Store) CreateEmpty() *docmodel.SyncSnapshot {
	return docmodel.NewSyncSnapshot(s.rootPath)
}

// Save writes the snapshot to disk atomically (temp file + rename, per
// spec §5).
func (s *Store) Save(snap *docmodel.SyncSnapshot) error {
	if errs := snap.Validate(); len(errs) > 0 {
		return fmt.Errorf("snapshot: refusing to save invalid snapshot: %w", errs[0])
	}
	snap.Timestamp = time.Now()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create control dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Backup copies the current snapshot file aside with a timestamp
// suffix, mirroring the teacher's journal Destroy() rename-to-backup
// pattern.
func (s *Store) Backup() error {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	ts := time.Now().Format("20060102150405")
	backupPath := fmt.Sprintf("%s.%s.bak", s.path, ts)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("snapshot: read for backup: %w", err)
	}
	return os.WriteFile(backupPath, data, 0o644)
}

// Clone deep-copies a snapshot; a thin forward to docmodel for callers
// that only import this package.
func Clone(snap *docmodel.SyncSnapshot) *docmodel.SyncSnapshot {
	return snap.Clone()
}
