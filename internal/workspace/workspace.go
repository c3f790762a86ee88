// Package workspace owns the root directory's `.pushwork` control
// directory: the advisory lock and the directories the snapshot store
// and logs live under.
//
// Grounded on internal/client/workspace/workspace.go's
// Lock/Unlock/Setup lifecycle, dropping its datasite/ACL bootstrap
// (pushwork syncs a plain directory tree, not a datasite).
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	controlDir = ".pushwork"
	logsDir    = "logs"
	lockFile   = "pushwork.lock"
)

// ErrLocked is returned by Lock when another pushwork process already
// holds the workspace.
var ErrLocked = errors.New("workspace: locked by another process")

// Workspace owns one root directory's control state.
type Workspace struct {
	Root       string
	ControlDir string
	LogsDir    string

	flock flocker
}

// flocker is the narrow gofrs/flock surface Workspace depends on,
// letting tests substitute a fake without touching the filesystem.
type flocker interface {
	TryLock() (bool, error)
	Unlock() error
	Locked() bool
	Path() string
}

// New creates a Workspace rooted at rootDir. rootDir is resolved to an
// absolute path; symlinks in it are not resolved.
func New(rootDir string) (*Workspace, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root %q: %w", rootDir, err)
	}
	ctrl := filepath.Join(root, controlDir)
	return &Workspace{
		Root:       root,
		ControlDir: ctrl,
		LogsDir:    filepath.Join(ctrl, logsDir),
		flock:      newFlock(filepath.Join(ctrl, lockFile)),
	}, nil
}

// Lock acquires the exclusive advisory lock for the control directory,
// creating it first if absent.
func (w *Workspace) Lock() error {
	if err := os.MkdirAll(w.ControlDir, 0o755); err != nil {
		return fmt.Errorf("workspace: create control dir: %w", err)
	}
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("workspace: lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

// Unlock releases the lock acquired by Lock.
func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}
	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("workspace: unlock: %w", err)
	}
	return os.Remove(w.flock.Path())
}

// Setup ensures the control directory tree exists and is ready for a
// first sync.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}
	slog.Info("workspace", "root", w.Root)

	for _, dir := range []string{w.ControlDir, w.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workspace: create directory %s: %w", dir, err)
		}
	}
	return nil
}

// IsInitialized reports whether Setup has already run for this root.
func (w *Workspace) IsInitialized() bool {
	_, err := os.Stat(w.ControlDir)
	return err == nil
}
