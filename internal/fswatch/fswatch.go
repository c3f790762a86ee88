// Package fswatch watches a root directory tree and emits a debounced
// resync signal, used by `pushwork watch` to trigger a sync after a
// quiet period following local edits (spec §6 `watch` command).
//
// Grounded on pkg/fswatch/watcher.go's recursive-add/remove fsnotify
// wrapper, trimmed down from its Events/Errors channel pair (which fed
// a priority-upload hook this repo doesn't have) to a single coalesced
// Resync signal.
package fswatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	ErrWatcherClosed = errors.New("fswatch: watcher closed")
	ErrDirNotExist   = errors.New("fswatch: directory does not exist")
)

const defaultDebounce = 300 * time.Millisecond

// Watcher recursively watches a directory and signals Resync after
// DebounceWindow of inactivity following any change.
type Watcher struct {
	Resync chan struct{}

	root           string
	controlDirName string
	debounce       time.Duration

	watcher  *fsnotify.Watcher
	isClosed bool
	mu       sync.Mutex
}

// New creates a Watcher rooted at root. controlDirName (e.g.
// ".pushwork") is excluded from triggering a resync so the engine's own
// snapshot writes don't cause a self-loop.
func New(root, controlDirName string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fswatch: create watcher: %w", err)
	}
	return &Watcher{
		Resync:         make(chan struct{}, 1),
		root:           root,
		controlDirName: controlDirName,
		debounce:       defaultDebounce,
		watcher:        w,
	}, nil
}

// Start adds the root tree to the watch set and runs the event loop
// until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.root); err != nil {
		return ErrDirNotExist
	}
	if err := w.recursivelyAdd(w.root); err != nil {
		return fmt.Errorf("fswatch: initial watch: %w", err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if w.ignore(event.Name) {
				continue
			}
			w.handleStructuralChange(event)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			slog.Warn("fswatch: watcher error", "error", err)

		case <-timerC:
			select {
			case w.Resync <- struct{}{}:
			default:
			}
			timerC = nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return ErrWatcherClosed
	}
	w.isClosed = true
	return w.watcher.Close()
}

func (w *Watcher) ignore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == w.controlDirName || strings.HasPrefix(rel, w.controlDirName+"/")
}

// handleStructuralChange keeps the recursive watch set current when a
// directory is created or removed mid-watch.
func (w *Watcher) handleStructuralChange(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.recursivelyAdd(event.Name); err != nil {
				slog.Debug("fswatch: add watch failed", "path", event.Name, "error", err)
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if err := w.watcher.Remove(event.Name); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			slog.Debug("fswatch: remove watch failed", "path", event.Name, "error", err)
		}
	}
}

func (w *Watcher) recursivelyAdd(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignore(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
