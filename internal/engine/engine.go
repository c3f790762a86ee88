// Package engine implements the Sync Engine (spec §4.4): the
// orchestrator that detects changes, pushes them into the CRDT document
// graph leaf-first, pulls remote changes back to disk, and maintains the
// persisted snapshot.
//
// Grounded on internal/client/sync/sync_engine.go (overall orchestration
// shape), sync_engine_upload.go / sync_engine_download.go (bounded
// worker-pool batching per directory step), sync_op.go and
// sync_status.go (operation/result reporting types).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pushwork/pushwork/internal/detect"
	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/ignore"
	"github.com/pushwork/pushwork/internal/move"
	"github.com/pushwork/pushwork/internal/repo"
	"github.com/pushwork/pushwork/internal/snapshot"
	"github.com/pushwork/pushwork/internal/vfs"
)

// Options configures one Engine instance.
type Options struct {
	SyncEnabled       bool
	RelayID           string
	MoveThreshold     float64 // spec §6 sync.move_detection_threshold, default 0.7
	MaxParallelism    int     // spec §6, default 8 (teacher's maxUploadConcurrency)
	PrePullTimeout    time.Duration
	OutgoingTimeout   time.Duration
	BidirectionalOpts BidirectionalTuning
}

// BidirectionalTuning mirrors barrier.BidirectionalOptions without
// importing the barrier package into the public Options surface.
type BidirectionalTuning struct {
	Timeout              time.Duration
	PollInterval         time.Duration
	StableChecksRequired int
}

func (o Options) withDefaults() Options {
	if o.MoveThreshold <= 0 {
		o.MoveThreshold = 0.7
	}
	if o.MaxParallelism <= 0 {
		o.MaxParallelism = 8
	}
	if o.PrePullTimeout <= 0 {
		o.PrePullTimeout = 2 * time.Second
	}
	if o.OutgoingTimeout <= 0 {
		o.OutgoingTimeout = 5 * time.Second
	}
	return o
}

// ChangeError is one per-change recoverable error (spec §4.6).
type ChangeError struct {
	Path        string
	Operation   string
	Err         error
	Recoverable bool
}

func (e ChangeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

// SyncResult reports the outcome of Sync/CommitLocal (spec §4.4.1).
type SyncResult struct {
	Success            bool
	FilesChanged       int
	DirectoriesChanged int
	Errors             []ChangeError
	Warnings           []string
	SyncRoundID        string
}

// Status is returned by GetStatus (spec §4.4.1).
type Status struct {
	Snapshot    *docmodel.SyncSnapshot
	HasChanges  bool
	ChangeCount int
	LastSync    time.Time
}

// Engine is the sync orchestrator for one root directory.
type Engine struct {
	root     string
	fs       vfs.Filesystem
	repo     repo.Repo
	ignore   *ignore.Matcher
	store    *snapshot.Store
	detector *detect.Detector
	opts     Options

	snap *docmodel.SyncSnapshot // loaded lazily, held for the duration of one call
}

// New constructs an Engine for rootPath.
func New(root string, fs vfs.Filesystem, r repo.Repo, matcher *ignore.Matcher, opts Options) *Engine {
	opts = opts.withDefaults()
	det := detect.New(fs, r, matcher, detect.Options{Parallelism: opts.MaxParallelism})
	return &Engine{
		root:     root,
		fs:       fs,
		repo:     r,
		ignore:   matcher,
		store:    snapshot.New(root),
		detector: det,
		opts:     opts,
	}
}

// loadOrCreateSnapshot loads the persisted snapshot, or creates a fresh
// one if none exists yet.
func (e *Engine) loadOrCreateSnapshot() (*docmodel.SyncSnapshot, error) {
	snap, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: load snapshot: %w", err)
	}
	if snap == nil {
		snap = e.store.CreateEmpty()
	}
	return snap, nil
}

// SetRootDirectoryURL records the root URL in the snapshot, creating the
// snapshot if absent (spec §4.4.1).
func (e *Engine) SetRootDirectoryURL(url string) error {
	if err := e.store.Lock(); err != nil {
		return err
	}
	defer e.store.Unlock()

	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return err
	}
	snap.RootDirectoryURL = url
	return e.store.Save(snap)
}

// GetStatus returns the current snapshot, whether pending changes exist,
// and the last sync time (spec §4.4.1).
func (e *Engine) GetStatus(ctx context.Context) (*Status, error) {
	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return nil, err
	}
	result, err := e.detector.Detect(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("engine: status detect: %w", err)
	}
	return &Status{
		Snapshot:    snap,
		HasChanges:  len(result.Changes) > 0,
		ChangeCount: len(result.Changes),
		LastSync:    snap.Timestamp,
	}, nil
}

// PreviewChanges runs the detectors without mutating the repository or
// snapshot (spec §4.4.1).
func (e *Engine) PreviewChanges(ctx context.Context) (*detect.Result, []move.Candidate, error) {
	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return nil, nil, err
	}
	changes, err := e.detector.Detect(ctx, snap)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: preview detect: %w", err)
	}
	prior := e.priorContentForDeleted(ctx, snap, changes.Changes)
	moveResult := move.Detect(changes.Changes, prior, e.opts.MoveThreshold)
	return changes, moveResult.Candidates, nil
}

// ResetSnapshot clears the local snapshot (spec §4.4.1).
func (e *Engine) ResetSnapshot() error {
	if err := e.store.Lock(); err != nil {
		return err
	}
	defer e.store.Unlock()
	if err := e.store.Backup(); err != nil {
		slog.Warn("engine: backup before reset failed", "error", err)
	}
	return e.store.Save(e.store.CreateEmpty())
}

// NuclearReset clears the snapshot and also wipes the root directory
// document's child list (spec §4.4.1).
func (e *Engine) NuclearReset(ctx context.Context) error {
	if err := e.store.Lock(); err != nil {
		return err
	}
	defer e.store.Unlock()

	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return err
	}
	if snap.RootDirectoryURL != "" {
		handle, err := e.repo.FindDir(ctx, snap.RootDirectoryURL)
		if err == nil {
			_ = handle.Change(func(doc *docmodel.DirectoryDocument) {
				doc.Docs = nil
			})
		}
	}
	if err := e.store.Backup(); err != nil {
		slog.Warn("engine: backup before nuclear reset failed", "error", err)
	}
	fresh := e.store.CreateEmpty()
	fresh.RootDirectoryURL = snap.RootDirectoryURL
	return e.store.Save(fresh)
}

// CommitLocal runs only the push phase; no network barrier is
// constructed or invoked, satisfying the engine contract that "commit
// must not initialize or use the network barrier" (spec §9 open
// question).
func (e *Engine) CommitLocal(ctx context.Context) (*SyncResult, error) {
	if err := e.store.Lock(); err != nil {
		return nil, err
	}
	defer e.store.Unlock()

	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return nil, err
	}
	if snap.RootDirectoryURL == "" {
		if _, err := e.findOrCreateRoot(ctx, snap); err != nil {
			return nil, err
		}
	}

	detected, err := e.detector.Detect(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("engine: detect: %w", err)
	}
	prior := e.priorContentForDeleted(ctx, snap, detected.Changes)
	moveResult := move.Detect(detected.Changes, prior, e.opts.MoveThreshold)

	result := &SyncResult{SyncRoundID: uuid.NewString()}
	result.Warnings = append(result.Warnings, detected.Warnings...)
	for _, c := range moveResult.Conflicts {
		result.Warnings = append(result.Warnings, fmt.Sprintf("move conflict: %s", c.Reason))
	}

	pushRes := e.push(ctx, snap, moveResult.RemainingChanges, moveResult.Candidates)
	result.FilesChanged += pushRes.filesChanged
	result.DirectoriesChanged += pushRes.dirsChanged
	result.Errors = append(result.Errors, pushRes.errors...)
	result.Success = len(result.Errors) == 0

	if err := e.postFix(ctx, snap); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("post-fix: %v", err))
	}
	if err := e.store.Save(snap); err != nil {
		return result, fmt.Errorf("engine: save snapshot: %w", err)
	}
	return result, nil
}

// Sync runs the full two-phase protocol (spec §4.4.2).
func (e *Engine) Sync(ctx context.Context) (*SyncResult, error) {
	if err := e.store.Lock(); err != nil {
		return nil, err
	}
	defer e.store.Unlock()

	result := &SyncResult{SyncRoundID: uuid.NewString()}

	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return nil, err
	}
	if snap.RootDirectoryURL == "" {
		if _, err := e.findOrCreateRoot(ctx, snap); err != nil {
			return nil, err
		}
	}

	// 1. Pre-pull barrier
	if e.opts.SyncEnabled && snap.RootDirectoryURL != "" {
		if err := e.waitTreeStable(ctx, snap, e.opts.PrePullTimeout); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("pre-pull barrier: %v", err))
		}
	}

	// 2. Detect
	detected, err := e.detector.Detect(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("engine: detect: %w", err)
	}
	prior := e.priorContentForDeleted(ctx, snap, detected.Changes)
	moveResult := move.Detect(detected.Changes, prior, e.opts.MoveThreshold)
	result.Warnings = append(result.Warnings, detected.Warnings...)
	for _, c := range moveResult.Conflicts {
		result.Warnings = append(result.Warnings, fmt.Sprintf("move conflict: %s", c.Reason))
	}

	// 3. Push phase
	pushRes := e.push(ctx, snap, moveResult.RemainingChanges, moveResult.Candidates)
	result.FilesChanged += pushRes.filesChanged
	result.DirectoriesChanged += pushRes.dirsChanged
	result.Errors = append(result.Errors, pushRes.errors...)

	// 4. Outgoing + incoming barrier
	if e.opts.SyncEnabled {
		if err := e.waitOutgoing(ctx, pushRes.touchedHandles); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("outgoing barrier: %v", err))
		}
		if err := e.waitTreeStable(ctx, snap, e.opts.OutgoingTimeout); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("incoming barrier: %v", err))
		}
	}

	// 5. Re-detect
	redetected, err := e.detector.Detect(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("engine: re-detect: %w", err)
	}
	result.Warnings = append(result.Warnings, redetected.Warnings...)

	// 6. Pull phase
	pullRes := e.pull(ctx, snap, redetected.Changes)
	result.FilesChanged += pullRes.filesChanged
	result.DirectoriesChanged += pullRes.dirsChanged
	result.Errors = append(result.Errors, pullRes.errors...)
	result.Warnings = append(result.Warnings, pullRes.warnings...)

	// 7. Post-fix
	if err := e.postFix(ctx, snap); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("post-fix: %v", err))
	}

	// 8. Persist
	if err := e.store.Save(snap); err != nil {
		return result, fmt.Errorf("engine: save snapshot: %w", err)
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// priorContentForDeleted fetches the last-synced content for paths the
// detector reported as locally deleted, needed by the move detector to
// score similarity against newly created files.
func (e *Engine) priorContentForDeleted(ctx context.Context, snap *docmodel.SyncSnapshot, changes []detect.DetectedChange) map[string][]byte {
	out := map[string][]byte{}
	for _, c := range changes {
		if c.ChangeType != detect.LocalOnly || c.HasLocal() {
			continue
		}
		entry, ok := snap.Files[c.Path]
		if !ok {
			continue
		}
		handle, err := e.repo.FindFile(ctx, docurl.Plain(entry.URL))
		if err != nil {
			continue
		}
		doc, ok := handle.View(repo.Heads(entry.Head))
		if !ok {
			doc, ok = handle.Doc()
			if !ok {
				continue
			}
		}
		out[c.Path] = doc.Content()
	}
	return out
}

// postFix walks every snapshot entry and refreshes stored heads that
// have drifted from the repository's current heads (spec §4.4.2 step 7).
func (e *Engine) postFix(ctx context.Context, snap *docmodel.SyncSnapshot) error {
	for path, entry := range snap.Files {
		handle, err := e.repo.FindFile(ctx, docurl.Plain(entry.URL))
		if err != nil {
			continue
		}
		if cur := string(handle.Heads()); cur != entry.Head {
			entry.Head = cur
			if e.ignore.IsArtifact(path) && docurl.HasHeads(entry.URL) {
				entry.URL = docurl.WithHeads(entry.URL, cur)
			}
			snap.Files[path] = entry
		}
	}
	for path, entry := range snap.Directories {
		handle, err := e.repo.FindDir(ctx, entry.URL)
		if err != nil {
			continue
		}
		if cur := string(handle.Heads()); cur != entry.Head {
			entry.Head = cur
			snap.Directories[path] = entry
		}
		if path == "" {
			now := time.Now()
			_ = handle.Change(func(d *docmodel.DirectoryDocument) { d.LastSyncAt = &now })
		}
	}
	return nil
}
