// Package detect implements the Change Detector (spec §4.2): it diffs
// the live filesystem and the live CRDT document graph against the
// snapshot and emits a classified change set.
//
// Grounded on internal/client/sync/sync_local_state.go's local-vs-remote
// diff shape and internal/client/sync/sync_engine.go's reconcile step;
// bounded fan-out via golang.org/x/sync/errgroup as the teacher's own
// upload/download batching does, an LRU cache of recent head lookups
// (hashicorp/golang-lru/v2), and a set of on-disk paths via
// deckarep/golang-set/v2.
package detect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/ignore"
	"github.com/pushwork/pushwork/internal/repo"
	"github.com/pushwork/pushwork/internal/vfs"
)

// ChangeType classifies one detected change (spec §4.2).
type ChangeType string

const (
	LocalOnly   ChangeType = "LOCAL_ONLY"
	RemoteOnly  ChangeType = "REMOTE_ONLY"
	BothChanged ChangeType = "BOTH_CHANGED"
	NoChange    ChangeType = "NO_CHANGE"
)

// FileType distinguishes file vs directory changes.
type FileType string

const (
	TypeFile FileType = "file"
	TypeDir  FileType = "dir"
)

// DetectedChange is one entry in the change set.
type DetectedChange struct {
	Path          string
	ChangeType    ChangeType
	FileType      FileType
	LocalContent  []byte // nil means "absent locally"
	RemoteContent []byte // nil means "absent remotely"
	LocalHead     repo.Heads
	RemoteHead    repo.Heads
	RemoteURL     string // populated when the change originates from an untracked remote document
}

// HasLocal reports whether LocalContent represents a present local file.
func (c DetectedChange) HasLocal() bool { return c.LocalContent != nil }

// HasRemote reports whether RemoteContent represents a present remote file.
func (c DetectedChange) HasRemote() bool { return c.RemoteContent != nil }

// Options configures one detection run.
type Options struct {
	Parallelism    int // bounded fan-out width, spec §5
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = 8
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 4
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 50 * time.Millisecond
	}
	return o
}

// Detector runs the three-pass change detection algorithm.
type Detector struct {
	fs        vfs.Filesystem
	repo      repo.Repo
	ignore    *ignore.Matcher
	opts      Options
	headCache *lru.Cache[string, repo.Heads]
}

// New creates a Detector.
func New(fs vfs.Filesystem, r repo.Repo, matcher *ignore.Matcher, opts Options) *Detector {
	cache, _ := lru.New[string, repo.Heads](2048)
	return &Detector{fs: fs, repo: r, ignore: matcher, opts: opts.withDefaults(), headCache: cache}
}

// Result is the merged, deduplicated output of all three passes.
type Result struct {
	Changes  []DetectedChange
	Warnings []string
}

// Detect runs the local, remote, and remote-discovery passes and merges
// them into one change set (spec §4.2).
func (d *Detector) Detect(ctx context.Context, snap *docmodel.SyncSnapshot) (*Result, error) {
	d.headCache.Purge() // head lookups are cached within one run only
	res := &Result{}
	seen := map[string]int{} // path -> index in res.Changes, for merging passes

	add := func(c DetectedChange) {
		if idx, ok := seen[c.Path]; ok {
			merged := res.Changes[idx]
			if c.ChangeType == BothChanged || merged.ChangeType == BothChanged {
				merged.ChangeType = BothChanged
			} else if merged.ChangeType == NoChange {
				merged.ChangeType = c.ChangeType
			}
			if c.LocalContent != nil {
				merged.LocalContent = c.LocalContent
			}
			if c.RemoteContent != nil {
				merged.RemoteContent = c.RemoteContent
			}
			if c.LocalHead != "" {
				merged.LocalHead = c.LocalHead
			}
			if c.RemoteHead != "" {
				merged.RemoteHead = c.RemoteHead
			}
			if c.RemoteURL != "" {
				merged.RemoteURL = c.RemoteURL
			}
			res.Changes[idx] = merged
			return
		}
		seen[c.Path] = len(res.Changes)
		res.Changes = append(res.Changes, c)
	}

	local, warnings, err := d.localPass(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("detect: local pass: %w", err)
	}
	res.Warnings = append(res.Warnings, warnings...)
	for _, c := range local {
		add(c)
	}

	remote, warnings, err := d.remotePass(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("detect: remote pass: %w", err)
	}
	res.Warnings = append(res.Warnings, warnings...)
	for _, c := range remote {
		add(c)
	}

	discovered, warnings, err := d.remoteDiscoveryPass(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("detect: remote-discovery pass: %w", err)
	}
	res.Warnings = append(res.Warnings, warnings...)
	for _, c := range discovered {
		add(c)
	}

	final := res.Changes[:0]
	for _, c := range res.Changes {
		if c.ChangeType != NoChange {
			final = append(final, c)
		}
	}
	res.Changes = final
	return res, nil
}

// localPass implements spec §4.2(a).
func (d *Detector) localPass(ctx context.Context, snap *docmodel.SyncSnapshot) ([]DetectedChange, []string, error) {
	entries, err := d.fs.List(snap.RootPath, func(rel string, isDir bool) bool {
		return d.ignore.ShouldIgnore(rel)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list local tree: %w", err)
	}

	onDisk := mapset.NewThreadUnsafeSet[string]()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Parallelism)

	results := make([]DetectedChange, len(entries))
	warningsCh := make(chan string, len(entries))

	for i, e := range entries {
		if e.IsDir {
			continue
		}
		i, e := i, e
		onDisk.Add(e.Path)
		g.Go(func() error {
			c, warn, err := d.detectLocalFile(gctx, snap, e.Path)
			if err != nil {
				return err
			}
			if warn != "" {
				warningsCh <- warn
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	close(warningsCh)

	var out []DetectedChange
	for _, c := range results {
		if c.Path != "" {
			out = append(out, c)
		}
	}
	var warnings []string
	for w := range warningsCh {
		warnings = append(warnings, w)
	}

	// entries present in snapshot.files but missing on disk
	for path, entry := range snap.Files {
		if onDisk.Contains(path) {
			continue
		}
		remoteHead, err := d.currentHeads(ctx, entry.URL)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("head lookup failed for deleted path %s: %v", path, err))
			out = append(out, DetectedChange{Path: path, ChangeType: LocalOnly, FileType: TypeFile, LocalContent: nil, RemoteHead: repo.Heads(entry.Head)})
			continue
		}
		if string(remoteHead) != entry.Head {
			out = append(out, DetectedChange{Path: path, ChangeType: BothChanged, FileType: TypeFile, LocalContent: nil, RemoteHead: remoteHead})
		} else {
			out = append(out, DetectedChange{Path: path, ChangeType: LocalOnly, FileType: TypeFile, LocalContent: nil, RemoteHead: remoteHead})
		}
	}

	return out, warnings, nil
}

func (d *Detector) detectLocalFile(ctx context.Context, snap *docmodel.SyncSnapshot, path string) (DetectedChange, string, error) {
	content, err := d.fs.Read(pathJoin(snap.RootPath, path))
	if err != nil {
		return DetectedChange{}, fmt.Sprintf("read %s: %v", path, err), nil
	}

	entry, tracked := snap.Files[path]
	if !tracked {
		return DetectedChange{Path: path, ChangeType: LocalOnly, FileType: TypeFile, LocalContent: content}, "", nil
	}

	if d.ignore.IsArtifact(path) {
		hash := sha256Hex(content)
		remoteHead, err := d.currentHeads(ctx, entry.URL)
		if err != nil {
			return DetectedChange{Path: path, ChangeType: NoChange, FileType: TypeFile}, fmt.Sprintf("head lookup failed for %s: %v", path, err), nil
		}
		localChanged := hash != entry.ContentHash
		remoteChanged := string(remoteHead) != entry.Head
		switch {
		case localChanged && remoteChanged:
			return DetectedChange{Path: path, ChangeType: BothChanged, FileType: TypeFile, LocalContent: content, LocalHead: remoteHead, RemoteHead: remoteHead}, "", nil
		case localChanged:
			return DetectedChange{Path: path, ChangeType: LocalOnly, FileType: TypeFile, LocalContent: content}, "", nil
		case remoteChanged:
			return DetectedChange{Path: path, ChangeType: RemoteOnly, FileType: TypeFile, RemoteHead: remoteHead}, "", nil
		default:
			return DetectedChange{Path: path, ChangeType: NoChange, FileType: TypeFile}, "", nil
		}
	}

	remoteContent, remoteHead, err := d.contentAtHead(ctx, entry.URL, repo.Heads(entry.Head))
	if err != nil {
		return DetectedChange{Path: path, ChangeType: NoChange, FileType: TypeFile}, fmt.Sprintf("content-at-head failed for %s: %v", path, err), nil
	}
	if bytesEqual(content, remoteContent) {
		return DetectedChange{Path: path, ChangeType: NoChange, FileType: TypeFile}, "", nil
	}

	currentRemote, curHead, err := d.currentContent(ctx, entry.URL)
	if err != nil {
		return DetectedChange{Path: path, ChangeType: LocalOnly, FileType: TypeFile, LocalContent: content}, "", nil
	}
	if !bytesEqual(currentRemote, remoteContent) {
		return DetectedChange{Path: path, ChangeType: BothChanged, FileType: TypeFile, LocalContent: content, RemoteContent: currentRemote, LocalHead: remoteHead, RemoteHead: curHead}, "", nil
	}
	return DetectedChange{Path: path, ChangeType: LocalOnly, FileType: TypeFile, LocalContent: content, LocalHead: remoteHead}, "", nil
}

// remotePass implements spec §4.2(b): for every snapshot entry, verify
// reachability via the directory hierarchy and compare heads.
func (d *Detector) remotePass(ctx context.Context, snap *docmodel.SyncSnapshot) ([]DetectedChange, []string, error) {
	var out []DetectedChange
	var warnings []string

	for path, entry := range snap.Files {
		reachable := d.reachableViaHierarchy(ctx, snap, path)
		if !reachable {
			out = append(out, DetectedChange{Path: path, ChangeType: RemoteOnly, FileType: TypeFile, RemoteContent: nil})
			continue
		}
		remoteHead, err := d.currentHeads(ctx, entry.URL)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("remote pass head lookup failed for %s: %v", path, err))
			continue
		}
		if string(remoteHead) == entry.Head {
			continue
		}
		remoteContent, _, err := d.currentContent(ctx, entry.URL)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("remote pass content read failed for %s: %v", path, err))
			continue
		}
		localContent, lerr := d.fs.Read(pathJoin(snap.RootPath, path))
		if lerr != nil {
			out = append(out, DetectedChange{Path: path, ChangeType: RemoteOnly, FileType: TypeFile, RemoteContent: remoteContent, RemoteHead: remoteHead})
			continue
		}
		atHead, _, err := d.contentAtHead(ctx, entry.URL, repo.Heads(entry.Head))
		if err == nil && !bytesEqual(localContent, atHead) {
			out = append(out, DetectedChange{Path: path, ChangeType: BothChanged, FileType: TypeFile, LocalContent: localContent, RemoteContent: remoteContent, RemoteHead: remoteHead})
		} else {
			out = append(out, DetectedChange{Path: path, ChangeType: RemoteOnly, FileType: TypeFile, RemoteContent: remoteContent, RemoteHead: remoteHead})
		}
	}
	return out, warnings, nil
}

// remoteDiscoveryPass implements spec §4.2(c): descend the directory
// tree from rootDirectoryUrl looking for untracked remote files.
func (d *Detector) remoteDiscoveryPass(ctx context.Context, snap *docmodel.SyncSnapshot) ([]DetectedChange, []string, error) {
	if snap.RootDirectoryURL == "" {
		return nil, nil, nil
	}
	var out []DetectedChange
	var warnings []string

	var walk func(url, prefix string) error
	walk = func(url, prefix string) error {
		handle, err := withRetry(ctx, d.opts, func(ctx context.Context) (repo.DirHandle, error) {
			return d.repo.FindDir(ctx, url)
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("discovery: find dir %s failed: %v", url, err))
			return nil
		}
		doc, ok := handle.Doc()
		if !ok {
			return nil
		}
		for _, e := range doc.Docs {
			childPath := docurl.Join(prefix, e.Name)
			if e.Type == docmodel.EntryFolder {
				if err := walk(e.URL, childPath); err != nil {
					return err
				}
				continue
			}
			if _, tracked := snap.Files[childPath]; tracked {
				continue
			}
			fh, err := withRetry(ctx, d.opts, func(ctx context.Context) (repo.FileHandle, error) {
				return d.repo.FindFile(ctx, docurl.Plain(e.URL))
			})
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("discovery: find file %s failed: %v", e.URL, err))
				continue
			}
			fdoc, ok := fh.Doc()
			if !ok {
				continue
			}
			localContent, lerr := d.fs.Read(pathJoin(snap.RootPath, childPath))
			if lerr != nil {
				out = append(out, DetectedChange{Path: childPath, ChangeType: RemoteOnly, FileType: TypeFile, RemoteContent: fdoc.Content(), RemoteHead: fh.Heads(), RemoteURL: fh.URL()})
			} else {
				out = append(out, DetectedChange{Path: childPath, ChangeType: BothChanged, FileType: TypeFile, LocalContent: localContent, RemoteContent: fdoc.Content(), RemoteHead: fh.Heads(), RemoteURL: fh.URL()})
			}
		}
		return nil
	}

	if err := walk(snap.RootDirectoryURL, ""); err != nil {
		return nil, warnings, err
	}
	return out, warnings, nil
}

func (d *Detector) reachableViaHierarchy(ctx context.Context, snap *docmodel.SyncSnapshot, path string) bool {
	dir := docurl.Dir(path)
	dirEntry, ok := snap.Directories[dir]
	if !ok {
		return dir == "" && snap.RootDirectoryURL != ""
	}
	handle, err := withRetry(ctx, d.opts, func(ctx context.Context) (repo.DirHandle, error) {
		return d.repo.FindDir(ctx, dirEntry.URL)
	})
	if err != nil {
		return false
	}
	doc, ok := handle.Doc()
	if !ok {
		return false
	}
	_, found := doc.Find(docurl.Base(path), docmodel.EntryFile)
	return found
}

func (d *Detector) currentHeads(ctx context.Context, url string) (repo.Heads, error) {
	if h, ok := d.headCache.Get(url); ok {
		return h, nil
	}
	handle, err := withRetry(ctx, d.opts, func(ctx context.Context) (repo.FileHandle, error) {
		return d.repo.FindFile(ctx, docurl.Plain(url))
	})
	if err != nil {
		return "", err
	}
	h := handle.Heads()
	d.headCache.Add(url, h)
	return h, nil
}

func (d *Detector) currentContent(ctx context.Context, url string) ([]byte, repo.Heads, error) {
	handle, err := withRetry(ctx, d.opts, func(ctx context.Context) (repo.FileHandle, error) {
		return d.repo.FindFile(ctx, docurl.Plain(url))
	})
	if err != nil {
		return nil, "", err
	}
	doc, ok := handle.Doc()
	if !ok {
		return nil, "", fmt.Errorf("document %s has no current state", url)
	}
	return doc.Content(), handle.Heads(), nil
}

func (d *Detector) contentAtHead(ctx context.Context, url string, heads repo.Heads) ([]byte, repo.Heads, error) {
	handle, err := withRetry(ctx, d.opts, func(ctx context.Context) (repo.FileHandle, error) {
		return d.repo.FindFile(ctx, docurl.Plain(url))
	})
	if err != nil {
		return nil, "", err
	}
	doc, ok := handle.View(heads)
	if !ok {
		return nil, "", fmt.Errorf("document %s has no view at %s", url, heads)
	}
	return doc.Content(), heads, nil
}

// withRetry retries a repo lookup with exponential backoff when the
// document is transiently unavailable (spec §4.2). Go methods cannot
// carry their own type parameters, so this is a free function taking
// the detector's retry policy explicitly.
func withRetry[T any](ctx context.Context, opts Options, f func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := opts.RetryBaseDelay
	var lastErr error
	for attempt := 0; attempt < opts.RetryAttempts; attempt++ {
		v, err := f(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == opts.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	slog.Debug("detect: repo lookup failed after retries", "error", lastErr)
	return zero, lastErr
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func pathJoin(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
