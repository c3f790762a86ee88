// Package memrepo is a deterministic in-memory implementation of
// repo.Repo. It backs the engine's test suite and pushwork's offline
// loopback mode; it is explicitly not a production CRDT/automerge
// binding (spec §1 keeps the real repository external).
package memrepo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/repo"
)

// Repo is the in-memory document store. A zero Repo is not usable; use
// New.
type Repo struct {
	mu        sync.Mutex
	files     map[string]*docmodel.FileDocument
	dirs      map[string]*docmodel.DirectoryDocument
	heads     map[string]repo.Heads
	listeners map[string][]chan repo.RemoteHeadsEvent
	relayAck  map[string]repo.Heads // last head the "relay" has acked, per url
}

// New creates an empty in-memory repository.
func New() *Repo {
	return &Repo{
		files:     map[string]*docmodel.FileDocument{},
		dirs:      map[string]*docmodel.DirectoryDocument{},
		heads:     map[string]repo.Heads{},
		listeners: map[string][]chan repo.RemoteHeadsEvent{},
		relayAck:  map[string]repo.Heads{},
	}
}

func newURL() string {
	return "pushwork://" + uuid.NewString()
}

func nextHeads(prev repo.Heads, content string) repo.Heads {
	h := sha256.Sum256([]byte(string(prev) + "|" + content))
	return repo.Heads(hex.EncodeToString(h[:8]))
}

// --- FileHandle ---

type fileHandle struct {
	r   *Repo
	url string
}

func (h *fileHandle) URL() string { return h.url }

func (h *fileHandle) Doc() (*docmodel.FileDocument, bool) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	d, ok := h.r.files[h.url]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}

func (h *fileHandle) View(heads repo.Heads) (*docmodel.FileDocument, bool) {
	// the in-memory repo keeps only current state; a historical view at
	// the current head degenerates to Doc(), any other head is absent.
	h.r.mu.Lock()
	cur := h.r.heads[h.url]
	h.r.mu.Unlock()
	if cur != heads {
		return nil, false
	}
	return h.Doc()
}

func (h *fileHandle) Heads() repo.Heads {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.heads[h.url]
}

func (h *fileHandle) Change(f func(doc *docmodel.FileDocument)) error {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.mutateFileLocked(h.url, f)
}

func (h *fileHandle) ChangeAt(base repo.Heads, f func(doc *docmodel.FileDocument)) error {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if cur := h.r.heads[h.url]; cur != base {
		return fmt.Errorf("memrepo: changeAt base mismatch for %s: have %s want %s", h.url, cur, base)
	}
	return h.r.mutateFileLocked(h.url, f)
}

func (h *fileHandle) GetSyncInfo(relayID string) (repo.SyncInfo, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return repo.SyncInfo{LastHeads: h.r.relayAck[h.url]}, nil
}

func (h *fileHandle) Subscribe() (<-chan repo.RemoteHeadsEvent, func()) {
	return h.r.subscribe(h.url)
}

// --- DirHandle ---

type dirHandle struct {
	r   *Repo
	url string
}

func (h *dirHandle) URL() string { return h.url }

func (h *dirHandle) Doc() (*docmodel.DirectoryDocument, bool) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	d, ok := h.r.dirs[h.url]
	if !ok {
		return nil, false
	}
	cp := *d
	cp.Docs = append([]docmodel.DirEntry{}, d.Docs...)
	return &cp, true
}

func (h *dirHandle) View(heads repo.Heads) (*docmodel.DirectoryDocument, bool) {
	h.r.mu.Lock()
	cur := h.r.heads[h.url]
	h.r.mu.Unlock()
	if cur != heads {
		return nil, false
	}
	return h.Doc()
}

func (h *dirHandle) Heads() repo.Heads {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.heads[h.url]
}

func (h *dirHandle) Change(f func(doc *docmodel.DirectoryDocument)) error {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.mutateDirLocked(h.url, f)
}

func (h *dirHandle) ChangeAt(base repo.Heads, f func(doc *docmodel.DirectoryDocument)) error {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if cur := h.r.heads[h.url]; cur != base {
		return fmt.Errorf("memrepo: changeAt base mismatch for %s: have %s want %s", h.url, cur, base)
	}
	return h.r.mutateDirLocked(h.url, f)
}

func (h *dirHandle) GetSyncInfo(relayID string) (repo.SyncInfo, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return repo.SyncInfo{LastHeads: h.r.relayAck[h.url]}, nil
}

func (h *dirHandle) Subscribe() (<-chan repo.RemoteHeadsEvent, func()) {
	return h.r.subscribe(h.url)
}

// --- Repo ---

func (r *Repo) mutateFileLocked(url string, f func(doc *docmodel.FileDocument)) error {
	doc, ok := r.files[url]
	if !ok {
		return repo.ErrUnavailable
	}
	f(doc)
	newHeads := nextHeads(r.heads[url], string(doc.ContentKind)+doc.Name+string(doc.Content()))
	r.heads[url] = newHeads
	r.relayAck[url] = newHeads // memrepo has no real relay latency
	r.notifyLocked(url, newHeads)
	return nil
}

func (r *Repo) mutateDirLocked(url string, f func(doc *docmodel.DirectoryDocument)) error {
	doc, ok := r.dirs[url]
	if !ok {
		return repo.ErrUnavailable
	}
	f(doc)
	key := ""
	for _, e := range doc.Docs {
		key += e.Name + string(e.Type) + e.URL + ";"
	}
	newHeads := nextHeads(r.heads[url], key)
	r.heads[url] = newHeads
	r.relayAck[url] = newHeads
	r.notifyLocked(url, newHeads)
	return nil
}

func (r *Repo) notifyLocked(url string, heads repo.Heads) {
	for _, ch := range r.listeners[url] {
		select {
		case ch <- repo.RemoteHeadsEvent{URL: url, Heads: heads}:
		default:
		}
	}
}

func (r *Repo) subscribe(url string) (<-chan repo.RemoteHeadsEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan repo.RemoteHeadsEvent, 8)
	r.listeners[url] = append(r.listeners[url], ch)
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		chs := r.listeners[url]
		for i, c := range chs {
			if c == ch {
				r.listeners[url] = append(chs[:i], chs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, cancel
}

func (r *Repo) CreateFile(doc *docmodel.FileDocument) (repo.FileHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	url := newURL()
	cp := *doc
	r.files[url] = &cp
	r.heads[url] = nextHeads("", string(cp.ContentKind)+cp.Name+string(cp.Content()))
	r.relayAck[url] = r.heads[url]
	return &fileHandle{r: r, url: url}, nil
}

func (r *Repo) FindFile(ctx context.Context, url string) (repo.FileHandle, error) {
	r.mu.Lock()
	_, ok := r.files[url]
	r.mu.Unlock()
	if !ok {
		return nil, repo.ErrUnavailable
	}
	return &fileHandle{r: r, url: url}, nil
}

func (r *Repo) CreateDir(doc *docmodel.DirectoryDocument) (repo.DirHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	url := newURL()
	cp := *doc
	cp.Docs = append([]docmodel.DirEntry{}, doc.Docs...)
	r.dirs[url] = &cp
	r.heads[url] = nextHeads("", cp.Title)
	r.relayAck[url] = r.heads[url]
	return &dirHandle{r: r, url: url}, nil
}

func (r *Repo) FindDir(ctx context.Context, url string) (repo.DirHandle, error) {
	r.mu.Lock()
	_, ok := r.dirs[url]
	r.mu.Unlock()
	if !ok {
		return nil, repo.ErrUnavailable
	}
	return &dirHandle{r: r, url: url}, nil
}

func (r *Repo) HeadsEqual(a, b repo.Heads) bool {
	return a == b
}

func (r *Repo) SubscribeToRemotes(relayIDs []string) error {
	// memrepo has no separate relay process; mutations self-ack.
	return nil
}
