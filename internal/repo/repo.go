// Package repo defines the CRDT repository contract the sync engine
// consumes as an opaque collaborator (spec §1, §6). No implementation
// here binds to a real CRDT library; see memrepo for the in-memory
// reference/test implementation.
package repo

import (
	"context"
	"errors"

	"github.com/pushwork/pushwork/internal/docmodel"
)

// ErrUnavailable is returned by Find when a document has not yet
// propagated to the local replica (spec §4.2: "documents may be
// temporarily unavailable").
var ErrUnavailable = errors.New("repo: document unavailable")

// Heads is an opaque version-vector identity. It is a comparable string,
// and the engine, detector and barrier compare it with ==; Repo's
// HeadsEqual offers the same comparison through the interface.
type Heads string

// SyncInfo reports what a relay has last seen for one document.
type SyncInfo struct {
	LastHeads Heads
}

// RemoteHeadsEvent is delivered to subscribers of a handle's
// "remote-heads" event (spec §4.5 waitForSync).
type RemoteHeadsEvent struct {
	URL   string
	Heads Heads
}

// FileHandle is a borrowed reference to one file document, scoped to a
// single sync call (spec §9: "the engine holds borrowed handles").
type FileHandle interface {
	URL() string
	Doc() (*docmodel.FileDocument, bool)
	View(heads Heads) (*docmodel.FileDocument, bool)
	Heads() Heads
	Change(f func(doc *docmodel.FileDocument)) error
	ChangeAt(base Heads, f func(doc *docmodel.FileDocument)) error
	GetSyncInfo(relayID string) (SyncInfo, error)
	Subscribe() (ch <-chan RemoteHeadsEvent, cancel func())
}

// DirHandle is a borrowed reference to one directory document.
type DirHandle interface {
	URL() string
	Doc() (*docmodel.DirectoryDocument, bool)
	View(heads Heads) (*docmodel.DirectoryDocument, bool)
	Heads() Heads
	Change(f func(doc *docmodel.DirectoryDocument)) error
	ChangeAt(base Heads, f func(doc *docmodel.DirectoryDocument)) error
	GetSyncInfo(relayID string) (SyncInfo, error)
	Subscribe() (ch <-chan RemoteHeadsEvent, cancel func())
}

// Repo is the opaque CRDT repository collaborator (spec §6). It is
// split into file/directory creation+lookup because the two document
// kinds need distinct handle types; everything else (heads equality,
// remote subscription) is shared.
type Repo interface {
	CreateFile(doc *docmodel.FileDocument) (FileHandle, error)
	FindFile(ctx context.Context, url string) (FileHandle, error)

	CreateDir(doc *docmodel.DirectoryDocument) (DirHandle, error)
	FindDir(ctx context.Context, url string) (DirHandle, error)

	HeadsEqual(a, b Heads) bool
	SubscribeToRemotes(relayIDs []string) error
}
