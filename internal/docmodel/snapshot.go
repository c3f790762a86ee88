package docmodel

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotFileEntry records the last-synced state of one tracked file
// (spec §3).
type SnapshotFileEntry struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Head        string `json:"head"`
	Extension   string `json:"extension"`
	MimeType    string `json:"mimeType"`
	ContentHash string `json:"contentHash,omitempty"`
}

// SnapshotDirectoryEntry records the last-synced state of one tracked
// directory. The empty-string key in SyncSnapshot.Directories denotes root.
type SnapshotDirectoryEntry struct {
	Path    string     `json:"path"`
	URL     string     `json:"url"`
	Head    string     `json:"head"`
	Entries []DirEntry `json:"entries"`
}

// SyncSnapshot is the local, persisted reference point for change
// detection (spec §3).
type SyncSnapshot struct {
	Timestamp        time.Time                         `json:"timestamp"`
	RootPath         string                            `json:"rootPath"`
	RootDirectoryURL string                            `json:"rootDirectoryUrl"`
	Files            map[string]SnapshotFileEntry      `json:"files"`
	Directories      map[string]SnapshotDirectoryEntry `json:"directories"`
}

// NewSyncSnapshot creates an empty snapshot rooted at rootPath.
func NewSyncSnapshot(rootPath string) *SyncSnapshot {
	return &SyncSnapshot{
		Timestamp:   time.Now(),
		RootPath:    rootPath,
		Files:       map[string]SnapshotFileEntry{},
		Directories: map[string]SnapshotDirectoryEntry{},
	}
}

// Clone deep-copies the snapshot.
func (s *SyncSnapshot) Clone() *SyncSnapshot {
	out := &SyncSnapshot{
		Timestamp:        s.Timestamp,
		RootPath:         s.RootPath,
		RootDirectoryURL: s.RootDirectoryURL,
		Files:            make(map[string]SnapshotFileEntry, len(s.Files)),
		Directories:      make(map[string]SnapshotDirectoryEntry, len(s.Directories)),
	}
	for k, v := range s.Files {
		out.Files[k] = v
	}
	for k, v := range s.Directories {
		entries := make([]DirEntry, len(v.Entries))
		copy(entries, v.Entries)
		v.Entries = entries
		out.Directories[k] = v
	}
	return out
}

// UpsertFile records or replaces a file entry.
func (s *SyncSnapshot) UpsertFile(e SnapshotFileEntry) {
	s.Files[e.Path] = e
}

// RemoveFile deletes a file entry.
func (s *SyncSnapshot) RemoveFile(path string) {
	delete(s.Files, path)
}

// UpsertDir records or replaces a directory entry.
func (s *SyncSnapshot) UpsertDir(e SnapshotDirectoryEntry) {
	s.Directories[e.Path] = e
}

// RemoveDir deletes a directory entry.
func (s *SyncSnapshot) RemoveDir(path string) {
	delete(s.Directories, path)
}

// Validate rejects malformed snapshots per spec §4.1.
func (s *SyncSnapshot) Validate() []error {
	var errs []error
	if s.RootPath == "" {
		errs = append(errs, fmt.Errorf("snapshot: missing root path"))
	}
	if s.Timestamp.IsZero() || s.Timestamp.Unix() <= 0 {
		errs = append(errs, fmt.Errorf("snapshot: non-positive timestamp"))
	}
	if s.Files == nil {
		errs = append(errs, fmt.Errorf("snapshot: missing files map"))
	}
	if s.Directories == nil {
		errs = append(errs, fmt.Errorf("snapshot: missing directories map"))
	}
	for path := range s.Files {
		if _, isDir := s.Directories[path]; isDir {
			errs = append(errs, fmt.Errorf("snapshot: path %q is both file and directory", path))
		}
	}
	return errs
}

// pair is the [key, value] wire shape used for maps in the serialized
// snapshot (spec §6: "arrays of pairs for maps").
type pair[V any] struct {
	Key   string
	Value V
}

// MarshalJSON encodes a pair as a two-element [key, value] array.
func (p pair[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Value})
}

// UnmarshalJSON decodes a two-element [key, value] array.
func (p *pair[V]) UnmarshalJSON(data []byte) error {
	raw := []any{&p.Key, &p.Value}
	return json.Unmarshal(data, &raw)
}

type snapshotWire struct {
	Timestamp        time.Time                      `json:"timestamp"`
	RootPath         string                         `json:"rootPath"`
	RootDirectoryURL string                         `json:"rootDirectoryUrl"`
	Files            []pair[SnapshotFileEntry]      `json:"files"`
	Directories      []pair[SnapshotDirectoryEntry] `json:"directories"`
}

// MarshalJSON encodes maps as arrays of [key, value] pairs.
func (s *SyncSnapshot) MarshalJSON() ([]byte, error) {
	w := snapshotWire{
		Timestamp:        s.Timestamp,
		RootPath:         s.RootPath,
		RootDirectoryURL: s.RootDirectoryURL,
	}
	for k, v := range s.Files {
		w.Files = append(w.Files, pair[SnapshotFileEntry]{Key: k, Value: v})
	}
	for k, v := range s.Directories {
		w.Directories = append(w.Directories, pair[SnapshotDirectoryEntry]{Key: k, Value: v})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes arrays of [key, value] pairs back into maps.
func (s *SyncSnapshot) UnmarshalJSON(data []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Timestamp = w.Timestamp
	s.RootPath = w.RootPath
	s.RootDirectoryURL = w.RootDirectoryURL
	s.Files = make(map[string]SnapshotFileEntry, len(w.Files))
	for _, p := range w.Files {
		s.Files[p.Key] = p.Value
	}
	s.Directories = make(map[string]SnapshotDirectoryEntry, len(w.Directories))
	for _, p := range w.Directories {
		s.Directories[p.Key] = p.Value
	}
	return nil
}
