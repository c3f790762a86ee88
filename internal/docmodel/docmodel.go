// Package docmodel defines the CRDT document shapes and the persisted
// sync snapshot that the engine reasons about.
package docmodel

import "time"

// ContentKind tags how a FileDocument's bytes are stored.
type ContentKind string

const (
	// ContentText is a collaborative CRDT text value supporting splice.
	ContentText ContentKind = "text"
	// ContentImmutableText is an immutable string snapshot (artifact text).
	ContentImmutableText ContentKind = "immutable_text"
	// ContentBytes is an immutable byte snapshot (binary files).
	ContentBytes ContentKind = "bytes"
)

// EntryType distinguishes directory entry kinds.
type EntryType string

const (
	EntryFile   EntryType = "file"
	EntryFolder EntryType = "folder"
)

// FileDocument is a CRDT document, one per tracked file (spec §3).
type FileDocument struct {
	Kind        string      `json:"kind"`
	Name        string      `json:"name"`
	Extension   string      `json:"extension"`
	MimeType    string      `json:"mimeType"`
	ContentKind ContentKind `json:"contentKind"`
	Text        string      `json:"text,omitempty"`
	Bytes       []byte      `json:"bytes,omitempty"`
	Permissions uint32      `json:"permissions"`
}

// NewFileDocument builds a file document tagged "file".
func NewFileDocument(name, extension, mimeType string, perm uint32) *FileDocument {
	return &FileDocument{
		Kind:        "file",
		Name:        name,
		Extension:   extension,
		MimeType:    mimeType,
		Permissions: perm,
	}
}

// Content returns the document's bytes regardless of storage tag.
func (f *FileDocument) Content() []byte {
	switch f.ContentKind {
	case ContentBytes:
		return f.Bytes
	default:
		return []byte(f.Text)
	}
}

// SetContent assigns bytes to the document using the given tag.
func (f *FileDocument) SetContent(kind ContentKind, data []byte) {
	f.ContentKind = kind
	switch kind {
	case ContentBytes:
		f.Bytes = data
		f.Text = ""
	default:
		f.Text = string(data)
		f.Bytes = nil
	}
}

// DirEntry is one entry in a DirectoryDocument's ordered `docs` sequence.
type DirEntry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
	URL  string    `json:"url"`
}

// DirectoryDocument is a CRDT document, one per tracked directory
// including root (spec §3).
type DirectoryDocument struct {
	Kind       string     `json:"kind"`
	Title      string     `json:"title,omitempty"`
	Docs       []DirEntry `json:"docs"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

// NewDirectoryDocument builds a directory document tagged "folder".
func NewDirectoryDocument(title string) *DirectoryDocument {
	return &DirectoryDocument{Kind: "folder", Title: title, Docs: []DirEntry{}}
}

// Find returns the entry with the given name and type, if present.
func (d *DirectoryDocument) Find(name string, typ EntryType) (DirEntry, bool) {
	for _, e := range d.Docs {
		if e.Name == name && e.Type == typ {
			return e, true
		}
	}
	return DirEntry{}, false
}

// Upsert inserts or replaces an entry by (name, type).
func (d *DirectoryDocument) Upsert(e DirEntry) {
	for i, existing := range d.Docs {
		if existing.Name == e.Name && existing.Type == e.Type {
			d.Docs[i] = e
			return
		}
	}
	d.Docs = append(d.Docs, e)
}

// Remove deletes the entry with the given name and type, if present.
func (d *DirectoryDocument) Remove(name string, typ EntryType) {
	out := d.Docs[:0]
	for _, e := range d.Docs {
		if e.Name == name && e.Type == typ {
			continue
		}
		out = append(out, e)
	}
	d.Docs = out
}
