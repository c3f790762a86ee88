// Package docurl handles document URL parsing/stringification and
// relative-path normalization used throughout the engine (spec glossary:
// Versioned URL / Plain URL).
package docurl

import (
	"path"
	"strings"
)

const headsQueryKey = "heads"

// Parsed is a document URL split into its plain identity and optional
// embedded heads (version pin).
type Parsed struct {
	Plain string
	Heads string // empty when the URL carries no heads
}

// Parse splits a URL of the form "pushwork://<id>" or
// "pushwork://<id>?heads=<heads>" into its plain form and heads.
func Parse(raw string) Parsed {
	idx := strings.Index(raw, "?"+headsQueryKey+"=")
	if idx < 0 {
		return Parsed{Plain: raw}
	}
	return Parsed{
		Plain: raw[:idx],
		Heads: raw[idx+len(headsQueryKey)+2:],
	}
}

// Plain strips any embedded heads, returning a mutable-access URL.
func Plain(raw string) string {
	return Parse(raw).Plain
}

// WithHeads returns a versioned URL embedding the given heads. An empty
// heads value returns the plain URL unchanged.
func WithHeads(raw, heads string) string {
	plain := Plain(raw)
	if heads == "" {
		return plain
	}
	return plain + "?" + headsQueryKey + "=" + heads
}

// HasHeads reports whether raw carries an embedded heads component.
func HasHeads(raw string) bool {
	return Parse(raw).Heads != ""
}

// NormPath cleans a relative path to forward-slash form with no leading
// slash, mirroring the teacher's workspace.NormPath.
func NormPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Join joins relative path segments and normalizes the result.
func Join(elem ...string) string {
	return NormPath(path.Join(elem...))
}

// Dir returns the normalized parent of a relative path ("" for a
// top-level entry).
func Dir(p string) string {
	p = NormPath(p)
	if p == "" {
		return ""
	}
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// Base returns the leaf name of a relative path.
func Base(p string) string {
	return path.Base(NormPath(p))
}

// Depth returns the number of path segments ("a/b/c" is 3, root is 0),
// used to sort paths deepest-first in the push phase.
func Depth(p string) int {
	p = NormPath(p)
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// Ancestors returns every ancestor directory of p, root ("") last,
// ordered from p's immediate parent to root.
func Ancestors(p string) []string {
	var out []string
	dir := Dir(p)
	for {
		out = append(out, dir)
		if dir == "" {
			break
		}
		dir = Dir(dir)
	}
	return out
}
