// Package mime classifies file paths and content into a MIME type and a
// text-vs-binary verdict (spec §1: "MIME-type classification and
// binary-vs-text detection (pure function)"). Grounded on
// internal/utils/content_type.go, generalized with content sniffing so
// the engine can tell text from binary for extensionless files too.
package mime

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var textLikeExtensions = map[string]bool{
	".yaml": true, ".yml": true, ".toml": true, ".md": true,
	".txt": true, ".json": true, ".csv": true, ".go": true,
	".py": true, ".js": true, ".ts": true, ".html": true, ".css": true,
	".sh": true, ".rs": true, ".c": true, ".h": true, ".java": true,
}

// DetectType returns the best-guess MIME type for path.
func DetectType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if textLikeExtensions[ext] {
		return "text/plain; charset=utf-8"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// IsBinary reports whether content should be treated as binary: a NUL
// byte or invalid UTF-8 within the first 8 KiB marks content binary;
// bytes past that prefix are not examined. An empty file is not binary.
func IsBinary(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	return !utf8.Valid(sample)
}

// Extension returns the lowercase extension (without the dot) of path.
func Extension(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}
