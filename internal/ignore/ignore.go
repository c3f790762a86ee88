// Package ignore compiles exclude-pattern and artifact-directory
// matchers for the change detector. Grounded on
// internal/client/sync/sync_ignore.go's SyncIgnoreList, adapted to
// pushwork's `.pushworkignore` override and artifact-directory prefixes.
package ignore

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludePatterns holds the built-in excludes ".git,
// node_modules, *.tmp, .pushwork, .DS_Store" plus "*.pushwork.tmp.*".
var DefaultExcludePatterns = []string{
	".git",
	"node_modules",
	"*.tmp",
	".pushwork",
	".DS_Store",
	"*.pushwork.tmp.*",
}

// Matcher decides which relative paths are excluded from sync and which
// fall under an artifact-directory policy (spec §4.4.7).
type Matcher struct {
	baseDir   string
	ignore    *gitignore.GitIgnore
	artifacts []string // normalized path prefixes
}

// New compiles a Matcher from the configured exclude patterns and
// artifact directory prefixes, additionally loading a `.pushworkignore`
// file at the root if present (mirrors the teacher's "syftignore" local
// override file).
func New(baseDir string, configuredExcludes, artifactDirectories []string) *Matcher {
	lines := append([]string{}, DefaultExcludePatterns...)
	lines = append(lines, configuredExcludes...)

	overridePath := filepath.Join(baseDir, ".pushworkignore")
	if custom, err := readIgnoreFile(overridePath); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read .pushworkignore", "path", overridePath, "error", err)
		}
	} else if len(custom) > 0 {
		lines = append(lines, custom...)
		slog.Info("loaded .pushworkignore", "path", overridePath, "rules", len(custom))
	}

	norm := make([]string, len(artifactDirectories))
	for i, a := range artifactDirectories {
		norm[i] = strings.Trim(filepath.ToSlash(a), "/")
	}

	return &Matcher{
		baseDir:   baseDir,
		ignore:    gitignore.CompileIgnoreLines(lines...),
		artifacts: norm,
	}
}

// ShouldIgnore reports whether relPath (relative to baseDir, forward
// slashes) is excluded from sync.
func (m *Matcher) ShouldIgnore(relPath string) bool {
	return m.ignore.MatchesPath(relPath)
}

// IsArtifact reports whether relPath falls under a configured
// artifact-directory prefix (spec §4.4.7).
func (m *Matcher) IsArtifact(relPath string) bool {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	for _, prefix := range m.artifacts {
		if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
			return true
		}
		if ok, _ := doublestar.Match(prefix, relPath); ok {
			return true
		}
	}
	return false
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
