package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"

	"github.com/pushwork/pushwork/internal/config"
	"github.com/pushwork/pushwork/internal/engine"
	"github.com/pushwork/pushwork/internal/ignore"
	"github.com/pushwork/pushwork/internal/logging"
	"github.com/pushwork/pushwork/internal/repo"
	"github.com/pushwork/pushwork/internal/repo/memrepo"
	"github.com/pushwork/pushwork/internal/vfs"
	"github.com/pushwork/pushwork/internal/workspace"
)

// sharedRepo backs every pushwork invocation in this process. A real
// deployment would swap this for a networked CRDT repository binding;
// see DESIGN.md's "Repository backend wiring" note.
var sharedRepo repo.Repo = memrepo.New()

// app bundles the collaborators one CLI command needs.
type app struct {
	root    string
	ws      *workspace.Workspace
	cfg     *config.Config
	fs      vfs.Filesystem
	matcher *ignore.Matcher
	eng     *engine.Engine
}

// openApp requires an already-initialized `.pushwork` control
// directory; used by every command except init/clone.
func openApp(root string) (*app, error) {
	ws, err := workspace.New(root)
	if err != nil {
		return nil, err
	}
	if !ws.IsInitialized() {
		return nil, fmt.Errorf("not a pushwork directory (run `pushwork init %s` first)", root)
	}
	return buildApp(ws)
}

func buildApp(ws *workspace.Workspace) (*app, error) {
	teeLogToWorkspace(ws)

	cfg, err := config.Load(ws.Root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	matcher := ignore.New(ws.Root, cfg.ExcludePatterns, cfg.ArtifactDirectories)
	fs := vfs.NewOS()

	eng := engine.New(ws.Root, fs, sharedRepo, matcher, engine.Options{
		SyncEnabled:   cfg.SyncEnabled,
		RelayID:       cfg.SyncServerStorageID,
		MoveThreshold: cfg.MoveDetectionThreshold,
	})

	return &app{root: ws.Root, ws: ws, cfg: cfg, fs: fs, matcher: matcher, eng: eng}, nil
}

// teeLogToWorkspace upgrades the process-wide logger to also append to
// <root>/.pushwork/logs/pushwork.log, once per invocation. A failure to
// open the log file is non-fatal; the terminal handler keeps working.
func teeLogToWorkspace(ws *workspace.Workspace) {
	logPath := filepath.Join(ws.LogsDir, "pushwork.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("could not open log file", "path", logPath, "error", err)
		return
	}
	fileHandler := tint.NewHandler(f, &tint.Options{Level: slog.LevelDebug, NoColor: true})
	slog.SetDefault(slog.New(logging.NewMultiHandler(slog.Default().Handler(), fileHandler)))
}
