package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// reloadOps are the events that can leave new content at the config path.
// Editors that save by renaming a temp file over the original produce Create
// (or Rename on some platforms) for the target name, not Write.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watch reloads the config at path whenever it changes on disk and passes the
// result to onChange. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so the watch
// survives the file being replaced. A reload that fails to load or validate
// is logged and skipped; the caller keeps its previous config.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	target := filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("server config: new watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("server config: watch %q: %w", dir, err)
	}
	slog.Info("server config: watching for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&reloadOps == 0 {
				continue
			}
			reload(target, event.Op, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("server config: watcher error", "err", err)
		}
	}
}

func reload(path string, op fsnotify.Op, onChange func(*Config)) {
	cfg, err := Load(path)
	if err != nil {
		// A rename away from path leaves nothing to read until the next save.
		slog.Warn("server config: reload skipped", "path", path, "op", op.String(), "err", err)
		return
	}
	slog.Info("server config: reloaded", "path", path, "op", op.String(), "log_level", cfg.Server.Log.Level)
	onChange(cfg)
}
