package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchDisplay monitors path and calls onChange with base overlaid by the file's
// display section each time the file changes. It runs until ctx is cancelled.
//
// A failed reload is logged and the previous display settings stay active.
func WatchDisplay(ctx context.Context, path string, base Display, onChange func(Display)) error {
	// Fail early on a missing file; the directory watch below would not notice.
	if _, err := os.Stat(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: an atomic save renames a new inode over path, which a
	// watch on the file itself never reports.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			overlay, err := LoadDisplay(path)
			if err != nil {
				// A Rename away from path leaves nothing to read until the next Create.
				slog.Error("config: reload failed, keeping previous display",
					"path", path, "err", err)
				continue
			}

			display := base.Merge(overlay).withDefaults()
			slog.Info("config: reloaded", "path", path,
				"location", display.Location, "timezone", display.Timezone)
			onChange(display)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
