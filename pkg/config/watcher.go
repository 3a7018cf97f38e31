package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration when the file changes and delivers
// each valid new version to onChange. Invalid versions are logged and
// skipped, keeping the last good configuration active. Watch blocks
// until ctx is canceled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch placed on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	reload := func() {
		cfg, err := Load(target)
		if err != nil {
			slog.Error("ignoring invalid config change", "path", target, "error", err)
			return
		}
		slog.Info("configuration reloaded", "path", target)
		onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

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
			// Editors emit bursts of events per save.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}
