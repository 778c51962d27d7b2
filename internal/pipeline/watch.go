package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-renders the map each time dataPath is written or replaced, until
// ctx is cancelled. The parent directory is watched because atomic writes
// replace the file rather than modify it. Failed renders are logged and the
// previous map stays in place.
func (r *Renderer) Watch(ctx context.Context, dataPath, outputPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(dataPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(dataPath)

	r.logger.Info("watching for data changes", "file", dataPath)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopping", "reason", ctx.Err())
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			r.logger.Debug("data file changed", "file", ev.Name, "op", ev.Op.String())
			if _, err := r.Run(ctx, dataPath, outputPath); err != nil {
				r.logger.Error("re-render failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", "error", err)
		}
	}
}
