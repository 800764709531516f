package kit

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/satindergrewal/stepseq/internal/logger"
)

// DefaultDebounce is how long the kit file must stay quiet before it is
// reloaded. Editors tend to write in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the kit at path whenever it changes and passes the result to
// onChange. Files that fail to parse are logged and skipped. It blocks until
// ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Kit)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create kit watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so rename-on-save editors keep working.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Kit watcher error", logger.ErrorField(err))

		case <-timer.C:
			k, err := Load(path)
			if err != nil {
				logger.Warn("Kit reload failed", logger.String("path", path), logger.ErrorField(err))
				continue
			}
			logger.Info("Kit reloaded", logger.String("path", path), logger.Int("tracks", len(k.Tracks)))
			onChange(k)
		}
	}
}
