// Package watch re-runs a callback when a single file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the
// callback runs.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher watches one file. Editors that save by writing a temporary file
// and renaming it into place are handled by watching the parent
// directory and filtering on the file name.
type FileWatcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	ready    chan struct{}
}

// NewFileWatcher creates a FileWatcher for path. A zero debounce uses DefaultDebounce.
func NewFileWatcher(path string, debounce time.Duration, logger *slog.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{path: path, debounce: debounce, logger: logger, ready: make(chan struct{})}
}

// Ready is closed once the watch is registered and changes will be seen.
func (w *FileWatcher) Ready() <-chan struct{} { return w.ready }

// Run blocks until ctx is cancelled, calling onChange after each burst of
// changes to the file. onChange runs on the watching goroutine, so changes made
// while it runs are coalesced into the next call.
func (w *FileWatcher) Run(ctx context.Context, onChange func(context.Context)) error {
	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck

	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	close(w.ready)
	w.logger.Info("watching for changes", "path", target, "debounce_ms", w.debounce.Milliseconds())

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}
