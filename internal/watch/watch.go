// Package watch reruns a callback whenever a single file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"montage/internal/logging"
)

// DefaultDebounce coalesces the burst of events editors emit for one save.
const DefaultDebounce = 250 * time.Millisecond

// Func handles one settled change. Errors are logged and watching continues.
type Func func(ctx context.Context) error

// Options tunes Watch.
type Options struct {
	Debounce time.Duration
	// Initial runs fn once before the first event.
	Initial bool
	Logger  *slog.Logger
}

// Watch calls fn after path is written, created or replaced, until ctx is
// canceled. The parent directory is watched so editors that save by rename
// keep triggering.
func Watch(ctx context.Context, path string, fn Func, opts Options) error {
	if fn == nil {
		return errors.New("watch: nil callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := logging.NewComponentLogger(opts.Logger, "watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}

	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("change handler failed",
				logging.String("path", abs),
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_handler_failed"),
			)
		}
	}
	if opts.Initial {
		run()
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	logger.Debug("watching file", logging.String("path", abs))
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			if _, err := os.Stat(abs); err != nil {
				// Mid-rename; the Create for the replacement will follow.
				continue
			}
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Debug("watcher error", logging.Error(err))
		}
	}
}
