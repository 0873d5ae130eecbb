package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval coalesces the burst of events editors emit on save.
const DebounceInterval = 250 * time.Millisecond

// WatchSource watches the source table and calls run after each settled
// change until ctx is cancelled. The table's directory is watched rather
// than the file so atomic-rename saves are seen. Errors from run are
// logged and watching continues.
func WatchSource(ctx context.Context, sourcePath string, logger *slog.Logger, run func(context.Context) error) error {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return fmt.Errorf("pipeline: watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pipeline: watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("pipeline: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("source watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("source watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			if err := run(ctx); err != nil {
				logger.Error("source watcher: run failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(DebounceInterval)
			} else {
				timer.Reset(DebounceInterval)
			}
			fire = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("source watcher: error", slog.String("error", werr.Error()))
		}
	}
}
