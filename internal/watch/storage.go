// Package watch reports changes of the wallet file to the session.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc is called after the watched file changed
type ChangeFunc func(ctx context.Context)

// StorageWatcher watches one file through its directory, so the file
// may be created, replaced or removed while watched.
type StorageWatcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	logger   *zap.Logger
}

// NewStorageWatcher creates a watcher for path. Bursts of events within
// debounce are delivered as one onChange call.
func NewStorageWatcher(path string, debounce time.Duration, onChange ChangeFunc, logger *zap.Logger) *StorageWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is canceled. onChange runs on the Run goroutine.
func (w *StorageWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching wallet storage", zap.String("path", w.path))

	// Stopped timer; armed on the first relevant event
	timer := time.NewTimer(time.Hour)
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
			if filepath.Clean(event.Name) != w.path || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("wallet storage event", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("wallet storage watcher error", zap.Error(err))

		case <-timer.C:
			w.onChange(ctx)
		}
	}
}
