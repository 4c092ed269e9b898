// Package watcher reports changes to a single log file.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/newhook/remedy/internal/logging"
)

// DefaultDebounce coalesces bursts of writes into one notification.
const DefaultDebounce = 50 * time.Millisecond

// Watcher watches the directory holding a file so creation, rotation and
// removal are seen as well as writes.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	changes  chan struct{}
}

// New starts watching path. The parent directory must exist.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		fs:       fsw,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Changes receives one value per debounced burst. Notifications are
// dropped while a previous one is unread.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run delivers notifications until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logging.Warn("file watcher error", "path", w.path, "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
