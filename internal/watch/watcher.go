// Package watch reports changes to a single file.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher calls a function after a file changes.
type FileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *FileWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *FileWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New watches path. The parent directory is watched so editors that replace
// the file on save keep being tracked.
func New(path string, opts ...Option) (*FileWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(absPath), err)
	}

	w := &FileWatcher{
		path:     absPath,
		debounce: DefaultDebounce,
		watcher:  watcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute watched path.
func (w *FileWatcher) Path() string { return w.path }

// Run calls onChange after every debounced burst of writes, creates or
// renames of the file. It blocks until ctx is done and closes the watcher.
// onChange runs on the Run goroutine and is never called concurrently.
func (w *FileWatcher) Run(ctx context.Context, onChange func()) error {
	defer func() { _ = w.watcher.Close() }()

	w.logger.Info("Watching file", logfields.Path(w.path))

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				if event.Has(fsnotify.Remove) {
					w.logger.Warn("Watched file removed", logfields.Path(w.path))
				}
				continue
			}
			w.logger.Debug("File change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case <-timer.C:
			onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}
