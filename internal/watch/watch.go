// Package watch reports changes to a fixed set of files while a session is open.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sanadlab/migmate/internal/logging"
)

// Watcher watches the parent directories of a set of files, so atomic replacements by rename are seen as well as in-place writes.
type Watcher struct {
	fsw    *fsnotify.Watcher
	files  map[string]struct{}
	logger *zap.Logger
}

// New starts watching paths.
func New(paths []string, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:    fsw,
		files:  make(map[string]struct{}, len(paths)),
		logger: logging.OrNop(logger),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run calls onChange for every create, write, remove or rename of a watched file. It returns when ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			if _, ok := w.files[path]; !ok {
				continue
			}
			w.logger.Debug("file changed", zap.String("file", path), zap.Stringer("op", event.Op))
			onChange(path)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
