package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/syncer"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher detects changes through OS notifications (inotify, kqueue,
// ReadDirectoryChangesW). Directories are registered recursively, including
// ones created while watching.
type Watcher struct {
	*source
	fw   *fsnotify.Watcher
	dirs map[string]bool
}

func NewWatcher(root string, opts Options) (*Watcher, error) {
	src, err := newSource(root, opts)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		source: src,
		fw:     fw,
		dirs:   make(map[string]bool),
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.root); err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}

	if _, err := w.addRecursive(w.root); err != nil {
		return err
	}

	if err := w.run(ctx, w.loop); err != nil {
		return err
	}

	logger.Log.Info("watcher started",
		zap.String("dir", w.root),
		zap.String("mode", "native"),
		zap.Int("dirs", len(w.dirs)))
	return nil
}

// Close stops the event loop and releases the OS watches.
func (w *Watcher) Close() error {
	w.stop()
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// addRecursive registers dir and every non-ignored directory below it and
// returns the regular files found on the way.
func (w *Watcher) addRecursive(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.report(fmt.Errorf("failed to scan %s: %w", path, err))
			return nil
		}

		if w.ignored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		}

		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.dirs[path] = true
		logger.Log.Debug("watching directory",
			zap.String("path", path))
		return nil
	})

	return files, err
}

func (w *Watcher) loop(ctx context.Context) {
	ready := model.FileEvent{Type: model.EventReady, Path: w.root, Timestamp: time.Now()}
	if !w.emit(ctx, ready) {
		return
	}

	settleTicker := time.NewTicker(w.opts.SettlePoll)
	defer settleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsEvent)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.report(fmt.Errorf("watch error: %w", err))

		case now := <-settleTicker.C:
			w.emitSettled(ctx, now)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsEvent fsnotify.Event) {
	path := fsEvent.Name
	now := time.Now()

	switch {
	case fsEvent.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}

		if w.ignored(path, info.IsDir()) {
			return
		}

		if !info.IsDir() {
			w.settle.Add(path, model.EventAdded, now)
			return
		}

		// files can land in a new directory before its watch is registered
		files, err := w.addRecursive(path)
		if err != nil {
			w.report(err)
		}
		for _, f := range files {
			w.settle.Add(f, model.EventAdded, now)
		}

	case fsEvent.Has(fsnotify.Write):
		if w.ignored(path, false) {
			return
		}
		w.settle.Add(path, model.EventModified, now)

	case fsEvent.Has(fsnotify.Remove), fsEvent.Has(fsnotify.Rename):
		if path == w.root {
			w.report(fmt.Errorf("%w: %s", syncer.ErrRootUnavailable, path))
			return
		}

		if w.dirs[path] {
			delete(w.dirs, path)
			return
		}

		if w.ignored(path, false) {
			return
		}
		w.emitRemoved(ctx, path, now)
	}
}
