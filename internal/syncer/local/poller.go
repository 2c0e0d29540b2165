package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/syncer"

	"go.uber.org/zap"
)

type fileState struct {
	size    int64
	modTime time.Time
}

func (f fileState) changed(other fileState) bool {
	return f.size != other.size || !f.modTime.Equal(other.modTime)
}

// Poller detects changes by rescanning the tree every PollInterval. It works
// on mounts where native notifications are missing or unreliable.
type Poller struct {
	*source
	files    map[string]fileState
	rootDown bool
}

func NewPoller(root string, opts Options) (*Poller, error) {
	src, err := newSource(root, opts)
	if err != nil {
		return nil, err
	}

	return &Poller{
		source: src,
		files:  make(map[string]fileState),
	}, nil
}

// Start performs the initial scan synchronously; the ready event is the
// first thing on the event channel once it succeeds.
func (p *Poller) Start(ctx context.Context) error {
	files, errs, err := p.scan()
	if err != nil {
		return fmt.Errorf("initial scan of %s: %w", p.root, err)
	}
	p.files = files

	for _, e := range errs {
		p.report(e)
	}

	if err := p.run(ctx, p.loop); err != nil {
		return err
	}

	logger.Log.Info("watcher started",
		zap.String("dir", p.root),
		zap.String("mode", "polling"),
		zap.Duration("interval", p.opts.PollInterval),
		zap.Int("files", len(files)))
	return nil
}

func (p *Poller) Close() error {
	p.stop()
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	ready := model.FileEvent{Type: model.EventReady, Path: p.root, Timestamp: time.Now()}
	if !p.emit(ctx, ready) {
		return
	}

	scanTicker := time.NewTicker(p.opts.PollInterval)
	defer scanTicker.Stop()

	settleTicker := time.NewTicker(p.opts.SettlePoll)
	defer settleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("watcher stopping")
			return

		case <-scanTicker.C:
			p.poll(ctx)

		case now := <-settleTicker.C:
			p.emitSettled(ctx, now)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	files, errs, err := p.scan()
	if err != nil {
		if !p.rootDown {
			p.rootDown = true
			p.report(fmt.Errorf("%w: %s: %w", syncer.ErrRootUnavailable, p.root, err))
		}
		return
	}

	if p.rootDown {
		p.rootDown = false
		logger.Log.Info("watched root is available again",
			zap.String("dir", p.root))
	}

	for _, e := range errs {
		p.report(e)
	}

	now := time.Now()

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		old, known := p.files[path]
		switch {
		case !known:
			p.settle.Add(path, model.EventAdded, now)
		case old.changed(files[path]):
			p.settle.Add(path, model.EventModified, now)
		}
	}

	var removed []string
	for path := range p.files {
		if _, ok := files[path]; !ok {
			removed = append(removed, path)
		}
	}
	sort.Strings(removed)

	p.files = files

	for _, path := range removed {
		p.emitRemoved(ctx, path, now)
	}
}

// scan lists every non-ignored regular file under the root. Errors below the
// root are returned separately and do not abort the walk.
func (p *Poller) scan() (map[string]fileState, []error, error) {
	info, err := os.Stat(p.root)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", p.root)
	}

	files := make(map[string]fileState, len(p.files))
	var errs []error

	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return err
			}
			errs = append(errs, fmt.Errorf("failed to scan %s: %w", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if p.ignored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			// removed between listing and stat
			return nil
		}

		files[path] = fileState{size: fi.Size(), modTime: fi.ModTime()}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return files, errs, nil
}
