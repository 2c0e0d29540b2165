package local

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"mirrorwatch/internal/config"
	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/pipeline"
	"mirrorwatch/internal/syncer"

	"go.uber.org/zap"
)

type Options struct {
	PollInterval    time.Duration
	SettleThreshold time.Duration
	SettlePoll      time.Duration
	BufferSize      int
	Matcher         *pipeline.Matcher
}

func OptionsFromConfig(cfg *config.Config, matcher *pipeline.Matcher) Options {
	return Options{
		PollInterval:    cfg.PollInterval,
		SettleThreshold: cfg.SettleThreshold,
		SettlePoll:      cfg.SettlePoll,
		BufferSize:      cfg.BufferSize,
		Matcher:         matcher,
	}
}

// NewSource builds the change detector for the configured watch mode.
func NewSource(mode, root string, opts Options) (syncer.EventSource, error) {
	switch mode {
	case config.WatchModePolling:
		return NewPoller(root, opts)
	case config.WatchModeNative:
		return NewWatcher(root, opts)
	default:
		return nil, fmt.Errorf("unsupported watch mode: %s", mode)
	}
}

// source carries what the poller and the native watcher share: the settle
// tracker, the output channels and the lifecycle of the single goroutine that
// owns them.
type source struct {
	root   string
	opts   Options
	settle *settleTracker

	eventCh chan model.FileEvent
	errCh   chan error

	mu      sync.Mutex
	cancel  context.CancelFunc
	doneCh  chan struct{}
	started bool
}

func newSource(root string, opts Options) (*source, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = config.Default.BufferSize
	}
	if opts.SettlePoll <= 0 {
		opts.SettlePoll = config.Default.SettlePoll
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.Default.PollInterval
	}

	return &source{
		root:    absRoot,
		opts:    opts,
		settle:  newSettleTracker(opts.SettleThreshold),
		eventCh: make(chan model.FileEvent, opts.BufferSize),
		errCh:   make(chan error, opts.BufferSize),
		doneCh:  make(chan struct{}),
	}, nil
}

func (s *source) Events() <-chan model.FileEvent {
	return s.eventCh
}

func (s *source) Errors() <-chan error {
	return s.errCh
}

// run starts loop on its own goroutine. The output channels are closed when
// loop returns.
func (s *source) run(ctx context.Context, loop func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("watcher already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.doneCh)
		defer close(s.errCh)
		defer close(s.eventCh)
		loop(ctx)
	}()

	return nil
}

// stop cancels the loop and blocks until it has returned.
func (s *source) stop() {
	s.mu.Lock()
	started, cancel := s.started, s.cancel
	s.mu.Unlock()

	if !started {
		return
	}

	cancel()
	<-s.doneCh
}

func (s *source) emit(ctx context.Context, event model.FileEvent) bool {
	select {
	case s.eventCh <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *source) emitSettled(ctx context.Context, now time.Time) {
	for _, event := range s.settle.Check(now) {
		if !s.emit(ctx, event) {
			return
		}
	}
}

// emitRemoved reports a removal unless the file was only ever seen as a
// pending add.
func (s *source) emitRemoved(ctx context.Context, path string, now time.Time) {
	if s.settle.Forget(path) == model.EventAdded {
		logger.Log.Debug("dropping unsettled file",
			zap.String("path", path))
		return
	}
	s.emit(ctx, model.FileEvent{Type: model.EventRemoved, Path: path, Timestamp: now})
}

func (s *source) report(err error) {
	select {
	case s.errCh <- err:
	default:
		logger.Log.Warn("error channel is full, dropping error",
			zap.Error(err))
	}
}

func (s *source) ignored(path string, isDir bool) bool {
	if path == s.root {
		return false
	}
	if isDir {
		return s.opts.Matcher.IgnoredDir(path)
	}
	return s.opts.Matcher.Ignored(path)
}
