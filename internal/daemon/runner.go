package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mirrorwatch/internal/config"
	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/pipeline"
	"mirrorwatch/internal/syncer"

	"go.uber.org/zap"
)

type HistoryStore interface {
	Save(result model.SyncResult) error
}

// Runner connects the change detector to the sync backend. Change events go
// through the debouncer; the ready event and manual requests go straight to
// the serializer, which keeps sync runs from overlapping.
type Runner struct {
	cfg        *config.Config
	src        syncer.EventSource
	syncer     syncer.Syncer
	history    HistoryStore
	state      *State
	debouncer  *pipeline.Debouncer
	serializer *pipeline.Serializer

	mu      sync.Mutex
	started bool
	doneCh  chan struct{}
}

// NewRunner wires the pieces together. history may be nil.
func NewRunner(cfg *config.Config, src syncer.EventSource, s syncer.Syncer, history HistoryStore) *Runner {
	r := &Runner{
		cfg:     cfg,
		src:     src,
		syncer:  s,
		history: history,
		state:   NewState(cfg),
		doneCh:  make(chan struct{}),
	}

	r.serializer = pipeline.NewSerializer(r.runSync)
	r.debouncer = pipeline.NewDebouncer(cfg.Cooldown, func() {
		if !r.serializer.Run(model.ReasonChange) {
			logger.Log.Debug("sync already running, rerun scheduled")
		}
	})

	return r
}

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("runner already started")
	}

	if err := r.src.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	r.started = true

	go r.loop()
	return nil
}

func (r *Runner) loop() {
	defer close(r.doneCh)

	events, errs := r.src.Events(), r.src.Errors()
	for events != nil || errs != nil {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.handleEvent(event)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.handleError(err)
		}
	}
}

func (r *Runner) handleEvent(event model.FileEvent) {
	if r.state.Status() == model.WatchStatusDegraded {
		r.state.SetStatus(model.WatchStatusWatching)
	}

	switch event.Type {
	case model.EventReady:
		r.state.SetStatus(model.WatchStatusWatching)
		logger.Log.Info("initial scan complete, running first sync")
		r.serializer.Run(model.ReasonInitial)
		return

	case model.EventAdded:
		logger.Log.Info("file has been added",
			zap.String("path", event.Path))

	case model.EventModified:
		logger.Log.Info("file has been changed",
			zap.String("path", event.Path))

	case model.EventRemoved:
		logger.Log.Info("file has been removed",
			zap.String("path", event.Path))

	default:
		return
	}

	r.state.RecordEvent()
	r.debouncer.Trigger()
}

func (r *Runner) handleError(err error) {
	logger.Log.Error("watcher error",
		zap.Error(err))

	r.state.RecordError(err)
	if errors.Is(err, syncer.ErrRootUnavailable) {
		r.state.SetStatus(model.WatchStatusDegraded)
	}
}

// TriggerNow requests a sync without waiting for the cooldown. It reports
// whether the run started right away or was queued behind a running one.
func (r *Runner) TriggerNow() bool {
	return r.serializer.Run(model.ReasonManual)
}

func (r *Runner) runSync(ctx context.Context, reason model.SyncReason) {
	req := model.SyncRequest{
		Source:   r.cfg.SourceDir,
		Target:   r.cfg.TargetDir,
		FullCopy: r.cfg.FullCopy,
		Reason:   reason,
	}

	logger.Log.Info("starting file synchronization",
		zap.String("reason", string(reason)))

	r.state.SetSyncing(true)
	result := r.syncer.Sync(ctx, req)
	r.state.SetSyncing(false)
	r.state.RecordSync(result)

	if result.Err != nil {
		logger.Log.Error("sync failed",
			zap.Int("exit_code", result.ExitCode),
			zap.String("stderr", result.Stderr),
			zap.Error(result.Err))
	} else {
		if result.Stderr != "" {
			logger.Log.Warn("sync reported on stderr",
				zap.String("stderr", result.Stderr))
		}
		logger.Log.Debug("sync output",
			zap.String("stdout", result.Stdout))
		logger.Log.Info("file synchronization completed",
			zap.Int("exit_code", result.ExitCode),
			zap.Duration("took", result.Duration))
	}

	if r.history != nil {
		if err := r.history.Save(result); err != nil {
			logger.Log.Warn("failed to save history",
				zap.Error(err))
		}
	}
}

func (r *Runner) Snapshot() model.Snapshot {
	return r.state.Snapshot()
}

func (r *Runner) SyncState() pipeline.RunState {
	return r.serializer.State()
}

func (r *Runner) Pending() bool {
	return r.debouncer.Pending()
}

// Shutdown cancels a pending sync, releases the watcher and then waits for
// an in-flight sync until ctx ends, after which that sync is cancelled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.state.SetStatus(model.WatchStatusStopping)

	if r.debouncer.Stop() {
		logger.Log.Info("pending sync cancelled")
	}

	closeErr := r.src.Close()

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.doneCh
	}

	var waitErr error
	if err := r.serializer.Close(ctx); err != nil {
		logger.Log.Warn("in-flight sync did not finish in time, cancelled",
			zap.Error(err))
		waitErr = fmt.Errorf("waiting for in-flight sync: %w", err)
	}

	return errors.Join(closeErr, waitErr)
}
