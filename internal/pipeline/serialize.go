package pipeline

import (
	"context"
	"sync"
	"time"

	"mirrorwatch/internal/model"
)

// cancelGrace bounds how long Close waits for a cancelled run to return.
// It covers the WaitDelay of a killed sync subprocess.
const cancelGrace = 3 * time.Second

type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateRunningWithPendingRerun
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateRunningWithPendingRerun:
		return "running, rerun pending"
	default:
		return "unknown"
	}
}

// Serializer runs action on its own goroutine, never more than one at a time.
// A Run that arrives while the action is running marks a single rerun, which
// starts as soon as the current run returns.
type Serializer struct {
	action func(ctx context.Context, reason model.SyncReason)
	ctx    context.Context
	cancel context.CancelFunc
	grace  time.Duration

	mu      sync.Mutex
	state   RunState
	pending model.SyncReason
	done    chan struct{}
	closed  bool
}

func NewSerializer(action func(ctx context.Context, reason model.SyncReason)) *Serializer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Serializer{
		action: action,
		ctx:    ctx,
		cancel: cancel,
		grace:  cancelGrace,
	}
}

// Run starts the action, or queues a rerun when it is already running.
// It reports whether a new run was started right away.
func (s *Serializer) Run(reason model.SyncReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	switch s.state {
	case StateIdle:
		s.state = StateRunning
		s.done = make(chan struct{})
		go s.loop(reason, s.done)
		return true
	default:
		s.state = StateRunningWithPendingRerun
		s.pending = reason
		return false
	}
}

func (s *Serializer) loop(reason model.SyncReason, done chan struct{}) {
	defer close(done)

	for {
		s.action(s.ctx, reason)

		s.mu.Lock()
		if s.state == StateRunningWithPendingRerun && !s.closed {
			s.state = StateRunning
			reason = s.pending
			s.mu.Unlock()
			continue
		}
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
}

func (s *Serializer) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close rejects further runs, drops a pending rerun and waits for the
// in-flight run. When ctx ends first the run's context is cancelled, the
// cancelled run gets a short grace period to return, and ctx.Err() is
// returned.
func (s *Serializer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.state == StateRunningWithPendingRerun {
		s.state = StateRunning
	}
	done := s.done
	s.mu.Unlock()

	if done == nil {
		s.cancel()
		return nil
	}

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		select {
		case <-done:
		case <-time.After(s.grace):
		}
		return ctx.Err()
	}
}
