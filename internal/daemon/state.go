package daemon

import (
	"sync"
	"time"

	"mirrorwatch/internal/config"
	"mirrorwatch/internal/model"
)

type State struct {
	mu   sync.RWMutex
	snap model.Snapshot
}

func NewState(cfg *config.Config) *State {
	return &State{
		snap: model.Snapshot{
			Source:    cfg.SourceDir,
			Target:    cfg.TargetDir,
			FullCopy:  cfg.FullCopy,
			Status:    model.WatchStatusStarting,
			StartedAt: time.Now(),
		},
	}
}

func (s *State) SetStatus(status model.WatchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Status = status
}

func (s *State) Status() model.WatchStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Status
}

func (s *State) RecordEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Events++
}

func (s *State) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Errors++
	s.snap.LastError = err.Error()
}

func (s *State) SetSyncing(syncing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Syncing = syncing
}

func (s *State) RecordSync(result model.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snap.LastSync = &now
	if result.Err != nil {
		s.snap.Failed++
		s.snap.LastError = result.Err.Error()
	} else {
		s.snap.Synced++
	}
}

func (s *State) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	if s.snap.LastSync != nil {
		last := *s.snap.LastSync
		snap.LastSync = &last
	}
	return snap
}
