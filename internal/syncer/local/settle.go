package local

import (
	"io/fs"
	"os"
	"sort"
	"time"

	"mirrorwatch/internal/model"
)

type pendingWrite struct {
	op    model.EventType
	size  int64
	since time.Time
}

// settleTracker holds back added/modified events until the file size has not
// changed for threshold.
type settleTracker struct {
	threshold time.Duration
	pending   map[string]*pendingWrite
	stat      func(string) (fs.FileInfo, error)
}

func newSettleTracker(threshold time.Duration) *settleTracker {
	return &settleTracker{
		threshold: threshold,
		pending:   make(map[string]*pendingWrite),
		stat:      os.Stat,
	}
}

func (s *settleTracker) Add(path string, op model.EventType, now time.Time) {
	info, err := s.stat(path)
	if err != nil || info.IsDir() {
		return
	}

	if p, ok := s.pending[path]; ok {
		// a file added and then written to is still reported as added
		p.size = info.Size()
		p.since = now
		return
	}

	s.pending[path] = &pendingWrite{op: op, size: info.Size(), since: now}
}

// Forget drops a pending write and returns its kind, or "" if none was pending.
func (s *settleTracker) Forget(path string) model.EventType {
	p, ok := s.pending[path]
	if !ok {
		return ""
	}
	delete(s.pending, path)
	return p.op
}

// Check returns the writes that settled, oldest first.
func (s *settleTracker) Check(now time.Time) []model.FileEvent {
	var settled []model.FileEvent
	var since []time.Time

	for path, p := range s.pending {
		info, err := s.stat(path)
		if err != nil {
			// gone before it settled; the removal is reported by the watcher
			delete(s.pending, path)
			continue
		}

		if info.Size() != p.size {
			p.size = info.Size()
			p.since = now
			continue
		}

		if now.Sub(p.since) < s.threshold {
			continue
		}

		delete(s.pending, path)
		settled = append(settled, model.FileEvent{Type: p.op, Path: path, Timestamp: now})
		since = append(since, p.since)
	}

	sort.Sort(bySince{settled, since})
	return settled
}

func (s *settleTracker) Len() int {
	return len(s.pending)
}

type bySince struct {
	events []model.FileEvent
	since  []time.Time
}

func (b bySince) Len() int { return len(b.events) }

func (b bySince) Less(i, j int) bool {
	if b.since[i].Equal(b.since[j]) {
		return b.events[i].Path < b.events[j].Path
	}
	return b.since[i].Before(b.since[j])
}

func (b bySince) Swap(i, j int) {
	b.events[i], b.events[j] = b.events[j], b.events[i]
	b.since[i], b.since[j] = b.since[j], b.since[i]
}
