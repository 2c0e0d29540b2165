package pipeline

import (
	"sync"
	"time"
)

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Debouncer collapses bursts of Trigger calls into one call of fire, made
// delay after the last Trigger. At most one timer is pending at any time.
type Debouncer struct {
	delay     time.Duration
	fire      func()
	afterFunc afterFunc

	mu      sync.Mutex
	timer   timer
	seq     uint64
	stopped bool
}

func NewDebouncer(delay time.Duration, fire func()) *Debouncer {
	return &Debouncer{
		delay:     delay,
		fire:      fire,
		afterFunc: realAfterFunc,
	}
}

// Trigger cancels the pending invocation, if any, and schedules a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = d.afterFunc(d.delay, func() {
		d.mu.Lock()
		// a timer that fired while being replaced must not run
		if seq != d.seq || d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.fire()
	})
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops the pending invocation without firing it.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Stop cancels the pending invocation and ignores every later Trigger.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	d.seq++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
