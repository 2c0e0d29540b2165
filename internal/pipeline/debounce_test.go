package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives Debouncer timers by hand.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func newTestDebouncer(delay time.Duration) (*Debouncer, *fakeClock, *[]time.Duration) {
	clock := &fakeClock{}
	var fired []time.Duration
	d := NewDebouncer(delay, func() {
		fired = append(fired, clock.now)
	})
	d.afterFunc = clock.AfterFunc
	return d, clock, &fired
}

func TestDebouncerBurstFiresOnceAfterLastCall(t *testing.T) {
	d, clock, fired := newTestDebouncer(time.Second)

	d.Trigger()
	clock.Advance(300 * time.Millisecond)
	d.Trigger()
	clock.Advance(300 * time.Millisecond)
	d.Trigger()

	clock.Advance(999 * time.Millisecond)
	assert.Empty(t, *fired)
	assert.True(t, d.Pending())

	clock.Advance(time.Millisecond)
	require.Len(t, *fired, 1)
	assert.Equal(t, 1600*time.Millisecond, (*fired)[0])
	assert.False(t, d.Pending())

	clock.Advance(10 * time.Second)
	assert.Len(t, *fired, 1)
}

func TestDebouncerSpacedCallsFireEach(t *testing.T) {
	d, clock, fired := newTestDebouncer(time.Second)

	for i := 0; i < 5; i++ {
		d.Trigger()
		clock.Advance(time.Second)
	}

	assert.Len(t, *fired, 5)
}

func TestDebouncerNoCallsNoFire(t *testing.T) {
	d, clock, fired := newTestDebouncer(time.Second)

	clock.Advance(time.Hour)

	assert.Empty(t, *fired)
	assert.False(t, d.Pending())
	assert.False(t, d.Cancel())
}

func TestDebouncerSingleTimer(t *testing.T) {
	d, clock, _ := newTestDebouncer(time.Second)

	for i := 0; i < 10; i++ {
		d.Trigger()
	}

	live := 0
	for _, tm := range clock.timers {
		if !tm.stopped && !tm.fired {
			live++
		}
	}
	assert.Equal(t, 1, live)
}

func TestDebouncerStaleTimerDoesNotFire(t *testing.T) {
	d, clock, fired := newTestDebouncer(time.Second)

	d.Trigger()
	stale := clock.timers[0].f
	d.Trigger()

	// the first timer lost the race with the second Trigger
	stale()
	assert.Empty(t, *fired)

	clock.Advance(time.Second)
	assert.Len(t, *fired, 1)
}

func TestDebouncerCancelAndStop(t *testing.T) {
	d, clock, fired := newTestDebouncer(time.Second)

	d.Trigger()
	assert.True(t, d.Cancel())
	clock.Advance(2 * time.Second)
	assert.Empty(t, *fired)

	d.Trigger()
	assert.True(t, d.Stop())
	d.Trigger()
	clock.Advance(2 * time.Second)
	assert.Empty(t, *fired)
	assert.False(t, d.Pending())
}

func TestDebouncerRealTimer(t *testing.T) {
	var count atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { count.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}
