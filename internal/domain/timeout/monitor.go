// Package timeout implements the per-participant inactivity watchdog
// (spec.md §4.2, component C2): arm a deadline, slide it forward on every
// touch, and fire a callback exactly once if the deadline is ever reached
// with no intervening touch.
//
// The watcher-goroutine shape mirrors internal/domain/debounce: one
// long-lived loop per Monitor re-reads whichever timer is currently armed,
// instead of spawning a goroutine per arm/touch, which is grounded on the
// same coordinator-nudger pattern in the retrieval pack.
package timeout

import (
	"sync"
	"time"

	"github.com/webitel/typing-tournament/internal/clock"
)

// State is the monitor's lifecycle stage.
type State int

const (
	Idle State = iota
	Armed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case TimedOut:
		return "timed_out"
	default:
		return "idle"
	}
}

// Monitor is a single inactivity watchdog. It is safe for concurrent use.
type Monitor struct {
	clock clock.Clock

	mu           sync.Mutex
	state        State
	delay        time.Duration
	timer        clock.Timer
	onTimeout    func()
	afterTimeout func()

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs an idle Monitor and starts its watcher goroutine.
func New(clk clock.Clock) *Monitor {
	if clk == nil {
		clk = clock.Real{}
	}
	m := &Monitor{
		clock: clk,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go m.loop()
	return m
}

// Arm transitions to Armed with a deadline at now+delay. onTimeout runs at
// most once, when the deadline is reached with no intervening Touch.
// Re-arming an already-armed or timed-out monitor is allowed and starts a
// fresh cycle.
func (m *Monitor) Arm(delay time.Duration, onTimeout func()) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.delay = delay
	m.onTimeout = onTimeout
	m.state = Armed
	m.timer = m.clock.NewTimer(delay)
	m.mu.Unlock()
	m.nudge()
}

// SetAfterTimeout registers the callback Call invokes in place of its task
// once the monitor has already timed out.
func (m *Monitor) SetAfterTimeout(fn func()) {
	m.mu.Lock()
	m.afterTimeout = fn
	m.mu.Unlock()
}

// Touch slides the deadline forward by the armed delay. It returns false if
// the monitor had already timed out (the touch "loses cleanly": the timeout
// callback already ran, and no deadline slides). It returns true otherwise,
// including when the monitor is Idle (nothing to slide).
func (m *Monitor) Touch() bool {
	m.mu.Lock()
	if m.state == TimedOut {
		m.mu.Unlock()
		return false
	}
	if m.state != Armed {
		m.mu.Unlock()
		return true
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = m.clock.NewTimer(m.delay)
	m.mu.Unlock()
	m.nudge()
	return true
}

// Call runs task, then touches the monitor. If the monitor has already
// timed out, it runs the registered afterTimeout callback instead of task
// and leaves the state as TimedOut.
func (m *Monitor) Call(task func()) {
	m.mu.Lock()
	if m.state == TimedOut {
		cb := m.afterTimeout
		m.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	m.mu.Unlock()

	if task != nil {
		task()
	}
	m.Touch()
}

// Disarm cancels any pending timer and returns to Idle.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.state = Idle
	m.mu.Unlock()
	m.nudge()
}

// State reports the monitor's current lifecycle stage.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stop disarms the monitor and terminates its watcher goroutine. A stopped
// Monitor must not be reused.
func (m *Monitor) Stop() {
	m.Disarm()
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Monitor) nudge() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) loop() {
	for {
		m.mu.Lock()
		cur := m.timer
		var ch <-chan time.Time
		if cur != nil {
			ch = cur.C()
		}
		m.mu.Unlock()

		select {
		case <-m.done:
			return
		case <-m.wake:
		case <-ch:
			m.fire(cur)
		}
	}
}

// fire is invoked with the specific timer instance that woke the select
// branch. Comparing it against the monitor's current timer by identity
// (rather than trusting the channel receive alone) is what lets a
// concurrent Touch win cleanly: a Touch that swaps in a fresh timer makes
// any stale fire from the timer it replaced a no-op here, even if that
// stale timer had already queued its send before Stop was called.
func (m *Monitor) fire(t clock.Timer) {
	m.mu.Lock()
	if m.state != Armed || m.timer != t {
		m.mu.Unlock()
		return
	}
	m.state = TimedOut
	m.timer = nil
	cb := m.onTimeout
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}
