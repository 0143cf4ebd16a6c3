// Package debounce implements the generic time+count-gated flusher (spec.md
// §4.1, component C1) that drives both the per-member self-update batching
// and the room-wide aggregate broadcast batching in the tournament manager.
//
// The design — a single watcher goroutine racing a quiet timer against a
// hard deadline timer under a Clock abstraction — is grounded on the
// coordinator-nudger pattern (internal/orchestration/v2/nudger in the
// retrieval pack) generalized from one debounce duration to the spec's
// three-threshold contract (debounce / max_stack / max_wait), and on the
// teacher's one-goroutine-per-actor Cell.loop() shape (a long-lived watcher
// instead of a timer per push, which would otherwise leak a goroutine per
// re-armed timer).
package debounce

import (
	"sync"
	"time"

	"github.com/webitel/typing-tournament/internal/clock"
)

// PushResult reports the outcome of a Push call.
type PushResult int

const (
	// PushAccepted means item was buffered (or triggered an immediate flush).
	PushAccepted PushResult = iota
	// PushRejectedShutdown means the debouncer has been shut down and no
	// longer accepts items.
	PushRejectedShutdown
)

// Config holds the three threshold knobs from spec.md §4.1.
type Config struct {
	// Debounce is the quiet period: each push (re)arms a timer at
	// now+Debounce. If no further push arrives before it fires, the buffer
	// flushes.
	Debounce time.Duration
	// MaxStack is the buffer size at which a flush is scheduled
	// unconditionally, regardless of the quiet timer.
	MaxStack int
	// MaxWait bounds the age of the oldest buffered item: armed once, on
	// the first push into an empty buffer, and never reset by later pushes.
	MaxWait time.Duration
}

// Debouncer batches items of type T behind a callback invoked at most once
// concurrently, with items delivered to it in push order.
type Debouncer[T any] struct {
	cfg     Config
	clock   clock.Clock
	flushFn func([]T)

	mu            sync.Mutex
	buf           []T
	quietTimer    clock.Timer
	deadlineTimer clock.Timer
	shutdownFlag  bool

	flushMu   sync.Mutex // serializes flushFn invocations
	pushed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Debouncer and starts its watcher goroutine. flushFn must
// swallow its own errors (spec.md §4.5): the debouncer does not retry or
// report flush failures.
func New[T any](cfg Config, clk clock.Clock, flushFn func([]T)) *Debouncer[T] {
	if clk == nil {
		clk = clock.Real{}
	}
	d := &Debouncer[T]{
		cfg:     cfg,
		clock:   clk,
		flushFn: flushFn,
		pushed:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

// Push appends item to the buffer, arming or re-arming timers per spec.md
// §4.1.
func (d *Debouncer[T]) Push(item T) PushResult {
	d.mu.Lock()
	if d.shutdownFlag {
		d.mu.Unlock()
		return PushRejectedShutdown
	}

	wasEmpty := len(d.buf) == 0
	d.buf = append(d.buf, item)

	if wasEmpty && d.cfg.MaxWait > 0 && d.deadlineTimer == nil {
		d.deadlineTimer = d.clock.NewTimer(d.cfg.MaxWait)
	}

	full := d.cfg.MaxStack > 0 && len(d.buf) >= d.cfg.MaxStack
	if !full {
		if d.quietTimer != nil {
			d.quietTimer.Stop()
		}
		if d.cfg.Debounce > 0 {
			d.quietTimer = d.clock.NewTimer(d.cfg.Debounce)
		} else {
			d.quietTimer = nil
		}
	}
	d.mu.Unlock()

	if full || d.cfg.Debounce <= 0 {
		d.FlushNow()
	} else {
		d.wake()
	}
	return PushAccepted
}

func (d *Debouncer[T]) wake() {
	select {
	case d.pushed <- struct{}{}:
	default:
	}
}

// loop is the single watcher goroutine: it re-reads whichever timers are
// currently armed on every iteration, so a push that (re)arms a timer takes
// effect on the very next select without spawning a new goroutine per push.
func (d *Debouncer[T]) loop() {
	for {
		d.mu.Lock()
		var quietCh, deadlineCh <-chan time.Time
		if d.quietTimer != nil {
			quietCh = d.quietTimer.C()
		}
		if d.deadlineTimer != nil {
			deadlineCh = d.deadlineTimer.C()
		}
		d.mu.Unlock()

		select {
		case <-d.done:
			return
		case <-d.pushed:
		case <-quietCh:
			d.FlushNow()
		case <-deadlineCh:
			d.FlushNow()
		}
	}
}

// FlushNow cancels pending timers and delivers any buffered items. It is
// idempotent: calling it with an empty buffer is a no-op, which is what
// makes racing timer fires (quiet vs. deadline) or a redundant external call
// harmless.
func (d *Debouncer[T]) FlushNow() {
	// flushMu is taken before the buffer swap so batches reach flushFn in
	// the order they were taken.
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer = nil
	}
	if d.deadlineTimer != nil {
		d.deadlineTimer.Stop()
		d.deadlineTimer = nil
	}
	batch := d.buf
	d.buf = nil
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	d.flushFn(batch)
}

// Shutdown flushes any pending items, refuses further pushes, and stops the
// watcher goroutine. The final buffer snapshot and the shutdown flag are
// set under one critical section, so a Push cannot slip in between them:
// every Push that observes shutdownFlag == false is either captured in
// this flush or still in flight, and every Push that runs after this
// unlock sees shutdownFlag == true and is rejected. A Push racing this
// call therefore always returns PushAccepted (and is flushed here) or
// PushRejectedShutdown — never PushAccepted with its item lost.
func (d *Debouncer[T]) Shutdown() {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer = nil
	}
	if d.deadlineTimer != nil {
		d.deadlineTimer.Stop()
		d.deadlineTimer = nil
	}
	batch := d.buf
	d.buf = nil
	d.shutdownFlag = true
	d.mu.Unlock()

	d.closeOnce.Do(func() { close(d.done) })

	if len(batch) == 0 {
		return
	}
	d.flushFn(batch)
}
