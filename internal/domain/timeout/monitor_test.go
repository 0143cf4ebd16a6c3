package timeout_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/typing-tournament/internal/clock"
	"github.com/webitel/typing-tournament/internal/domain/timeout"
)

func waitFired(t *testing.T, fired *int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(fired) == 1
	}, time.Second, time.Millisecond)
}

func assertNeverFires(t *testing.T, fired *int32) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(fired))
}

func TestMonitor_FiresAfterDeadline(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(100*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	require.Equal(t, timeout.Armed, m.State())

	clk.Advance(100 * time.Millisecond)
	waitFired(t, &fired)
	require.Equal(t, timeout.TimedOut, m.State())
}

func TestMonitor_TouchSlidesDeadline(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(100*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })

	clk.Advance(60 * time.Millisecond)
	require.True(t, m.Touch())
	clk.Advance(60 * time.Millisecond)
	assertNeverFires(t, &fired)
	require.Equal(t, timeout.Armed, m.State())

	clk.Advance(40 * time.Millisecond)
	waitFired(t, &fired)
}

func TestMonitor_TouchAfterTimeoutReturnsFalse(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	clk.Advance(10 * time.Millisecond)
	waitFired(t, &fired)

	require.False(t, m.Touch())
}

func TestMonitor_DisarmCancelsPendingTimeout(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(50*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	m.Disarm()
	require.Equal(t, timeout.Idle, m.State())

	clk.Advance(time.Hour)
	assertNeverFires(t, &fired)
}

func TestMonitor_CallRunsTaskThenTouches(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(100*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })

	var taskRan int32
	clk.Advance(80 * time.Millisecond)
	m.Call(func() { atomic.StoreInt32(&taskRan, 1) })
	require.EqualValues(t, 1, atomic.LoadInt32(&taskRan))

	// Call must have touched the monitor, sliding the deadline another
	// 100ms from t=80.
	clk.Advance(80 * time.Millisecond)
	assertNeverFires(t, &fired)

	clk.Advance(20 * time.Millisecond)
	waitFired(t, &fired)
}

func TestMonitor_CallAfterTimeoutInvokesAfterTimeoutInstead(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	clk.Advance(10 * time.Millisecond)
	waitFired(t, &fired)

	var afterRan, taskRan int32
	m.SetAfterTimeout(func() { atomic.StoreInt32(&afterRan, 1) })
	m.Call(func() { atomic.StoreInt32(&taskRan, 1) })

	require.EqualValues(t, 1, atomic.LoadInt32(&afterRan))
	require.EqualValues(t, 0, atomic.LoadInt32(&taskRan))
	require.Equal(t, timeout.TimedOut, m.State())
}

func TestMonitor_RearmAfterTimeoutStartsFreshCycle(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var firstFired, secondFired int32
	m.Arm(10*time.Millisecond, func() { atomic.StoreInt32(&firstFired, 1) })
	clk.Advance(10 * time.Millisecond)
	waitFired(t, &firstFired)

	m.Arm(10*time.Millisecond, func() { atomic.StoreInt32(&secondFired, 1) })
	require.Equal(t, timeout.Armed, m.State())

	clk.Advance(10 * time.Millisecond)
	waitFired(t, &secondFired)
}

func TestMonitor_ConcurrentTouchAndFireResolveCleanly(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := timeout.New(clk)
	t.Cleanup(m.Stop)

	var fired int32
	m.Arm(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			m.Touch()
		}
	}()
	clk.Advance(10 * time.Millisecond)
	<-done

	// Whatever the outcome, the monitor must land in exactly one
	// well-defined terminal-or-armed state, never a torn one, and State()
	// must agree with whether the callback ran.
	require.Eventually(t, func() bool {
		st := m.State()
		if st == timeout.TimedOut {
			return atomic.LoadInt32(&fired) == 1
		}
		return st == timeout.Armed
	}, time.Second, time.Millisecond)
}
