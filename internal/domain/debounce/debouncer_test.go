package debounce_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/typing-tournament/internal/clock"
	"github.com/webitel/typing-tournament/internal/domain/debounce"
)

func newTestDebouncer(t *testing.T, cfg debounce.Config) (*debounce.Debouncer[int], *clock.Fake, chan []int) {
	t.Helper()
	clk := clock.NewFake(time.Unix(0, 0))
	flushes := make(chan []int, 16)
	d := debounce.New(cfg, clk, func(batch []int) {
		out := append([]int(nil), batch...)
		flushes <- out
	})
	t.Cleanup(d.Shutdown)
	return d, clk, flushes
}

func expectFlush(t *testing.T, flushes chan []int, want []int) {
	t.Helper()
	select {
	case got := <-flushes:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for flush of %v", want)
	}
}

func expectNoFlush(t *testing.T, flushes chan []int) {
	t.Helper()
	select {
	case got := <-flushes:
		t.Fatalf("unexpected flush: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncer_FlushesAfterQuietPeriod(t *testing.T) {
	d, clk, flushes := newTestDebouncer(t, debounce.Config{Debounce: 100 * time.Millisecond})

	d.Push(1)
	expectNoFlush(t, flushes)

	clk.Advance(100 * time.Millisecond)
	expectFlush(t, flushes, []int{1})
}

func TestDebouncer_PushResetsQuietTimer(t *testing.T) {
	d, clk, flushes := newTestDebouncer(t, debounce.Config{Debounce: 100 * time.Millisecond})

	d.Push(1)
	clk.Advance(60 * time.Millisecond)
	expectNoFlush(t, flushes)

	d.Push(2)
	clk.Advance(60 * time.Millisecond)
	expectNoFlush(t, flushes)

	clk.Advance(40 * time.Millisecond)
	expectFlush(t, flushes, []int{1, 2})
}

func TestDebouncer_MaxStackFlushesImmediately(t *testing.T) {
	d, _, flushes := newTestDebouncer(t, debounce.Config{
		Debounce: time.Hour,
		MaxStack: 3,
	})

	d.Push(1)
	d.Push(2)
	expectNoFlush(t, flushes)
	d.Push(3)

	expectFlush(t, flushes, []int{1, 2, 3})
}

func TestDebouncer_MaxWaitBoundsOldestItem(t *testing.T) {
	d, clk, flushes := newTestDebouncer(t, debounce.Config{
		Debounce: 100 * time.Millisecond,
		MaxWait:  250 * time.Millisecond,
	})

	d.Push(1)
	clk.Advance(80 * time.Millisecond)
	d.Push(2)
	clk.Advance(80 * time.Millisecond)
	d.Push(3)
	clk.Advance(80 * time.Millisecond)
	expectNoFlush(t, flushes)

	// Quiet timer would not fire until t=260; max_wait fires first at t=250.
	clk.Advance(10 * time.Millisecond)
	expectFlush(t, flushes, []int{1, 2, 3})
}

func TestDebouncer_FlushesNeverOverlap(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var inFlight int32
	var maxObserved int32
	done := make(chan struct{}, 16)

	d := debounce.New(debounce.Config{Debounce: 10 * time.Millisecond, MaxStack: 1}, clk, func(batch []int) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxObserved)
			if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		done <- struct{}{}
	})
	t.Cleanup(d.Shutdown)

	for i := 0; i < 10; i++ {
		d.Push(i)
	}
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for flush completions")
		}
	}

	require.LessOrEqual(t, atomic.LoadInt32(&maxObserved), int32(1), "flushFn must never run concurrently with itself")
}

func TestDebouncer_ShutdownFlushesPendingAndRejectsFurtherPushes(t *testing.T) {
	d, _, flushes := newTestDebouncer(t, debounce.Config{Debounce: time.Hour})

	d.Push(1)
	d.Push(2)
	d.Shutdown()

	expectFlush(t, flushes, []int{1, 2})
	require.Equal(t, debounce.PushRejectedShutdown, d.Push(3))
}

func TestDebouncer_PreservesPushOrderAcrossFlushes(t *testing.T) {
	d, clk, flushes := newTestDebouncer(t, debounce.Config{Debounce: 10 * time.Millisecond, MaxStack: 2})

	d.Push(1)
	d.Push(2)
	expectFlush(t, flushes, []int{1, 2})

	d.Push(3)
	clk.Advance(10 * time.Millisecond)
	expectFlush(t, flushes, []int{3})
}

func TestDebouncer_ZeroDebounceFlushesImmediately(t *testing.T) {
	d, _, flushes := newTestDebouncer(t, debounce.Config{})

	d.Push(42)
	expectFlush(t, flushes, []int{42})
}
