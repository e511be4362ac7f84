package countdown

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func collect(t *testing.T, ch <-chan TimeRemaining) TimeRemaining {
	t.Helper()
	select {
	case remaining := <-ch:
		return remaining
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for countdown emit")
		return TimeRemaining{}
	}
}

func TestEngineEmitsImmediatelyOnStart(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(WithClock(clock.Now), WithInterval(time.Hour))
	defer engine.StopAll()

	id := uuid.New()
	emits := make(chan TimeRemaining, 16)
	engine.Start(id, clock.Now().Add(90*time.Second), func(r TimeRemaining) { emits <- r })

	first := collect(t, emits)
	if first.IsExpired {
		t.Fatal("countdown should not start expired")
	}
	if first.Minutes != 1 || first.Seconds != 30 {
		t.Fatalf("expected 1m30s remaining, got %+v", first)
	}
}

func TestEngineRecomputesFromWallClock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(WithClock(clock.Now), WithInterval(time.Millisecond))
	defer engine.StopAll()

	id := uuid.New()
	end := clock.Now().Add(90 * time.Second)
	emits := make(chan TimeRemaining, 1024)
	engine.Start(id, end, func(r TimeRemaining) {
		select {
		case emits <- r:
		default:
		}
	})

	// A suspended host resuming past the end must immediately read expired.
	clock.Advance(91 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for {
		remaining := collect(t, emits)
		if remaining.IsExpired {
			if remaining != (TimeRemaining{IsExpired: true}) {
				t.Fatalf("expired emit must clamp to zero, got %+v", remaining)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("countdown never reported expiry after clock jump")
		}
	}
}

func TestEngineStopsCallbacksAfterStop(t *testing.T) {
	engine := NewEngine(WithInterval(time.Millisecond))
	id := uuid.New()

	var mu sync.Mutex
	count := 0
	engine.Start(id, time.Now().Add(time.Hour), func(TimeRemaining) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	time.Sleep(20 * time.Millisecond)
	engine.Stop(id)

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	final := count
	mu.Unlock()

	if final != after {
		t.Fatalf("callbacks continued after Stop: %d -> %d", after, final)
	}
	if engine.Running(id) {
		t.Fatal("timer should be released after Stop")
	}
}

func TestEngineStartReplacesExistingTimer(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(WithClock(clock.Now), WithInterval(time.Hour))
	defer engine.StopAll()

	id := uuid.New()
	emits := make(chan TimeRemaining, 16)
	engine.Start(id, clock.Now().Add(time.Hour), func(r TimeRemaining) { emits <- r })
	collect(t, emits)

	// Restart with a later end, as after a granted extension.
	engine.Start(id, clock.Now().Add(2*time.Hour), func(r TimeRemaining) { emits <- r })
	second := collect(t, emits)
	if second.Hours != 2 {
		t.Fatalf("expected 2h remaining after restart, got %+v", second)
	}
	if !engine.Running(id) {
		t.Fatal("replacement timer should be running")
	}
}

func TestEngineReleasesTimerOnceExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(WithClock(clock.Now), WithInterval(time.Hour))

	id := uuid.New()
	emits := make(chan TimeRemaining, 16)
	engine.Start(id, clock.Now().Add(-time.Minute), func(r TimeRemaining) { emits <- r })

	first := collect(t, emits)
	if !first.IsExpired {
		t.Fatalf("expected expired emit, got %+v", first)
	}

	deadline := time.Now().Add(2 * time.Second)
	for engine.Running(id) {
		if time.Now().After(deadline) {
			t.Fatal("expired timer was not released")
		}
		time.Sleep(time.Millisecond)
	}
	// Stop after self-release must be a no-op.
	engine.Stop(id)
}
