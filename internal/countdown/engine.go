package countdown

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultInterval = time.Second

// Engine runs one cooperative countdown per displayed assignment. Every tick
// recomputes from wall-clock now and the fixed end, never by decrementing a
// counter, so host suspension self-corrects on resume.
type Engine struct {
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[uuid.UUID]*timer
}

type timer struct {
	stop chan struct{}
	done chan struct{}
}

// Option configures optional engine behavior.
type Option func(*Engine)

// WithInterval overrides the one-second tick cadence.
func WithInterval(interval time.Duration) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.interval = interval
		}
	}
}

// WithClock overrides the wall-clock source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an empty countdown registry.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		interval: defaultInterval,
		now:      time.Now,
		timers:   map[uuid.UUID]*timer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// Start begins (or restarts) the countdown for the given assignment. fn is
// invoked immediately and then once per tick. Once the countdown reports
// expiry the value can no longer change, so the timer releases itself after
// the expired emit; Stop stays safe to call regardless.
func (e *Engine) Start(id uuid.UUID, end time.Time, fn func(TimeRemaining)) {
	if fn == nil {
		return
	}
	e.Stop(id)

	entry := &timer{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	e.mu.Lock()
	e.timers[id] = entry
	e.mu.Unlock()

	go e.run(id, end, fn, entry)
}

func (e *Engine) run(id uuid.UUID, end time.Time, fn func(TimeRemaining), entry *timer) {
	defer close(entry.done)
	defer e.release(id, entry)

	if expired := e.emit(end, fn); expired {
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-entry.stop:
			return
		case <-ticker.C:
			if expired := e.emit(end, fn); expired {
				return
			}
		}
	}
}

func (e *Engine) emit(end time.Time, fn func(TimeRemaining)) bool {
	remaining := Until(end, e.now())
	fn(remaining)
	return remaining.IsExpired
}

func (e *Engine) release(id uuid.UUID, entry *timer) {
	e.mu.Lock()
	if current, ok := e.timers[id]; ok && current == entry {
		delete(e.timers, id)
	}
	e.mu.Unlock()
}

// Stop halts the countdown for the given assignment and waits for its final
// callback to return; after Stop no further callbacks run.
func (e *Engine) Stop(id uuid.UUID) {
	e.mu.Lock()
	entry, ok := e.timers[id]
	if ok {
		delete(e.timers, id)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-entry.done:
	default:
		close(entry.stop)
		<-entry.done
	}
}

// StopAll releases every running countdown.
func (e *Engine) StopAll() {
	e.mu.Lock()
	entries := make(map[uuid.UUID]*timer, len(e.timers))
	for id, entry := range e.timers {
		entries[id] = entry
	}
	e.timers = map[uuid.UUID]*timer{}
	e.mu.Unlock()

	for _, entry := range entries {
		select {
		case <-entry.done:
		default:
			close(entry.stop)
			<-entry.done
		}
	}
}

// Running reports whether a countdown is registered for the assignment.
func (e *Engine) Running(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[id]
	return ok
}
