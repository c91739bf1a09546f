// Package schedule defers callbacks without running them concurrently with the
// code that owns the game state.
package schedule

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// CancelFunc drops a pending callback. Calling it after the callback ran, or
// more than once, does nothing.
type CancelFunc func()

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	After(d time.Duration, fn func()) CancelFunc
}

// Manual is a Scheduler driven by a virtual clock. Callbacks only run inside
// Advance, on the caller's goroutine.
type Manual struct {
	now     time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	due       time.Duration
	seq       int
	fn        func()
	cancelled bool
}

var _ Scheduler = (*Manual)(nil)

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) After(d time.Duration, fn func()) CancelFunc {
	m.seq++
	task := &manualTask{due: m.now + max(d, 0), seq: m.seq, fn: fn}
	m.pending = append(m.pending, task)

	return func() { task.cancelled = true }
}

// Advance moves the clock forward by d and runs every callback that became
// due, earliest first. It returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	m.now += d
	ran := 0
	for {
		task := m.nextDue()
		if task == nil {
			return ran
		}
		task.fn()
		ran++
	}
}

// Pending returns the number of callbacks still waiting.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue() *manualTask {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.pending = live

	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due != m.pending[j].due {
			return m.pending[i].due < m.pending[j].due
		}
		return m.pending[i].seq < m.pending[j].seq
	})

	if len(m.pending) == 0 || m.pending[0].due > m.now {
		return nil
	}

	task := m.pending[0]
	m.pending = m.pending[1:]
	return task
}

// Loop is a wall-clock Scheduler. Timers fire on their own goroutines but only
// hand the callback over on Ready; the owner runs it from its event loop.
type Loop struct {
	ready chan func()
	done  chan struct{}
	once  sync.Once
}

var _ Scheduler = (*Loop)(nil)

func NewLoop() *Loop {
	return &Loop{
		ready: make(chan func()),
		done:  make(chan struct{}),
	}
}

func (l *Loop) After(d time.Duration, fn func()) CancelFunc {
	var cancelled atomic.Bool
	run := func() {
		if !cancelled.Load() {
			fn()
		}
	}

	timer := time.AfterFunc(d, func() {
		select {
		case l.ready <- run:
		case <-l.done:
		}
	})

	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Ready delivers callbacks that are due. The receiver must call them.
func (l *Loop) Ready() <-chan func() {
	return l.ready
}

// Close releases timers blocked on delivery. Pending callbacks are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}
