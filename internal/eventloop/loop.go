// Package eventloop implements the single-threaded cooperative
// scheduler spec §5 requires: one goroutine owns every session, lobby,
// and timer, draining a work queue so no mutex is ever needed around
// lobby or session state. Every other package in this module assumes
// its methods run on this loop's goroutine.
package eventloop

import (
	"container/heap"
	"time"
)

// Task is one unit of work the loop runs to completion without
// suspending partway through a lobby mutation, per spec §5's
// "suspension points" rule.
type Task func()

// Loop is the cooperative scheduler: a buffered task queue plus a
// min-heap of scheduled timers, both drained by Run on one goroutine.
type Loop struct {
	tasks   chan Task
	timers  timerHeap
	timerAdd chan *Timer
	timerDel chan uint64
	nextID  uint64
	stop    chan struct{}
	now     func() time.Time
}

// New returns a Loop with queue capacity queueCapacity for Post, using
// time.Now for timer scheduling (overridable for tests via
// NewWithClock).
func New(queueCapacity int) *Loop {
	return NewWithClock(queueCapacity, time.Now)
}

// NewWithClock is New with an injectable clock, so timer-ordering
// tests don't depend on wall-clock timing.
func NewWithClock(queueCapacity int, now func() time.Time) *Loop {
	return &Loop{
		tasks:    make(chan Task, queueCapacity),
		timerAdd: make(chan *Timer, queueCapacity),
		timerDel: make(chan uint64, queueCapacity),
		stop:     make(chan struct{}),
		now:      now,
	}
}

// Post enqueues fn to run on the loop goroutine. Safe to call from any
// goroutine (a socket's read-event callback, for instance); Post is
// the only thread-safe entry point into a running Loop — everything
// else must run on the loop itself.
func (l *Loop) Post(fn Task) {
	select {
	case l.tasks <- fn:
	case <-l.stop:
	}
}

// Timer is a scheduled, optionally repeating callback. Implementation
// detail of the heap; callers only see the id Schedule returns.
type Timer struct {
	id       uint64
	at       time.Time
	interval time.Duration // 0 for a single-shot timer
	fn       Task
	canceled bool
}

// Schedule arms fn to run after d, repeating every d again if repeat
// is true (the save-character/ping/idle-disconnect timers spec §5
// names), and returns an id Cancel can use to disarm it.
func (l *Loop) Schedule(d time.Duration, repeat bool, fn Task) uint64 {
	l.nextID++
	id := l.nextID
	interval := time.Duration(0)
	if repeat {
		interval = d
	}
	t := &Timer{id: id, at: l.now().Add(d), interval: interval, fn: fn}
	select {
	case l.timerAdd <- t:
	case <-l.stop:
	}
	return id
}

// Cancel disarms the timer with id, a no-op if it already fired (for
// single-shot) or was already canceled.
func (l *Loop) Cancel(id uint64) {
	select {
	case l.timerDel <- id:
	case <-l.stop:
	}
}

// Stop halts Run after its current task/timer finishes.
func (l *Loop) Stop() {
	close(l.stop)
}

// Run drains tasks and fires due timers until Stop is called. It is
// meant to be the only goroutine touching session/lobby state; callers
// arrange for socket reads to Post their handling rather than mutate
// state directly from their own goroutine.
func (l *Loop) Run() {
	heap.Init(&l.timers)
	for {
		var timerC <-chan time.Time
		var wait time.Duration
		if len(l.timers) > 0 {
			wait = l.timers[0].at.Sub(l.now())
			if wait < 0 {
				wait = 0
			}
			timerC = time.After(wait)
		}

		select {
		case <-l.stop:
			return
		case fn := <-l.tasks:
			fn()
		case t := <-l.timerAdd:
			heap.Push(&l.timers, t)
		case id := <-l.timerDel:
			l.removeTimer(id)
		case <-timerC:
			l.fireDue()
		}
	}
}

func (l *Loop) fireDue() {
	now := l.now()
	for len(l.timers) > 0 && !l.timers[0].at.After(now) {
		t := heap.Pop(&l.timers).(*Timer)
		if t.canceled {
			continue
		}
		t.fn()
		if t.interval > 0 && !t.canceled {
			t.at = now.Add(t.interval)
			heap.Push(&l.timers, t)
		}
	}
}

func (l *Loop) removeTimer(id uint64) {
	for _, t := range l.timers {
		if t.id == id {
			t.canceled = true
			return
		}
	}
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*Timer)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
