// Package sched runs delayed continuations for the single-threaded simulation.
// Nothing here blocks: callers schedule work with After and the simulation loop
// pumps due work with Run once per tick.
package sched

import (
	"container/heap"
	"time"
)

// Task is a scheduled continuation.
type Task struct {
	due   time.Time
	seq   uint64
	fn    func()
	index int
	group *Group

	canceled bool
	done     bool
}

// Cancel prevents the task from running. Returns false if the task already
// ran or was already canceled.
func (t *Task) Cancel() bool {
	if t == nil || t.done || t.canceled {
		return false
	}
	t.canceled = true
	if t.group != nil {
		delete(t.group.tasks, t)
	}
	return true
}

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool {
	return t != nil && !t.done && !t.canceled
}

// Due returns the time the task becomes runnable.
func (t *Task) Due() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.due
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler orders continuations by due time, then by scheduling order.
// It is not safe for concurrent use; it belongs to the simulation thread.
type Scheduler struct {
	clock Clock
	tasks taskHeap
	seq   uint64
}

// New creates a scheduler reading time from clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = WallClock{}
	}
	return &Scheduler{clock: clock}
}

// Now returns the scheduler's clock time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// After schedules fn to run once d has elapsed. A non-positive d makes the
// task runnable on the next Run.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Task{due: s.clock.Now().Add(d), seq: s.seq, fn: fn}
	heap.Push(&s.tasks, t)
	return t
}

// Run executes every task that is due. Tasks scheduled while Run is in
// progress wait for the next call, so zero-delay reschedules cannot spin.
// Returns the number of tasks executed.
func (s *Scheduler) Run() int {
	now := s.clock.Now()
	limit := s.seq
	ran := 0
	var deferred []*Task
	for s.tasks.Len() > 0 {
		next := s.tasks[0]
		if next.due.After(now) {
			break
		}
		heap.Pop(&s.tasks)
		if next.canceled {
			continue
		}
		if next.seq > limit {
			deferred = append(deferred, next)
			continue
		}
		next.done = true
		if next.group != nil {
			delete(next.group.tasks, next)
		}
		if next.fn != nil {
			next.fn()
		}
		ran++
	}
	for _, t := range deferred {
		heap.Push(&s.tasks, t)
	}
	return ran
}

// Len returns the number of pending (not canceled) tasks.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}

// NewGroup returns a cancellation group bound to this scheduler.
func (s *Scheduler) NewGroup() *Group {
	return &Group{s: s, tasks: make(map[*Task]struct{})}
}

// Group ties scheduled continuations to the lifetime of one owner.
// Canceling the group cancels every pending task and refuses new ones.
type Group struct {
	s      *Scheduler
	tasks  map[*Task]struct{}
	closed bool

	hooks    []cancelHook
	nextHook uint64
}

type cancelHook struct {
	id uint64
	fn func()
}

// After schedules fn through the group. Returns nil once the group is closed.
func (g *Group) After(d time.Duration, fn func()) *Task {
	if g == nil || g.closed {
		return nil
	}
	t := g.s.After(d, fn)
	t.group = g
	g.tasks[t] = struct{}{}
	return t
}

// Pending returns the number of tasks still waiting in the group.
func (g *Group) Pending() int {
	if g == nil {
		return 0
	}
	return len(g.tasks)
}

// Closed reports whether Cancel was called.
func (g *Group) Closed() bool {
	return g == nil || g.closed
}

// Cancel cancels all pending tasks and closes the group. Safe to call twice.
func (g *Group) Cancel() {
	if g == nil || g.closed {
		return
	}
	g.closed = true
	for t := range g.tasks {
		t.canceled = true
	}
	g.tasks = make(map[*Task]struct{})
	hooks := g.hooks
	g.hooks = nil
	for _, h := range hooks {
		h.fn()
	}
}

// OnCancel registers fn to run when the group is canceled, in registration
// order. On a closed group fn runs at once. The returned func unregisters fn.
func (g *Group) OnCancel(fn func()) (remove func()) {
	if g == nil {
		return func() {}
	}
	if g.closed {
		fn()
		return func() {}
	}
	g.nextHook++
	id := g.nextHook
	g.hooks = append(g.hooks, cancelHook{id: id, fn: fn})
	return func() {
		for i, h := range g.hooks {
			if h.id == id {
				g.hooks = append(g.hooks[:i:i], g.hooks[i+1:]...)
				return
			}
		}
	}
}
