// Package sched is the core's cooperative task scheduler: a min-heap of
// (deadline, priority, task) entries dispatched one at a time, each run to
// completion before the next is chosen. Services never run their own
// goroutines or timers; they queue work here and the scheduler's single
// dispatch loop decides what runs next, exactly as SPEC_FULL.md §5
// describes the firmware's main loop.
package sched

import (
	"container/heap"
	"sync"

	"github.com/pelagos-tag/tracker-core/internal/clock"
)

// Handle identifies one queued task. It remains valid (and Cancel remains
// safe to call) even after the task has already run.
type Handle uint64

// Task is a unit of work dispatched by the scheduler. It must run to
// completion in bounded time - the scheduler has no preemption.
type Task func()

type entry struct {
	deadlineMS uint64
	priority   int
	seq        uint64
	handle     Handle
	task       Task
	cancelled  bool
}

type taskHeap []*entry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].deadlineMS != h[j].deadlineMS {
		return h[i].deadlineMS < h[j].deadlineMS
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is the single-threaded dispatch loop. The zero value is not
// usable; create one with New.
type Scheduler struct {
	mutex      sync.Mutex
	clock      clock.Clock
	heap       taskHeap
	byHandle   map[Handle]*entry
	nextHandle Handle
	nextSeq    uint64
}

// New creates a Scheduler driven by c's millisecond tick counter.
func New(c clock.Clock) *Scheduler {
	s := &Scheduler{clock: c, byHandle: make(map[Handle]*entry)}
	heap.Init(&s.heap)
	return s
}

// ScheduleAt queues task to run once the clock reaches deadlineMS. Among
// tasks due at the same millisecond, lower priority values run first; ties
// within a priority run in the order they were queued.
func (s *Scheduler) ScheduleAt(deadlineMS uint64, priority int, task Task) Handle {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextHandle++
	s.nextSeq++
	e := &entry{
		deadlineMS: deadlineMS,
		priority:   priority,
		seq:        s.nextSeq,
		handle:     s.nextHandle,
		task:       task,
	}
	heap.Push(&s.heap, e)
	s.byHandle[e.handle] = e
	return e.handle
}

// ScheduleAfter queues task to run delayMS milliseconds from the clock's
// current reading.
func (s *Scheduler) ScheduleAfter(delayMS uint64, priority int, task Task) Handle {
	return s.ScheduleAt(s.clock.Millis()+delayMS, priority, task)
}

// Cancel removes a pending task. Cancelling a handle that has already run,
// already been cancelled, or was never issued by this Scheduler is a
// no-op - cancel_task is idempotent by design.
func (s *Scheduler) Cancel(h Handle) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if e, ok := s.byHandle[h]; ok {
		e.cancelled = true
		delete(s.byHandle, h)
	}
}

// Pending reports the number of tasks still queued to run.
func (s *Scheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.byHandle)
}

// NextDeadlineMS returns the deadline of the earliest pending task and
// true, or (0, false) if nothing is queued.
func (s *Scheduler) NextDeadlineMS() (uint64, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for len(s.heap) > 0 {
		e := s.heap[0]
		if e.cancelled {
			heap.Pop(&s.heap)
			continue
		}
		return e.deadlineMS, true
	}
	return 0, false
}

// RunDue dispatches every task whose deadline has already passed according
// to the scheduler's clock, earliest first, running each to completion
// before picking the next. It returns the number of tasks actually run. A
// task that itself calls ScheduleAt/ScheduleAfter may queue further work,
// which RunDue will pick up in the same call if its deadline has also
// already passed.
func (s *Scheduler) RunDue() int {
	ran := 0
	for {
		s.mutex.Lock()
		if len(s.heap) == 0 {
			s.mutex.Unlock()
			return ran
		}
		e := s.heap[0]
		if e.cancelled {
			heap.Pop(&s.heap)
			s.mutex.Unlock()
			continue
		}
		if e.deadlineMS > s.clock.Millis() {
			s.mutex.Unlock()
			return ran
		}
		heap.Pop(&s.heap)
		delete(s.byHandle, e.handle)
		s.mutex.Unlock()

		e.task()
		ran++
	}
}
