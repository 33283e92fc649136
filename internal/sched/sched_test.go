package sched

import (
	"testing"

	"github.com/pelagos-tag/tracker-core/internal/clock"
)

func TestRunDueDispatchesInDeadlineOrder(t *testing.T) {
	c := clock.NewFakeTicker(0)
	s := New(c)

	var order []string
	s.ScheduleAt(2000, 0, func() { order = append(order, "b") })
	s.ScheduleAt(1000, 0, func() { order = append(order, "a") })
	s.ScheduleAt(3000, 0, func() { order = append(order, "c") })

	c.Set(3) // 3000ms: all three deadlines have passed
	if ran := s.RunDue(); ran != 3 {
		t.Fatalf("got %d tasks run, want 3", ran)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("got order %v, want [a b c]", order)
	}
}

func TestRunDueRespectsPriorityOnTie(t *testing.T) {
	c := clock.NewFakeTicker(0)
	s := New(c)

	var order []string
	s.ScheduleAt(1000, 5, func() { order = append(order, "low-priority") })
	s.ScheduleAt(1000, 1, func() { order = append(order, "high-priority") })

	c.Set(1)
	ran := s.RunDue()
	if ran != 2 {
		t.Fatalf("got %d tasks run, want 2", ran)
	}
	if len(order) != 2 || order[0] != "high-priority" || order[1] != "low-priority" {
		t.Errorf("got order %v, want [high-priority low-priority]", order)
	}
}

func TestScheduleAfterUsesClockMillis(t *testing.T) {
	c := clock.NewFakeTicker(10)
	s := New(c)

	ran := false
	s.ScheduleAfter(500, 0, func() { ran = true })

	c.Set(10)
	if s.RunDue() != 0 {
		t.Fatal("task scheduled 500ms out must not run before its deadline")
	}

	c.Set(11) // 11000ms, past the 10000+500=10500 deadline
	if s.RunDue() != 1 {
		t.Fatal("expected exactly one task to run")
	}
	if !ran {
		t.Error("task body never executed")
	}
}

func TestCancelIsIdempotentAndPreventsDispatch(t *testing.T) {
	c := clock.NewFakeTicker(0)
	s := New(c)

	ran := false
	h := s.ScheduleAt(0, 0, func() { ran = true })
	s.Cancel(h)
	s.Cancel(h) // must not panic or double-free

	if s.RunDue() != 0 {
		t.Fatal("a cancelled task must not be dispatched")
	}
	if ran {
		t.Error("cancelled task body must never execute")
	}
}

func TestRunDueStopsAtFirstNotYetDueTask(t *testing.T) {
	c := clock.NewFakeTicker(0)
	s := New(c)

	s.ScheduleAt(0, 0, func() {})
	s.ScheduleAt(5000, 0, func() {})

	if ran := s.RunDue(); ran != 1 {
		t.Fatalf("got %d tasks run, want 1 (the second is not yet due)", ran)
	}
	if deadline, ok := s.NextDeadlineMS(); !ok || deadline != 5000 {
		t.Errorf("got (%d, %v), want (5000, true)", deadline, ok)
	}
}

func TestNextDeadlineMSSkipsCancelledHead(t *testing.T) {
	c := clock.NewFakeTicker(0)
	s := New(c)

	h := s.ScheduleAt(1000, 0, func() {})
	s.ScheduleAt(2000, 0, func() {})
	s.Cancel(h)

	deadline, ok := s.NextDeadlineMS()
	if !ok || deadline != 2000 {
		t.Errorf("got (%d, %v), want (2000, true)", deadline, ok)
	}
}
