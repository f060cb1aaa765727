// Package render implements the presentation layer of the scenarios:
// delayed visual effects driven by simulated time, and PNG frames of
// the scenes drawn with gg.
package render

import (
	"sort"
	"time"
)

// Scheduler runs callbacks once simulated time passes their deadline.
// Time only moves when Advance is called, so a Scheduler stepped by
// the same loop as an environment stays in sync with it.
type Scheduler struct {
	now   time.Duration
	next  int
	tasks map[int]task
}

type task struct {
	id       int
	deadline time.Duration
	fn       func()
}

// NewScheduler returns a new Scheduler at time 0
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[int]task)}
}

// After schedules fn to run once delay has passed and returns a handle
// that can be passed to Cancel
func (s *Scheduler) After(delay time.Duration, fn func()) int {
	s.next++
	s.tasks[s.next] = task{id: s.next, deadline: s.now + delay, fn: fn}
	return s.next
}

// Cancel cancels a scheduled callback. It returns false if the
// callback already ran or was cancelled.
func (s *Scheduler) Cancel(id int) bool {
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// CancelAll cancels all scheduled callbacks
func (s *Scheduler) CancelAll() {
	s.tasks = make(map[int]task)
}

// Advance moves simulated time forward by dt and runs every callback
// whose deadline has passed, earliest first. It returns the number of
// callbacks run.
func (s *Scheduler) Advance(dt time.Duration) int {
	s.now += dt

	var due []task
	for _, t := range s.tasks {
		if t.deadline <= s.now {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline == due[j].deadline {
			return due[i].id < due[j].id
		}
		return due[i].deadline < due[j].deadline
	})

	for _, t := range due {
		// An earlier callback may have cancelled this one
		if _, ok := s.tasks[t.id]; !ok {
			continue
		}
		delete(s.tasks, t.id)
		t.fn()
	}
	return len(due)
}

// Now returns the current simulated time
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Pending returns the number of scheduled callbacks
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}
