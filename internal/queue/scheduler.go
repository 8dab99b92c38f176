// Package queue implements admission control: with queuing enabled at most
// one non-exempt task runs at a time and the rest wait in FIFO order.
package queue

import (
	"cmp"
	"slices"

	"github.com/bamsammich/spacetask/internal/event"
)

// Exempt reports whether tasks of kind bypass the queue. Exec tasks are
// exempt unless the caller asked for them to be queued.
func Exempt(kind event.Kind, queueExec bool) bool {
	switch kind {
	case event.ChmodChown, event.Link:
		return true
	case event.Exec:
		return !queueExec
	default:
		return false
	}
}

type entry struct {
	id     string
	seq    uint64
	state  event.State
	exempt bool
}

// Scheduler tracks the pause-state of every live task. It belongs to the
// poll loop and is not safe for concurrent use.
type Scheduler struct {
	tasks        map[string]*entry
	seq          uint64
	enabled      bool
	pauseOnError bool
}

// New creates a Scheduler. enabled turns queuing on; pauseOnError pauses
// every queued task when any task reports an error.
func New(enabled, pauseOnError bool) *Scheduler {
	return &Scheduler{
		tasks:        make(map[string]*entry),
		enabled:      enabled,
		pauseOnError: pauseOnError,
	}
}

// Enabled reports whether queuing is on.
func (s *Scheduler) Enabled() bool { return s.enabled }

// SetEnabled turns queuing on or off for tasks added from now on.
func (s *Scheduler) SetEnabled(on bool) { s.enabled = on }

// SetPauseOnError changes the pause-all-queued-on-error setting.
func (s *Scheduler) SetPauseOnError(on bool) { s.pauseOnError = on }

// Add registers a new task and returns the state it must start in. A
// non-exempt task queues when queuing is on and another task is active or
// already waiting.
func (s *Scheduler) Add(id string, exempt bool) event.State {
	s.seq++
	e := &entry{id: id, seq: s.seq, exempt: exempt, state: event.Running}
	if !exempt && s.enabled && (s.active() > 0 || len(s.Queued()) > 0) {
		e.state = event.Queued
	}
	s.tasks[id] = e
	return e.state
}

// Set records a state change observed by the poll loop. Finish removes the
// task.
func (s *Scheduler) Set(id string, st event.State) {
	if st == event.Finish {
		s.Remove(id)
		return
	}
	if e, ok := s.tasks[id]; ok {
		e.state = st
	}
}

// State returns the last recorded state of id.
func (s *Scheduler) State(id string) (event.State, bool) {
	e, ok := s.tasks[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Remove forgets a task.
func (s *Scheduler) Remove(id string) {
	delete(s.tasks, id)
}

// active counts non-exempt tasks that hold the running slot. A paused task
// gives the slot up.
func (s *Scheduler) active() int {
	n := 0
	for _, e := range s.tasks {
		if e.exempt {
			continue
		}
		switch e.state {
		case event.Running, event.SizeTimeout, event.QueryOverwrite, event.Error:
			n++
		}
	}
	return n
}

// Active returns the number of non-exempt tasks holding the running slot.
func (s *Scheduler) Active() int { return s.active() }

// Queued returns the ids waiting for admission in submission order.
func (s *Scheduler) Queued() []string {
	var waiting []*entry
	for _, e := range s.tasks {
		if e.state == event.Queued {
			waiting = append(waiting, e)
		}
	}
	slices.SortFunc(waiting, func(a, b *entry) int { return cmp.Compare(a.seq, b.seq) })
	ids := make([]string, len(waiting))
	for i, e := range waiting {
		ids[i] = e.id
	}
	return ids
}

// Next returns the queued task to promote, if the running slot is free. The
// caller resumes it and reports Running through Set.
func (s *Scheduler) Next() (string, bool) {
	if !s.enabled || s.active() > 0 {
		return "", false
	}
	q := s.Queued()
	if len(q) == 0 {
		return "", false
	}
	return q[0], true
}

// ErrorRaised is called when task id enters the error state. With
// pause-on-error set it returns every other queued task; the caller pauses
// them and they stay paused until an operator re-queues or resumes them.
func (s *Scheduler) ErrorRaised(id string) []string {
	if !s.pauseOnError {
		return nil
	}
	var pause []string
	for _, qid := range s.Queued() {
		if qid != id {
			pause = append(pause, qid)
			s.tasks[qid].state = event.Paused
		}
	}
	return pause
}
