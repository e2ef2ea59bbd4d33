// Package sched holds a core's scheduling queues: the FIFO run queue and the
// tick-ordered sleep queue. Neither is synchronized; the owning core guards
// them.
package sched

import (
	"pebbles/kern/defs"
	"pebbles/kern/list"
	"pebbles/kern/tcb"
)

// Inbox produces threads made ready by cross-core message delivery.
type Inbox interface {
	// Deliver returns the next thread a message made runnable on this core,
	// or nil when there is none.
	Deliver() *tcb.Thread
}

// RunQueue is one core's FIFO of runnable threads.
type RunQueue struct {
	q list.List
}

// Len returns the number of queued threads.
func (r *RunQueue) Len() int { return r.q.Len() }

// MakeRunnable appends t.
func (r *RunQueue) MakeRunnable(t *tcb.Thread) { r.q.PushBack(t) }

// Block removes and returns the head without queueing anyone in its place.
func (r *RunQueue) Block() *tcb.Thread {
	e := r.q.PopFront()
	if e == nil {
		return nil
	}
	return e.(*tcb.Thread)
}

// Remove unlinks t if it is queued.
func (r *RunQueue) Remove(t *tcb.Thread) bool { return r.q.Remove(t) }

// GetNext picks the next thread to run. For defs.AnyThread, message delivery
// takes priority over the local queue. A specific target is removed from
// wherever it sits in the queue. It returns nil when nothing is available.
func (r *RunQueue) GetNext(target int, inbox Inbox) *tcb.Thread {
	if target != defs.AnyThread {
		e := r.q.RemoveFunc(func(e list.Elem) bool { return e.(*tcb.Thread).TID == target })
		if e == nil {
			return nil
		}
		return e.(*tcb.Thread)
	}
	if inbox != nil {
		if t := inbox.Deliver(); t != nil {
			return t
		}
	}
	return r.Block()
}

// Each calls fn for every queued thread in order.
func (r *RunQueue) Each(fn func(*tcb.Thread)) {
	r.q.Each(func(e list.Elem) { fn(e.(*tcb.Thread)) })
}

// SleepQueue orders sleeping threads by due tick; threads due on the same
// tick keep their arrival order.
type SleepQueue struct {
	q list.List
}

// Len returns the number of sleepers.
func (s *SleepQueue) Len() int { return s.q.Len() }

// Add queues t until tick due.
func (s *SleepQueue) Add(t *tcb.Thread, due uint64) {
	t.SleepUntil = due
	s.q.InsertFunc(t, func(e list.Elem) bool { return e.(*tcb.Thread).SleepUntil > due })
}

// PopDue removes and returns the earliest sleeper if it is due at now.
func (s *SleepQueue) PopDue(now uint64) *tcb.Thread {
	e := s.q.Front()
	if e == nil || e.(*tcb.Thread).SleepUntil > now {
		return nil
	}
	s.q.PopFront()
	return e.(*tcb.Thread)
}

// Next returns the earliest due tick and whether there is a sleeper.
func (s *SleepQueue) Next() (uint64, bool) {
	e := s.q.Front()
	if e == nil {
		return 0, false
	}
	return e.(*tcb.Thread).SleepUntil, true
}
