// Package mbox carries threads between cores. A sender parks its message
// record (tcb.Thread.Msg) on a channel and blocks; the consumer core pops the
// thread, reads or rewrites the record, and passes the thread on.
package mbox

import (
	"sync/atomic"

	"pebbles/kern/klock"
	"pebbles/kern/list"
	"pebbles/kern/tcb"
)

// Doorbell wakes a halted core. Rings coalesce.
type Doorbell chan struct{}

// NewDoorbell returns a doorbell that remembers one pending ring.
func NewDoorbell() Doorbell { return make(Doorbell, 1) }

// Ring wakes the owner if it is waiting, or makes its next wait return.
func (d Doorbell) Ring() {
	select {
	case d <- struct{}{}:
	default:
	}
}

// Wait blocks until the doorbell rings or halt closes. It returns false on
// halt.
func (d Doorbell) Wait(halt <-chan struct{}) bool {
	select {
	case <-d:
		return true
	case <-halt:
		return false
	}
}

// Channel is a single-producer, single-consumer FIFO of threads guarded by a
// spinlock. Messages are delivered in send order.
type Channel struct {
	_    [0]func() // prevent accidental copying.
	lock klock.Spinlock
	q    list.List
	n    atomic.Int32
	bell Doorbell
}

// NewChannel returns a channel that rings bell on every send.
func NewChannel(bell Doorbell) *Channel {
	return &Channel{bell: bell}
}

// Send appends t; its Msg must be filled in. c is the sending core.
func (ch *Channel) Send(c klock.CPU, t *tcb.Thread) {
	ch.lock.Lock(c)
	ch.q.PushBack(t)
	ch.n.Add(1)
	ch.lock.Unlock(c)
	if ch.bell != nil {
		ch.bell.Ring()
	}
}

// TryRecv pops the oldest thread, or returns nil if the channel is empty.
func (ch *Channel) TryRecv(c klock.CPU) *tcb.Thread {
	if ch.n.Load() == 0 {
		return nil
	}
	ch.lock.Lock(c)
	e := ch.q.PopFront()
	if e != nil {
		ch.n.Add(-1)
	}
	ch.lock.Unlock(c)
	if e == nil {
		return nil
	}
	return e.(*tcb.Thread)
}

// Pending reports whether a message is waiting. It takes no lock.
func (ch *Channel) Pending() bool { return ch.n.Load() > 0 }

// Len returns the number of waiting messages.
func (ch *Channel) Len() int { return int(ch.n.Load()) }

// Pair connects one worker core to the manager.
type Pair struct {
	Up   *Channel // worker -> manager
	Down *Channel // manager -> worker
}

// NewPair returns a channel pair; up rings the manager and down rings the
// worker.
func NewPair(manager, worker Doorbell) *Pair {
	return &Pair{Up: NewChannel(manager), Down: NewChannel(worker)}
}
