// Package tcb is the control block store: thread and process records, the
// per-core stack arena, and the lookup from a stack address to its thread.
package tcb

import (
	"pebbles/kern/defs"
	"pebbles/kern/list"
	"pebbles/kern/proto"
)

// Stack is a thread's fixed-size, downward-growing kernel stack region.
// The control block sits in the top TCBSize bytes.
type Stack struct {
	Base uintptr
	Size uintptr
}

// Top returns the first address past the region.
func (s Stack) Top() uintptr { return s.Base + s.Size }

// Contains reports whether addr lies inside the region.
func (s Stack) Contains(addr uintptr) bool { return addr >= s.Base && addr < s.Top() }

// Handler is a registered software-exception handler. Func receives the
// syscall environment of the faulting thread and the fault cause.
type Handler struct {
	Func func(env any, cause any)
}

// Clone returns a copy of h for a forked thread.
func (h *Handler) Clone() *Handler {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// Thread is a thread control block.
type Thread struct {
	TID   int
	Core  int
	Stack Stack

	// Result is the outcome of the last switch operation, read by the thread
	// when it runs again.
	Result int

	Handler *Handler

	// Msg is the record used to talk to the manager core.
	Msg proto.Message

	// SleepUntil is the tick at which a sleeping thread is due.
	SleepUntil uint64

	// SavedIRQ is the interrupt mask depth the thread switched out with.
	SavedIRQ int

	proc  *Process
	slot  int
	state State
	dead  bool
	link  list.Link
	run   chan struct{}
}

// Link implements list.Elem.
func (t *Thread) Link() *list.Link { return &t.link }

// Proc returns the owning process, or the idle placeholder while the thread
// is detached.
func (t *Thread) Proc() *Process { return t.proc }

// Detach moves a vanishing thread onto a placeholder process without
// touching the placeholder's accounting.
func (t *Thread) Detach(placeholder *Process) { t.proc = placeholder }

// SP returns the initial stack pointer: just below the control block.
func (t *Thread) SP() uintptr { return t.Stack.Top() - defs.TCBSize - 16 }

// MarkDead records that the thread will never run again.
func (t *Thread) MarkDead() { t.dead = true }

// Dead reports whether MarkDead was called.
func (t *Thread) Dead() bool { return t.dead }

// Park blocks the calling goroutine until Unpark. It returns false when halt
// closes first.
func (t *Thread) Park(halt <-chan struct{}) bool {
	select {
	case <-t.run:
		return true
	case <-halt:
		return false
	}
}

// Unpark lets the thread's goroutine continue. An Unpark before the matching
// Park is kept.
func (t *Thread) Unpark() {
	select {
	case t.run <- struct{}{}:
	default:
		panic("tcb: double unpark")
	}
}
