package tcb

import (
	"errors"
	"sync/atomic"

	"pebbles/kern/defs"
	"pebbles/kern/klock"
	"pebbles/kern/vm"
)

// ErrNoStack is returned when a core's stack arena is exhausted.
var ErrNoStack = errors.New("tcb: no free stack slot")

// ArenaBase is where core 0's stack arena starts; each core's arena follows
// the previous one.
const ArenaBase uintptr = 0x4000_0000

// IDSource hands out thread ids for a whole machine. Ids are never reused.
type IDSource struct {
	next atomic.Int64
}

// Next returns a fresh id. The first id is 1.
func (s *IDSource) Next() int { return int(s.next.Add(1)) }

// Store owns one core's threads and processes.
type Store struct {
	cpu   int
	ids   *IDSource
	sched klock.Scheduler

	base  uintptr
	slots []*Thread
	free  []int
	byTID map[int]*Thread
	alloc klock.Spinlock
}

// NewStore returns the store of core cpu with room for n threads. Region
// sub-locks of processes created here block through s.
func NewStore(cpu int, n int, ids *IDSource, s klock.Scheduler) *Store {
	st := &Store{
		cpu:   cpu,
		ids:   ids,
		sched: s,
		base:  ArenaBase + uintptr(cpu)*uintptr(n)*defs.StackSize,
		slots: make([]*Thread, n),
		free:  make([]int, 0, n),
		byTID: make(map[int]*Thread),
	}
	for i := n - 1; i >= 0; i-- {
		st.free = append(st.free, i)
	}
	return st
}

// Capacity returns the number of stack slots in the arena.
func (s *Store) Capacity() int { return len(s.slots) }

// Free returns the number of unused stack slots.
func (s *Store) Free() int {
	s.alloc.Lock(s.sched)
	n := len(s.free)
	s.alloc.Unlock(s.sched)
	return n
}

// CreateThread reserves a stack slot and returns a new thread registered
// with p. A nil p creates a kernel thread with no owner.
func (s *Store) CreateThread(p *Process) (*Thread, error) {
	s.alloc.Lock(s.sched)
	defer s.alloc.Unlock(s.sched)

	if len(s.free) == 0 {
		return nil, ErrNoStack
	}
	slot := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	t := &Thread{
		TID:  s.ids.Next(),
		Core: s.cpu,
		Stack: Stack{
			Base: s.base + uintptr(slot)*defs.StackSize,
			Size: defs.StackSize,
		},
		SavedIRQ: 1,
		slot:     slot,
		run:      make(chan struct{}, 1),
	}
	s.slots[slot] = t
	s.byTID[t.TID] = t
	if p != nil {
		p.Register(t)
	}
	return t, nil
}

// CreateProcess creates a process and its first thread. The pid is the
// thread's tid.
func (s *Store) CreateProcess(ppid int, as *vm.AddressSpace) (*Process, *Thread, error) {
	p := &Process{PPID: ppid, Core: s.cpu, AS: as}
	t, err := s.CreateThread(p)
	if err != nil {
		return nil, nil, err
	}
	p.PID = t.TID
	for i := range p.Regions {
		p.Regions[i].Init(s.sched)
	}
	return p, t, nil
}

// NewPlaceholder returns a process record that owns no threads and is never
// registered anywhere; detached threads point at it while in transit.
func (s *Store) NewPlaceholder() *Process {
	p := &Process{Core: s.cpu}
	for i := range p.Regions {
		p.Regions[i].Init(s.sched)
	}
	return p
}

// LookupByStack returns the thread whose stack contains addr, or nil.
func (s *Store) LookupByStack(addr uintptr) *Thread {
	if addr < s.base {
		return nil
	}
	slot := (addr - s.base) / defs.StackSize
	if slot >= uintptr(len(s.slots)) {
		return nil
	}
	return s.slots[slot]
}

// Lookup returns the live thread with the given id, or nil.
func (s *Store) Lookup(tid int) *Thread {
	s.alloc.Lock(s.sched)
	t := s.byTID[tid]
	s.alloc.Unlock(s.sched)
	return t
}

// Len returns the number of allocated threads.
func (s *Store) Len() int {
	s.alloc.Lock(s.sched)
	n := len(s.byTID)
	s.alloc.Unlock(s.sched)
	return n
}

// Each calls fn for every allocated thread. fn must not call back into s.
func (s *Store) Each(fn func(*Thread)) {
	s.alloc.Lock(s.sched)
	defer s.alloc.Unlock(s.sched)
	for _, t := range s.slots {
		if t != nil {
			fn(t)
		}
	}
}

// FreeThread returns t's stack slot to the arena.
func (s *Store) FreeThread(t *Thread) {
	s.alloc.Lock(s.sched)
	s.FreeThreadLocked(t)
	s.alloc.Unlock(s.sched)
}

// TryLockAlloc takes the allocator lock only if it is free.
func (s *Store) TryLockAlloc() bool { return s.alloc.TryLock(s.sched) }

// UnlockAlloc releases the allocator lock.
func (s *Store) UnlockAlloc() { s.alloc.Unlock(s.sched) }

// FreeThreadLocked is FreeThread for callers holding the allocator lock.
func (s *Store) FreeThreadLocked(t *Thread) {
	if t.Core != s.cpu || s.slots[t.slot] != t {
		panic("tcb: free of foreign thread")
	}
	if t.link.Linked() {
		panic("tcb: free of queued thread")
	}
	s.slots[t.slot] = nil
	s.free = append(s.free, t.slot)
	delete(s.byTID, t.TID)
	t.Handler = nil
	t.proc = nil
}

// FreeProcess retires p's region locks. p must have no live threads.
func (s *Store) FreeProcess(p *Process) {
	if p.live != 0 {
		panic("tcb: free of process with live threads")
	}
	for i := range p.Regions {
		p.Regions[i].Destroy()
	}
	p.AS = nil
}
