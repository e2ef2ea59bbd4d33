package klock

import "pebbles/kern/list"

// Scheduler is what a Mutex needs from the core whose threads contend for it.
type Scheduler interface {
	CPU

	// Self returns the calling thread.
	Self() list.Elem

	// Block deschedules the calling thread until Wake is called for it.
	// The caller has interrupts masked.
	Block()

	// Wake makes a blocked thread runnable without switching to it.
	Wake(list.Elem)

	// Yield gives the core to any other runnable thread.
	Yield()

	Warnf(format string, args ...any)
}

type sentinel struct{ link list.Link }

func (s *sentinel) Link() *list.Link { return &s.link }

var destroyed = &sentinel{}

// Mutex is a blocking, FIFO-fair lock whose contenders all live on the core
// of the Scheduler it was initialized with.
//
// Re-entry: Lock by the current holder is not recursive locking. It only
// happens when a preempted instance of the same logical Lock call resumes
// after an interrupt path locked the mutex on the same thread; the caller
// yields until the interrupted critical section completes and then retries.
// Kernel code must never call Lock from truly nested logic.
type Mutex struct {
	s       Scheduler
	spin    Spinlock
	holder  list.Elem
	waiters list.List
}

// Init binds the mutex to a core's scheduler. A zero Mutex must be
// initialized before use.
func (m *Mutex) Init(s Scheduler) {
	m.s = s
	m.holder = nil
	m.waiters = list.List{}
}

// NewMutex returns a mutex bound to s.
func NewMutex(s Scheduler) *Mutex {
	m := &Mutex{}
	m.Init(s)
	return m
}

// Lock acquires m, blocking in FIFO order behind earlier contenders.
func (m *Mutex) Lock() {
	s := m.s
	for {
		s.DisableInterrupts()
		m.spin.Lock(s)
		me := s.Self()
		switch m.holder {
		case nil:
			m.holder = me
			m.spin.Unlock(s)
			s.EnableInterrupts()
			return
		case destroyed:
			m.spin.Unlock(s)
			s.EnableInterrupts()
			panic("klock: lock of destroyed mutex")
		case me:
			m.spin.Unlock(s)
			s.EnableInterrupts()
			s.Yield()
			continue
		}

		m.waiters.PushBack(me)
		m.spin.Unlock(s)
		s.Block()
		s.EnableInterrupts()

		// Unlock handed the mutex over directly.
		if m.Holder() != me {
			panic("klock: woken without ownership")
		}
		return
	}
}

// Unlock releases m, passing it to the longest waiter if there is one.
func (m *Mutex) Unlock() {
	s := m.s
	m.spin.Lock(s)
	if m.holder != s.Self() {
		m.spin.Unlock(s)
		panic("klock: unlock by non-holder")
	}
	next := m.waiters.PopFront()
	m.holder = next
	if next != nil {
		s.Wake(next)
	}
	m.spin.Unlock(s)
}

// Destroy retires m. It waits, yielding, until m is free with no waiters;
// destroying a contended mutex is a caller bug and is reported, not fatal.
func (m *Mutex) Destroy() {
	s := m.s
	for attempt := 0; ; attempt++ {
		m.spin.Lock(s)
		if m.holder == destroyed {
			m.spin.Unlock(s)
			panic("klock: double destroy")
		}
		if m.holder == nil && m.waiters.Empty() {
			m.holder = destroyed
			m.spin.Unlock(s)
			return
		}
		m.spin.Unlock(s)
		if attempt == 0 {
			s.Warnf("klock: destroy of contended mutex, retrying")
		}
		s.Yield()
	}
}

// Holder returns the owning thread, or nil when free.
func (m *Mutex) Holder() list.Elem {
	m.spin.Lock(m.s)
	h := m.holder
	m.spin.Unlock(m.s)
	if h == destroyed {
		return nil
	}
	return h
}

// Destroyed reports whether Destroy completed.
func (m *Mutex) Destroyed() bool {
	m.spin.Lock(m.s)
	d := m.holder == destroyed
	m.spin.Unlock(m.s)
	return d
}

// Waiters returns the number of queued contenders.
func (m *Mutex) Waiters() int {
	m.spin.Lock(m.s)
	n := m.waiters.Len()
	m.spin.Unlock(m.s)
	return n
}
