// Package klock holds the kernel's mutual-exclusion primitives.
//
// Spinlock masks interrupts on the calling core and busy-waits on an atomic
// exchange, so it is safe against both a local timer interrupt and another
// core. Mutex blocks through the scheduler of the core it is bound to and
// hands ownership to waiters in FIFO order.
package klock

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// CPU is the interrupt-mask surface of the core a lock operation runs on.
//
// Masking nests. EnableInterrupts delivers any interrupt that became pending
// while masked once the depth returns to zero.
type CPU interface {
	DisableInterrupts()
	EnableInterrupts()
}

// Spinlock is a short, non-blocking critical section. Never block or switch
// threads while holding one.
type Spinlock struct {
	held atomic.Uint32
	_    cpu.CacheLinePad
}

// Lock masks interrupts on c and spins until the lock is acquired.
func (s *Spinlock) Lock(c CPU) {
	c.DisableInterrupts()
	for s.held.Swap(1) != 0 {
		runtime.Gosched()
	}
}

// TryLock acquires the lock only if it is free. Interrupts stay masked on
// success and are restored on failure.
func (s *Spinlock) TryLock(c CPU) bool {
	c.DisableInterrupts()
	if s.held.Swap(1) == 0 {
		return true
	}
	c.EnableInterrupts()
	return false
}

// Unlock releases the lock and restores the interrupt mask on c.
func (s *Spinlock) Unlock(c CPU) {
	if s.held.Swap(0) == 0 {
		panic("klock: unlock of unlocked spinlock")
	}
	c.EnableInterrupts()
}

// Held reports whether some core holds the lock.
func (s *Spinlock) Held() bool { return s.held.Load() != 0 }
