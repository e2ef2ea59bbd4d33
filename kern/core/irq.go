package core

import (
	"pebbles/kern/tcb"
)

// DisableInterrupts masks interrupts on this core. Masking nests.
func (c *Core) DisableInterrupts() { c.depth++ }

// EnableInterrupts undoes one DisableInterrupts. When the mask depth returns
// to zero a pending timer interrupt is taken, which may switch threads.
func (c *Core) EnableInterrupts() {
	if c.depth <= 0 {
		Panic("core%d: interrupt mask underflow", c.id)
	}
	c.depth--
	if c.depth == 0 {
		c.serviceInterrupts()
	}
}

// InterruptsEnabled reports whether the mask depth is zero.
func (c *Core) InterruptsEnabled() bool { return c.depth == 0 }

// RaiseTimer marks a timer interrupt pending and wakes the core if it is
// halted. It is called from the tick source, never from the core itself.
func (c *Core) RaiseTimer() {
	c.timer.Store(true)
	c.bell.Ring()
}

func (c *Core) serviceInterrupts() {
	for c.depth == 0 && c.timer.Swap(false) {
		c.timerInterrupt()
	}
}

// timerInterrupt runs the tick handler with interrupts masked, as the
// hardware gate would, and then preempts the running thread.
func (c *Core) timerInterrupt() {
	c.depth = 1
	if t := c.TimerTick(c.env.Ticks()); t != nil {
		c.Switch(OpResume, Arg{Thread: t})
	} else {
		c.Switch(OpContextSwitch, Arg{})
	}
	c.depth = 0
}

// TimerTick wakes every sleeper due at now. The first one is returned so the
// caller can switch to it directly; the rest go on the run queue. It never
// blocks.
func (c *Core) TimerTick(now uint64) *tcb.Thread {
	c.sleepLock.Lock(c)
	defer c.sleepLock.Unlock(c)

	first := c.sleepq.PopDue(now)
	for t := c.sleepq.PopDue(now); t != nil; t = c.sleepq.PopDue(now) {
		if t.Ready() == tcb.Enqueue {
			c.rq.MakeRunnable(t)
		}
	}
	return first
}

// sleepUntil queues the current thread on the sleep queue. The caller has
// interrupts masked and blocks right after.
func (c *Core) sleepUntil(t *tcb.Thread, due uint64) {
	c.sleepLock.Lock(c)
	c.sleepq.Add(t, due)
	c.sleepLock.Unlock(c)
}
