package core

import "pebbles/kern/tcb"

// reapOne frees at most one dead thread. It gives up unless both the zombie
// lock and the allocator lock are free right now.
func (c *Core) reapOne() bool {
	if !c.zlock.TryLock(c) {
		return false
	}
	if !c.store.TryLockAlloc() {
		c.zlock.Unlock(c)
		return false
	}
	e := c.zombies.PopFront()
	if e != nil {
		z := e.(*tcb.Thread)
		if z.State() != tcb.Blocked || !z.Dead() {
			c.store.UnlockAlloc()
			c.zlock.Unlock(c)
			Panic("core%d: zombie %d in state %s", c.id, z.TID, z.State())
		}
		c.store.FreeThreadLocked(z)
	}
	c.store.UnlockAlloc()
	c.zlock.Unlock(c)
	return e != nil
}

// reapAll drains the zombie list. Only the idle thread calls it.
func (c *Core) reapAll() int {
	n := 0
	for c.Zombies() > 0 {
		if !c.reapOne() {
			break
		}
		n++
	}
	return n
}

// Zombies returns the number of dead threads awaiting reclamation.
func (c *Core) Zombies() int {
	c.zlock.Lock(c)
	n := c.zombies.Len()
	c.zlock.Unlock(c)
	return n
}
