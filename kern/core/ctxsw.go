package core

import (
	"runtime"

	"pebbles/kern/defs"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

// Op selects a context switch transition.
type Op uint8

const (
	// OpContextSwitch queues the caller and runs whatever is next.
	OpContextSwitch Op = iota + 1

	// OpFork sends the caller's fork request to the manager and blocks until
	// the child exists somewhere. Rejected for multi-threaded processes.
	OpFork

	// OpThreadFork creates a thread in the caller's process on this core.
	// The caller keeps running.
	OpThreadFork

	// OpBlock deschedules the caller unless a wakeup already arrived.
	OpBlock

	// OpMakeRunnable readies a blocked thread without switching to it.
	OpMakeRunnable

	// OpResume readies a blocked thread and switches to it.
	OpResume

	// OpYield switches to a specific thread, or to any other one.
	OpYield
)

func (op Op) String() string {
	switch op {
	case OpContextSwitch:
		return "context_switch"
	case OpFork:
		return "fork"
	case OpThreadFork:
		return "thread_fork"
	case OpBlock:
		return "block"
	case OpMakeRunnable:
		return "make_runnable"
	case OpResume:
		return "resume"
	case OpYield:
		return "yield"
	default:
		return "unknown"
	}
}

// Arg is the operand of a switch. Which field matters depends on the Op.
type Arg struct {
	TID    int
	Thread *tcb.Thread
	Entry  Entry
}

// Switch is the only place where the thread running on this core changes.
// The result is the caller's outcome: an error as a negative errno, the id
// of a created thread, or whatever was delivered to a blocked caller.
func (c *Core) Switch(op Op, arg Arg) int {
	c.DisableInterrupts()

	cur := c.current
	next := cur
	ret := 0
	blocked := false

	switch op {
	case OpContextSwitch:
		c.enqueue(cur)
		next = c.pick(defs.AnyThread)

	case OpFork:
		if ret = c.requestFork(cur, arg.Entry); ret == 0 {
			blocked = cur.BeginBlock()
			next = c.pick(defs.AnyThread)
		}

	case OpThreadFork:
		ret = c.threadFork(cur, arg.Entry)

	case OpBlock:
		cur.Result = 0
		if blocked = cur.BeginBlock(); blocked {
			next = c.pick(defs.AnyThread)
		}

	case OpMakeRunnable:
		switch arg.Thread.Ready() {
		case tcb.Enqueue:
			c.rq.MakeRunnable(arg.Thread)
		case tcb.Invalid:
			ret = defs.EINVAL.Ret()
		}

	case OpResume:
		switch arg.Thread.Ready() {
		case tcb.Enqueue:
			c.enqueue(cur)
			next = arg.Thread
		case tcb.Invalid:
			ret = defs.EINVAL.Ret()
		}

	case OpYield:
		ret = c.yieldTo(cur, arg.TID, &next)

	default:
		Panic("core%d: unknown switch op %d", c.id, op)
	}

	if next != cur {
		next.Resumed()
		c.swap(cur, next)
	} else {
		cur.Resumed()
	}

	if blocked {
		ret = cur.Result
	}
	c.EnableInterrupts()
	return ret
}

func (c *Core) yieldTo(cur *tcb.Thread, tid int, next **tcb.Thread) int {
	switch tid {
	case defs.AnyThread:
		if t := c.rq.GetNext(defs.AnyThread, c); t != nil {
			c.enqueue(cur)
			*next = t
		}
		return 0
	case cur.TID:
		return 0
	}
	t := c.rq.GetNext(tid, c)
	if t == nil {
		if c.store.Lookup(tid) != nil {
			return defs.EINVAL.Ret()
		}
		return defs.ESRCH.Ret()
	}
	c.enqueue(cur)
	*next = t
	return 0
}

// pick returns the next thread to run, falling back to the idle thread.
func (c *Core) pick(target int) *tcb.Thread {
	if t := c.rq.GetNext(target, c); t != nil {
		return t
	}
	return c.idle
}

// enqueue puts a preempted or yielding thread back on the run queue. The
// idle thread never queues.
func (c *Core) enqueue(t *tcb.Thread) {
	if t == c.idle || t.Dead() {
		return
	}
	c.rq.MakeRunnable(t)
}

// swap hands the core to next and parks cur until it is switched back in.
// A dead cur never comes back.
func (c *Core) swap(cur, next *tcb.Thread) {
	cur.SavedIRQ = c.depth
	dead := cur.Dead()
	c.current = next
	c.switches.Add(1)
	next.Unpark()
	if dead {
		runtime.Goexit()
	}
	if !cur.Park(c.env.Halt) {
		runtime.Goexit()
	}
	c.afterSwitch()
}

// afterSwitch runs on the thread that just got the core: restore its
// interrupt mask, map its address space, and reclaim one dead thread if the
// locks are free.
func (c *Core) afterSwitch() {
	t := c.current
	c.depth = t.SavedIRQ
	if p := t.Proc(); p != nil {
		c.active = p.AS
	} else {
		c.active = nil
	}
	c.reapOne()
}

// requestFork parks the fork request on the manager channel. The caller
// blocks right after.
func (c *Core) requestFork(t *tcb.Thread, entry Entry) int {
	p := t.Proc()
	if p.Live() > 1 {
		return defs.EINVAL.Ret()
	}
	if c.link == nil || entry == nil {
		return defs.EINVAL.Ret()
	}
	t.Result = 0
	t.Msg.Request(proto.MsgFork, t.TID, c.id)
	proto.ForkPayload(&t.Msg, p.PID, 0)
	t.Msg.Obj = entry
	c.link.Up.Send(c, t)
	return 0
}

func (c *Core) threadFork(t *tcb.Thread, entry Entry) int {
	if entry == nil {
		return defs.EINVAL.Ret()
	}
	child, err := c.store.CreateThread(t.Proc())
	if err != nil {
		return defs.ENOMEM.Ret()
	}
	c.startUser(child, entry)
	c.rq.MakeRunnable(child)
	return child.TID
}

// exitThread switches a dying thread out for the last time. The next thread
// on this core reclaims its control block.
func (c *Core) exitThread(t *tcb.Thread) {
	c.DisableInterrupts()
	t.Handler = nil
	t.MarkDead()
	c.zlock.Lock(c)
	c.zombies.PushBack(t)
	c.zlock.Unlock(c)

	t.ForceBlocked()
	next := c.pick(defs.AnyThread)
	next.Resumed()
	c.swap(t, next)
	Panic("core%d: dead thread %d resumed", c.id, t.TID)
}
