package core

import (
	"pebbles/kern/defs"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

// Every syscall returns a non-negative result or a negated defs.Errno.

// call sends t's message to the manager and blocks until the reply has been
// delivered. It returns the reply's result.
func (c *Core) call(t *tcb.Thread) int {
	if c.link == nil {
		Panic("core%d: no manager link for %s", c.id, t.Msg.Kind)
	}
	c.DisableInterrupts()
	c.link.Up.Send(c, t)
	r := c.Switch(OpBlock, Arg{})
	c.EnableInterrupts()
	return r
}

// Fork creates a copy of the calling single-threaded process, placed on
// whichever worker the manager picks. The child's only thread runs child
// and sees its own copy of the address space, arguments and exception
// handler. The parent gets the child's pid.
func (ctx *Context) Fork(child Entry) int {
	return ctx.sys(func(t *tcb.Thread) int {
		return ctx.c.Switch(OpFork, Arg{Entry: child})
	})
}

// ThreadFork starts entry as a new thread of the calling process on this
// core and returns its tid.
func (ctx *Context) ThreadFork(entry Entry) int {
	return ctx.sys(func(t *tcb.Thread) int {
		return ctx.c.Switch(OpThreadFork, Arg{Entry: entry})
	})
}

// Exec replaces the calling process's image with the named program. It only
// returns on failure.
func (ctx *Context) Exec(name string, args []string) int {
	c := ctx.c
	var entry Entry
	r := ctx.sys(func(t *tcb.Thread) int {
		p := t.Proc()
		if p.Live() > 1 {
			return defs.EINVAL.Ret()
		}
		if c.env.Programs == nil {
			return defs.ENOENT.Ret()
		}
		prog, ok := c.env.Programs.Lookup(name)
		if !ok || prog.Entry == nil {
			return defs.ENOENT.Ret()
		}
		as, err := c.NewImage(prog)
		if err != nil {
			return defs.ENOMEM.Ret()
		}
		old := p.AS
		p.AS = as
		c.active = as
		if old != nil {
			old.Destroy(true)
		}
		p.Args = append([]string{prog.Name}, args...)
		t.Handler = nil
		entry = prog.Entry
		return 0
	})
	if r < 0 {
		return r
	}
	ctx.finish(entry(ctx))
	return 0
}

// SetStatus records the status the process exits with. It outranks the
// value the thread's entry function returns; an explicit Vanish still
// overrides it.
func (ctx *Context) SetStatus(status int) {
	ctx.sys(func(t *tcb.Thread) int {
		p := t.Proc()
		p.Status = clampStatus(status)
		p.StatusSet = true
		return 0
	})
}

func clampStatus(status int) int {
	return min(max(status, defs.MinStatus), defs.MaxStatus)
}

// finish vanishes with ret, the entry function's return value, unless
// SetStatus already chose the process's status.
func (ctx *Context) finish(ret int) {
	if t := ctx.c.current; t != nil {
		if p := t.Proc(); p != nil && p.StatusSet {
			ret = p.Status
		}
	}
	ctx.Vanish(ret)
}

// Vanish ends the calling thread. When it is the last thread of its
// process, the process's resources are released and status is reported to
// the parent, saturated to [defs.MinStatus, defs.MaxStatus]. It never
// returns.
func (ctx *Context) Vanish(status int) {
	c := ctx.c
	t := ctx.enter()
	p := t.Proc()
	p.Status = clampStatus(status)

	last := p.Deregister(t)
	t.Detach(c.kproc)
	if last {
		if p.AS != nil {
			p.AS.Destroy(true)
		}
		c.active = nil
		pid, st := p.PID, p.Status
		c.store.FreeProcess(p)

		t.Msg.Request(proto.MsgVanish, t.TID, c.id)
		proto.PidStatusPayload(&t.Msg, pid, st)
		c.call(t)
	}
	c.exitThread(t)
}

// Wait reaps one exited child, oldest first, blocking until one exists. The
// child's status is stored through status when it is non-nil.
func (ctx *Context) Wait(status *int) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		t.Msg.Request(proto.MsgWait, t.TID, c.id)
		proto.PidPayload(&t.Msg, t.Proc().PID)
		r := c.call(t)
		if r < 0 {
			return r
		}
		if _, st, ok := proto.DecodePidStatus(&t.Msg); ok && status != nil {
			*status = st
		}
		return r
	})
}

// Yield gives the core to thread tid, or to any other runnable thread when
// tid is defs.AnyThread.
func (ctx *Context) Yield(tid int) int {
	return ctx.sys(func(t *tcb.Thread) int {
		return ctx.c.Switch(OpYield, Arg{TID: tid})
	})
}

// Deschedule blocks the caller until MakeRunnable names it, unless *reject
// is non-zero. The check and the registration are atomic with respect to
// MakeRunnable.
func (ctx *Context) Deschedule(reject *int) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		if reject == nil {
			return defs.EFAULT.Ret()
		}
		c.deschedMu.Lock()
		if *reject != 0 {
			c.deschedMu.Unlock()
			return 0
		}
		c.descheduled[t.TID] = t
		c.deschedMu.Unlock()

		c.Switch(OpBlock, Arg{})
		return 0
	})
}

// MakeRunnable wakes a thread blocked in Deschedule.
func (ctx *Context) MakeRunnable(tid int) int {
	c := ctx.c
	return ctx.sys(func(*tcb.Thread) int {
		c.deschedMu.Lock()
		t, ok := c.descheduled[tid]
		if !ok {
			c.deschedMu.Unlock()
			return defs.ESRCH.Ret()
		}
		delete(c.descheduled, tid)
		r := c.Switch(OpMakeRunnable, Arg{Thread: t})
		c.deschedMu.Unlock()
		return r
	})
}

// Sleep blocks the caller for at least ticks timer ticks.
func (ctx *Context) Sleep(ticks int) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		if ticks < 0 {
			return defs.EINVAL.Ret()
		}
		if ticks == 0 {
			return 0
		}
		c.DisableInterrupts()
		c.sleepUntil(t, c.env.Ticks()+uint64(ticks))
		c.Switch(OpBlock, Arg{})
		c.EnableInterrupts()
		return 0
	})
}

// GetTID returns the caller's thread id.
func (ctx *Context) GetTID() int {
	return ctx.sys(func(t *tcb.Thread) int { return t.TID })
}

// GetPID returns the caller's process id.
func (ctx *Context) GetPID() int {
	return ctx.sys(func(t *tcb.Thread) int { return t.Proc().PID })
}

// GetTicks returns the number of timer ticks since boot.
func (ctx *Context) GetTicks() int {
	return ctx.sys(func(*tcb.Thread) int { return int(ctx.c.env.Ticks()) })
}

// Args returns the process's argument vector; Args()[0] is the program name.
func (ctx *Context) Args() []string {
	var args []string
	ctx.sys(func(t *tcb.Thread) int {
		args = append(args, t.Proc().Args...)
		return 0
	})
	return args
}

// Swexn registers h as the caller's exception handler, replacing any
// previous one. A nil h deregisters.
func (ctx *Context) Swexn(h ExceptionHandler) int {
	return ctx.sys(func(t *tcb.Thread) int {
		if h == nil {
			t.Handler = nil
			return 0
		}
		t.Handler = &tcb.Handler{Func: func(env any, cause any) {
			h(env.(*Context), cause)
		}}
		return 0
	})
}

// Preempt is an interrupt window for code that runs long without making
// syscalls: a pending timer interrupt is taken here.
func (ctx *Context) Preempt() {
	ctx.sys(func(*tcb.Thread) int { return 0 })
}
