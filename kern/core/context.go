package core

import (
	"runtime"

	"pebbles/kern/defs"
	"pebbles/kern/tcb"
)

// Entry is the code of a user thread. Its return value is the status the
// thread vanishes with.
type Entry func(ctx *Context) int

// Program is a loadable image.
type Program struct {
	Name  string
	Entry Entry
	Pages int
}

// Programs resolves program names for exec and boot.
type Programs interface {
	Lookup(name string) (Program, bool)
}

// ExceptionHandler runs once when a thread faults, with the fault cause.
// It is deregistered before it runs.
type ExceptionHandler func(ctx *Context, cause any)

// Context provides thread-local access to kernel operations. Every syscall
// finds its thread from the stack address the Context was created with.
type Context struct {
	c      *Core
	sp     uintptr
	kernel bool
}

// Core returns the core the thread lives on.
func (ctx *Context) Core() *Core { return ctx.c }

func (ctx *Context) run(entry Entry) {
	defer ctx.recoverFault()
	if entry == nil {
		ctx.Vanish(defs.ExceptionStatus)
	}
	ctx.finish(entry(ctx))
}

// enter is the syscall gate: it honours a halted machine, identifies the
// caller from its stack, and takes pending interrupts.
func (ctx *Context) enter() *tcb.Thread {
	c := ctx.c
	if c.Halted() {
		runtime.Goexit()
	}
	t := c.store.LookupByStack(ctx.sp)
	if t == nil || t != c.current {
		Panic("core%d: syscall from unknown stack %#x", c.id, ctx.sp)
	}
	ctx.kernel = true
	c.serviceInterrupts()
	return t
}

// sys runs fn in kernel mode for the calling thread. A panic inside fn is a
// kernel panic, not a user fault.
func (ctx *Context) sys(fn func(t *tcb.Thread) int) int {
	t := ctx.enter()
	r := fn(t)
	ctx.kernel = false
	return r
}

// recoverFault turns a panic in user code into a software exception: the
// registered handler runs once, then the thread vanishes. Panics raised in
// kernel mode stop the machine.
func (ctx *Context) recoverFault() {
	r := recover()
	if r == nil {
		return
	}
	c := ctx.c
	if _, ok := r.(KernelPanic); ok || ctx.kernel {
		c.fatal(r)
	}
	t := c.current
	c.Logf("tid %d: fault: %v", t.TID, r)

	h := t.Handler
	t.Handler = nil
	if h != nil && h.Func != nil {
		ctx.runHandler(h, r)
	}
	ctx.Vanish(defs.ExceptionStatus)
}

func (ctx *Context) runHandler(h *tcb.Handler, cause any) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(KernelPanic); ok || ctx.kernel {
			ctx.c.fatal(r)
		}
		ctx.c.Logf("fault in exception handler: %v", r)
	}()
	h.Func(ctx, cause)
}
