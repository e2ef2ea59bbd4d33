// Package core is one CPU of the kernel: its scheduler state, the context
// switch state machine, interrupt delivery, message delivery from the
// manager core, and the syscall surface user threads see through Context.
//
// A core is held by exactly one goroutine at a time. Every thread runs on its
// own goroutine and parks on its control block when it is switched out;
// switching hands the core to the next thread and parks the caller.
package core

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"pebbles/kern/defs"
	"pebbles/kern/klock"
	"pebbles/kern/list"
	"pebbles/kern/mbox"
	"pebbles/kern/sched"
	"pebbles/kern/tcb"
	"pebbles/kern/vm"
)

// Logger writes newline-delimited log lines. hal.Logger satisfies it.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// Env is the machine-wide state every core shares.
type Env struct {
	IDs      *tcb.IDSource
	Frames   *vm.Frames
	Programs Programs
	Log      Logger

	// Halt closes when the machine stops. Parked threads exit on it.
	Halt <-chan struct{}

	// Ticks returns the global timer tick count.
	Ticks func() uint64

	// Fatal stops the machine after a kernel panic.
	Fatal func(error)
}

// Core is one CPU. Core 0 is the manager and has no link; every other core
// is a worker connected to the manager by a channel pair.
type Core struct {
	id    int
	env   *Env
	store *tcb.Store
	link  *mbox.Pair
	bell  mbox.Doorbell

	rq sched.RunQueue

	sleepLock klock.Spinlock
	sleepq    sched.SleepQueue

	zlock   klock.Spinlock
	zombies list.List

	deschedMu   klock.Mutex
	descheduled map[int]*tcb.Thread

	printMu klock.Mutex

	current *tcb.Thread
	idle    *tcb.Thread
	kproc   *tcb.Process
	active  *vm.AddressSpace

	// depth is the interrupt mask nesting; only the holder touches it.
	depth int
	timer atomic.Bool

	switches atomic.Uint64
	_        cpu.CacheLinePad
}

// New returns core id with room for slots threads. link is nil for the
// manager core.
func New(id int, slots int, env *Env, link *mbox.Pair, bell mbox.Doorbell) *Core {
	c := &Core{
		id:          id,
		env:         env,
		link:        link,
		bell:        bell,
		descheduled: make(map[int]*tcb.Thread),
	}
	c.store = tcb.NewStore(id, slots, env.IDs, c)
	c.kproc = c.store.NewPlaceholder()
	c.deschedMu.Init(c)
	c.printMu.Init(c)
	return c
}

// ID returns the core number.
func (c *Core) ID() int { return c.id }

// Store returns the core's control block store.
func (c *Core) Store() *tcb.Store { return c.store }

// Bell returns the doorbell that wakes this core.
func (c *Core) Bell() mbox.Doorbell { return c.bell }

// Current returns the thread holding the core.
func (c *Core) Current() *tcb.Thread { return c.current }

// Placeholder returns the process detached threads point at while in
// transit.
func (c *Core) Placeholder() *tcb.Process { return c.kproc }

// Switches returns the number of context swaps performed.
func (c *Core) Switches() uint64 { return c.switches.Load() }

// ActiveAS returns the address space of the running thread's process.
func (c *Core) ActiveAS() *vm.AddressSpace { return c.active }

// Logf writes one log line prefixed with the core number.
func (c *Core) Logf(format string, args ...any) {
	if c.env.Log == nil {
		return
	}
	c.env.Log.WriteLineString(fmt.Sprintf("core%d: ", c.id) + fmt.Sprintf(format, args...))
}

// Self implements klock.Scheduler.
func (c *Core) Self() list.Elem { return c.current }

// Block implements klock.Scheduler.
func (c *Core) Block() { c.Switch(OpBlock, Arg{}) }

// Wake implements klock.Scheduler.
func (c *Core) Wake(e list.Elem) {
	c.Switch(OpMakeRunnable, Arg{Thread: e.(*tcb.Thread)})
}

// Yield implements klock.Scheduler.
func (c *Core) Yield() { c.Switch(OpYield, Arg{TID: defs.AnyThread}) }

// Warnf implements klock.Scheduler.
func (c *Core) Warnf(format string, args ...any) { c.Logf("warning: "+format, args...) }

// Halted reports whether the machine has stopped.
func (c *Core) Halted() bool {
	select {
	case <-c.env.Halt:
		return true
	default:
		return false
	}
}
