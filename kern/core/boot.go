package core

import (
	"runtime"

	"pebbles/kern/defs"
	"pebbles/kern/tcb"
	"pebbles/kern/vm"
)

// Start creates the idle thread and gives it the core. Threads spawned
// before Start are already on the run queue and run from the idle loop.
func (c *Core) Start() error {
	t, err := c.store.CreateThread(nil)
	if err != nil {
		return err
	}
	t.Detach(c.kproc)
	t.SavedIRQ = 0
	c.idle = t
	c.current = t
	go c.idleLoop()
	return nil
}

func (c *Core) idleLoop() {
	defer c.kernelRecover()
	for {
		c.reapAll()
		c.Switch(OpYield, Arg{TID: defs.AnyThread})
		c.WaitForEvent()
	}
}

// WaitForEvent halts the calling kernel thread until the doorbell rings,
// unless work is already waiting. Pending interrupts are taken afterwards.
func (c *Core) WaitForEvent() {
	if c.rq.Len() == 0 && !c.timer.Load() && (c.link == nil || !c.link.Down.Pending()) {
		if !c.bell.Wait(c.env.Halt) {
			runtime.Goexit()
		}
	}
	c.serviceInterrupts()
}

// SpawnKernel creates a kernel thread running body and queues it. When body
// returns the thread exits.
func (c *Core) SpawnKernel(body func()) (*tcb.Thread, error) {
	t, err := c.store.CreateThread(nil)
	if err != nil {
		return nil, err
	}
	t.Detach(c.kproc)
	c.launch(t, func() {
		defer c.kernelRecover()
		body()
		c.exitThread(t)
	})
	c.DisableInterrupts()
	c.rq.MakeRunnable(t)
	c.EnableInterrupts()
	return t, nil
}

// Spawn creates a process running prog with no parent on this core and
// queues its first thread. It is used to boot the first process.
func (c *Core) Spawn(prog Program, args []string) (*tcb.Process, error) {
	as, err := c.NewImage(prog)
	if err != nil {
		return nil, err
	}
	p, t, err := c.store.CreateProcess(0, as)
	if err != nil {
		as.Destroy(true)
		return nil, err
	}
	p.Args = append([]string{prog.Name}, args...)
	c.startUser(t, prog.Entry)
	c.DisableInterrupts()
	c.rq.MakeRunnable(t)
	c.EnableInterrupts()
	return p, nil
}

// NewImage builds a fresh address space for prog: its image pages at
// defs.UserBase and a stack below defs.UserStackTop.
func (c *Core) NewImage(prog Program) (*vm.AddressSpace, error) {
	as := vm.New(c.env.Frames)
	if prog.Pages > 0 {
		if err := as.Map(defs.UserBase, prog.Pages); err != nil {
			return nil, err
		}
	}
	if err := as.Map(defs.UserStackTop-defs.UserStackPages*defs.PageSize, defs.UserStackPages); err != nil {
		as.Destroy(true)
		return nil, err
	}
	return as, nil
}

// startUser gives t a goroutine that runs entry in user mode.
func (c *Core) startUser(t *tcb.Thread, entry Entry) {
	ctx := &Context{c: c, sp: t.SP()}
	c.launch(t, func() { ctx.run(entry) })
}

// launch starts t's goroutine parked; it first runs when switched to.
func (c *Core) launch(t *tcb.Thread, body func()) {
	go func() {
		if !t.Park(c.env.Halt) {
			return
		}
		c.afterSwitch()
		c.EnableInterrupts()
		body()
	}()
}

func (c *Core) kernelRecover() {
	if r := recover(); r != nil {
		c.fatal(r)
	}
}
