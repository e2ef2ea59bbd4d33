package core

import (
	"pebbles/kern/defs"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

// Deliver implements sched.Inbox. It drains the manager-to-worker channel
// until some message makes a thread runnable here: a reply readies the
// blocked requester, and a placed fork produces the child.
func (c *Core) Deliver() *tcb.Thread {
	if c.link == nil {
		return nil
	}
	for {
		t := c.link.Down.TryRecv(c)
		if t == nil {
			return nil
		}
		switch t.Msg.Kind {
		case proto.MsgForkExec:
			if child := c.forkExec(t); child != nil {
				return child
			}
		case proto.MsgReply:
			if t.Core != c.id {
				Panic("core%d: reply for thread %d of core %d", c.id, t.TID, t.Core)
			}
			t.Result = int(t.Msg.Result)
			switch t.Ready() {
			case tcb.Enqueue:
				return t
			case tcb.Invalid:
				Panic("core%d: reply to thread %d in state %s", c.id, t.TID, t.State())
			}
		default:
			Panic("core%d: unexpected %s message from manager", c.id, t.Msg.Kind)
		}
	}
}

// forkExec builds the child of the blocked parent thread t on this core and
// sends t back to the manager with the outcome. Partial state is unwound in
// reverse order on failure.
func (c *Core) forkExec(t *tcb.Thread) *tcb.Thread {
	parent := t.Proc()
	entry, _ := t.Msg.Obj.(Entry)

	fail := func(step string, err error) *tcb.Thread {
		c.Logf("fork of pid %d: %s: %v", parent.PID, step, err)
		t.Msg.Kind = proto.MsgForkDone
		t.Msg.Result = int32(defs.ENOMEM.Ret())
		c.link.Up.Send(c, t)
		return nil
	}

	as, err := parent.AS.Clone()
	if err != nil {
		return fail("clone address space", err)
	}
	h := t.Handler.Clone()
	p, child, err := c.store.CreateProcess(parent.PID, as)
	if err != nil {
		h = nil
		as.Destroy(true)
		return fail("create control blocks", err)
	}
	p.Args = parent.Args
	child.Handler = h
	c.startUser(child, entry)

	t.Msg.Kind = proto.MsgForkDone
	t.Msg.Result = int32(child.TID)
	t.Msg.Obj = nil
	c.link.Up.Send(c, t)
	return child
}
