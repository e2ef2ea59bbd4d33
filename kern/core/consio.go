package core

import (
	"errors"

	"pebbles/kern/defs"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
	"pebbles/kern/vm"
)

// Print writes b to the console. Output larger than one message travels in
// several; threads of one core never interleave within a Print.
func (ctx *Context) Print(b []byte) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		c.printMu.Lock()
		defer c.printMu.Unlock()

		n := 0
		for len(b) > 0 {
			t.Msg.Request(proto.MsgPrint, t.TID, c.id)
			k := t.Msg.SetPayload(b)
			if r := c.call(t); r < 0 {
				return r
			}
			n += k
			b = b[k:]
		}
		return n
	})
}

// Readline blocks until a full line of keyboard input is available and
// copies up to len(buf) bytes of it, newline included, into buf.
func (ctx *Context) Readline(buf []byte) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		if len(buf) == 0 || len(buf) > proto.MaxMessageBytes {
			return defs.EINVAL.Ret()
		}
		t.Msg.Request(proto.MsgReadline, t.TID, c.id)
		proto.ReadlinePayload(&t.Msg, len(buf))
		r := c.call(t)
		if r < 0 {
			return r
		}
		return copy(buf, t.Msg.Payload())
	})
}

// SetTermColor sets the attribute used for subsequent output.
func (ctx *Context) SetTermColor(color int) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		if color < 0 || color > 0xFF {
			return defs.EINVAL.Ret()
		}
		t.Msg.Request(proto.MsgSetColor, t.TID, c.id)
		proto.ColorPayload(&t.Msg, uint8(color))
		return c.call(t)
	})
}

// SetCursorPos moves the console cursor.
func (ctx *Context) SetCursorPos(row, col int) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		if !proto.CursorFits(row, col) {
			return defs.EINVAL.Ret()
		}
		t.Msg.Request(proto.MsgSetCursor, t.TID, c.id)
		proto.CursorPayload(&t.Msg, row, col)
		return c.call(t)
	})
}

// GetCursorPos stores the console cursor position through row and col.
func (ctx *Context) GetCursorPos(row, col *int) int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		if row == nil || col == nil {
			return defs.EFAULT.Ret()
		}
		t.Msg.Request(proto.MsgGetCursor, t.TID, c.id)
		if r := c.call(t); r < 0 {
			return r
		}
		r, cl, ok := proto.DecodeCursor(&t.Msg)
		if !ok {
			return defs.EFAULT.Ret()
		}
		*row, *col = r, cl
		return 0
	})
}

// SetInit makes the calling process the one orphans are handed to.
func (ctx *Context) SetInit() int {
	c := ctx.c
	return ctx.sys(func(t *tcb.Thread) int {
		t.Msg.Request(proto.MsgSetInit, t.TID, c.id)
		proto.PidPayload(&t.Msg, t.Proc().PID)
		return c.call(t)
	})
}

// NewPages maps n zero-filled pages at base.
func (ctx *Context) NewPages(base uint32, n int) int {
	return ctx.sys(func(t *tcb.Thread) int {
		if n <= 0 || base%defs.PageSize != 0 {
			return defs.EINVAL.Ret()
		}
		if uint64(n) > (defs.AddressSpaceSize-uint64(base))/defs.PageSize {
			return defs.EINVAL.Ret()
		}
		p := t.Proc()
		locks := p.RegionSpan(base, uint64(n)*defs.PageSize)
		for _, m := range locks {
			m.Lock()
		}
		err := p.AS.Map(base, n)
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
		return vmErr(err)
	})
}

// RemovePages unmaps the region NewPages created at base.
func (ctx *Context) RemovePages(base uint32) int {
	return ctx.sys(func(t *tcb.Thread) int {
		p := t.Proc()
		m := p.Region(base)
		m.Lock()
		err := p.AS.Unmap(base)
		m.Unlock()
		if errors.Is(err, vm.ErrNotMapped) {
			return defs.EINVAL.Ret()
		}
		return vmErr(err)
	})
}

// WriteMem copies b into the caller's address space at addr.
func (ctx *Context) WriteMem(addr uint32, b []byte) int {
	return ctx.sys(func(t *tcb.Thread) int {
		return ctx.access(t, addr, len(b), func(p *tcb.Process) error { return p.AS.Write(addr, b) })
	})
}

// ReadMem copies from the caller's address space at addr into b.
func (ctx *Context) ReadMem(addr uint32, b []byte) int {
	return ctx.sys(func(t *tcb.Thread) int {
		return ctx.access(t, addr, len(b), func(p *tcb.Process) error { return p.AS.Read(addr, b) })
	})
}

func (ctx *Context) access(t *tcb.Thread, addr uint32, n int, fn func(p *tcb.Process) error) int {
	if n == 0 {
		return 0
	}
	if uint64(addr)+uint64(n) > defs.AddressSpaceSize {
		return defs.EFAULT.Ret()
	}
	p := t.Proc()
	locks := p.RegionSpan(addr, uint64(n))
	for _, m := range locks {
		m.Lock()
	}
	err := fn(p)
	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].Unlock()
	}
	if err != nil {
		return defs.EFAULT.Ret()
	}
	return n
}

func vmErr(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, vm.ErrNoFrames):
		return defs.ENOMEM.Ret()
	case errors.Is(err, vm.ErrOverlap):
		return defs.EEXIST.Ret()
	default:
		return defs.EINVAL.Ret()
	}
}
