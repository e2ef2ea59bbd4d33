package manager

import (
	"pebbles/kern/core"
	"pebbles/kern/defs"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

// fork picks the worker that tries to place the child first. Placement
// moves round-robin across workers from one fork to the next.
func (m *Manager) fork(t *tcb.Thread) {
	ppid, _, ok := proto.DecodeFork(&t.Msg)
	if !ok {
		m.reply(t, defs.EINVAL.Ret())
		return
	}
	start := m.place
	m.place = (m.place + 1) % len(m.workers)

	proto.ForkPayload(&t.Msg, ppid, start)
	t.Msg.Kind = proto.MsgForkExec
	t.Msg.Try = 0
	m.send(m.workers[start], t)
}

// forkDone records a placed child, or retries placement on the next worker
// until every worker has refused once.
func (m *Manager) forkDone(t *tcb.Thread) {
	ppid, start, ok := proto.DecodeFork(&t.Msg)
	if !ok {
		core.Panic("manager: fork completion without placement record")
	}
	if child := int(t.Msg.Result); child > 0 {
		m.lockTable()
		m.tab.add(child, ppid)
		m.unlockTable()
		t.Msg.Kind = proto.MsgFork
		m.reply(t, child)
		return
	}

	t.Msg.Try++
	if int(t.Msg.Try) >= len(m.workers) {
		m.c.Logf("manager: fork of pid %d: no worker could place the child", ppid)
		t.Msg.Kind = proto.MsgFork
		t.Msg.Obj = nil
		m.reply(t, defs.ENOMEM.Ret())
		return
	}
	next := (start + int(t.Msg.Try)) % len(m.workers)
	t.Msg.Kind = proto.MsgForkExec
	m.send(m.workers[next], t)
}

// vanish retires a process whose last thread exited.
func (m *Manager) vanish(t *tcb.Thread) {
	pid, status, ok := proto.DecodePidStatus(&t.Msg)
	if !ok {
		core.Panic("manager: malformed vanish from core %d", t.Msg.ReqCPU)
	}
	m.lockTable()
	wasInit := m.tab.vanish(pid, status, m.reap)
	m.unlockTable()
	m.reply(t, 0)

	if wasInit {
		m.c.Logf("manager: init (pid %d) exited with status %d", pid, status)
		if m.halt != nil {
			m.halt()
		}
	}
}

func (m *Manager) wait(t *tcb.Thread) {
	pid, ok := proto.DecodePid(&t.Msg)
	if !ok {
		m.reply(t, defs.EINVAL.Ret())
		return
	}
	m.lockTable()
	e, outcome := m.tab.wait(pid, t)
	m.unlockTable()

	switch outcome {
	case waitReaped:
		m.reap(t, e)
	case waitNoChild:
		m.reply(t, defs.ECHILD.Ret())
	}
}

// reap completes a wait with the reaped child's pid and status.
func (m *Manager) reap(t *tcb.Thread, e exit) {
	proto.PidStatusPayload(&t.Msg, e.pid, e.status)
	m.reply(t, e.pid)
}

func (m *Manager) setInit(t *tcb.Thread) {
	pid, ok := proto.DecodePid(&t.Msg)
	if !ok {
		m.reply(t, defs.EINVAL.Ret())
		return
	}
	m.lockTable()
	set := m.tab.setInit(pid)
	m.unlockTable()
	if !set {
		m.reply(t, defs.ESRCH.Ret())
		return
	}
	m.reply(t, 0)
}
