package manager

import (
	"pebbles/kern/list"
	"pebbles/kern/tcb"
)

// exit is an exit-status record waiting for its parent to reap it.
type exit struct {
	pid, status int
}

// record is the manager's view of one live process.
type record struct {
	pid, ppid int

	// children counts child processes, running or exited, that no wait has
	// claimed yet.
	children int
	kids     map[int]struct{}
	exited   []exit
	waiters  list.List
}

type waitOutcome uint8

const (
	waitReaped waitOutcome = iota
	waitNoChild
	waitQueued
)

// table is the global pid table. Every process that exists on some worker
// has a record here from the moment its fork completes until its last
// thread vanishes.
type table struct {
	procs map[int]*record
	init  int
}

func newTable() *table {
	return &table{procs: make(map[int]*record)}
}

func (tb *table) len() int { return len(tb.procs) }

func (tb *table) lookup(pid int) *record { return tb.procs[pid] }

// add records a new process under ppid. A parent that has already vanished
// hands the child to init.
func (tb *table) add(pid, ppid int) *record {
	r := &record{pid: pid, ppid: ppid, kids: make(map[int]struct{})}
	tb.procs[pid] = r
	parent := tb.procs[ppid]
	if parent == nil && pid != tb.init {
		parent = tb.procs[tb.init]
	}
	if parent != nil && parent != r {
		r.ppid = parent.pid
		parent.children++
		parent.kids[pid] = struct{}{}
	}
	return r
}

// setInit makes pid the adoptive parent of orphans.
func (tb *table) setInit(pid int) bool {
	if tb.procs[pid] == nil {
		return false
	}
	tb.init = pid
	return true
}

// wait claims the oldest exited child of pid. When none has exited yet but
// some child is still unclaimed, t is queued and reaped by a later vanish.
func (tb *table) wait(pid int, t *tcb.Thread) (exit, waitOutcome) {
	r := tb.procs[pid]
	if r == nil {
		return exit{}, waitNoChild
	}
	if len(r.exited) > 0 {
		e := r.exited[0]
		r.exited = r.exited[1:]
		r.children--
		return e, waitReaped
	}
	if r.children <= r.waiters.Len() {
		return exit{}, waitNoChild
	}
	r.waiters.PushBack(t)
	return exit{}, waitQueued
}

// vanish removes pid and reports its status to its parent, or to init when
// the parent is gone. Live children and unreaped exits move to init.
// satisfy is called for every queued waiter an exit record completes.
// It reports whether pid was init.
func (tb *table) vanish(pid, status int, satisfy func(t *tcb.Thread, e exit)) bool {
	r := tb.procs[pid]
	if r == nil {
		return false
	}
	delete(tb.procs, pid)

	parent := tb.procs[r.ppid]
	if parent == nil {
		parent = tb.procs[tb.init]
	} else {
		delete(parent.kids, pid)
	}
	if parent != nil {
		if r.ppid != parent.pid {
			parent.children++
		}
		tb.deliver(parent, exit{pid: pid, status: status}, satisfy)
	}

	initRec := tb.procs[tb.init]
	for kid := range r.kids {
		k := tb.procs[kid]
		if k == nil || initRec == nil {
			continue
		}
		k.ppid = initRec.pid
		initRec.kids[kid] = struct{}{}
		initRec.children++
	}
	if initRec != nil {
		for _, e := range r.exited {
			initRec.children++
			tb.deliver(initRec, e, satisfy)
		}
	}
	return pid == tb.init
}

func (tb *table) deliver(r *record, e exit, satisfy func(t *tcb.Thread, e exit)) {
	if w := r.waiters.PopFront(); w != nil {
		r.children--
		satisfy(w.(*tcb.Thread), e)
		return
	}
	r.exited = append(r.exited, e)
}
