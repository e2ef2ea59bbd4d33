// Package manager is the kernel thread on core 0 that owns global process
// state. Workers never share lifecycle state with each other; they park the
// requesting thread on their up channel and the manager answers on the
// matching down channel.
package manager

import (
	"sync/atomic"

	"pebbles/kern/console"
	"pebbles/kern/core"
	"pebbles/kern/klock"
	"pebbles/kern/list"
	"pebbles/kern/mbox"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

// KeyBuffer bounds keyboard bytes not yet seen by the manager.
const KeyBuffer = 256

type handler func(m *Manager, t *tcb.Thread)

var dispatch = map[proto.Kind]handler{
	proto.MsgFork:      (*Manager).fork,
	proto.MsgForkDone:  (*Manager).forkDone,
	proto.MsgVanish:    (*Manager).vanish,
	proto.MsgWait:      (*Manager).wait,
	proto.MsgSetInit:   (*Manager).setInit,
	proto.MsgPrint:     (*Manager).print,
	proto.MsgReadline:  (*Manager).readline,
	proto.MsgSetColor:  (*Manager).setColor,
	proto.MsgSetCursor: (*Manager).setCursor,
	proto.MsgGetCursor: (*Manager).getCursor,
}

// Manager serializes fork placement, the pid table, wait/vanish and the
// console.
type Manager struct {
	c       *core.Core
	links   map[int]*mbox.Pair
	workers []int
	con     *console.Console
	halt    func()

	tableMu klock.Mutex
	tab     *table

	poll  int
	place int

	readers list.List
	keys    chan byte

	procs    atomic.Int32
	messages atomic.Uint64
}

// New returns a manager running on c that serves the workers in links,
// keyed by core id. halt is called when init vanishes.
func New(c *core.Core, links map[int]*mbox.Pair, workers []int, con *console.Console, halt func()) *Manager {
	m := &Manager{
		c:       c,
		links:   links,
		workers: append([]int(nil), workers...),
		con:     con,
		halt:    halt,
		tab:     newTable(),
		keys:    make(chan byte, KeyBuffer),
	}
	m.tableMu.Init(c)
	return m
}

// Console returns the console the manager owns.
func (m *Manager) Console() *console.Console { return m.con }

// Procs returns the number of processes in the pid table.
func (m *Manager) Procs() int { return int(m.procs.Load()) }

// Messages returns the number of requests handled.
func (m *Manager) Messages() uint64 { return m.messages.Load() }

// Adopt records a process created outside fork, such as the first process,
// and makes it init when no init is set. It must be called before the
// manager starts.
func (m *Manager) Adopt(pid, ppid int) {
	m.tab.add(pid, ppid)
	if m.tab.init == 0 {
		m.tab.init = pid
	}
	m.procs.Store(int32(m.tab.len()))
}

// Key queues one keyboard byte for the line discipline. It may be called
// from any goroutine; the byte is dropped when the buffer is full.
func (m *Manager) Key(b byte) bool {
	select {
	case m.keys <- b:
		m.c.Bell().Ring()
		return true
	default:
		return false
	}
}

// Run is the body of the manager kernel thread. It only returns through
// the core halting.
func (m *Manager) Run() {
	m.c.Logf("manager: %d workers", len(m.workers))
	for {
		busy := m.drainKeys()
		for i := 0; i < len(m.workers); i++ {
			if m.step() {
				busy = true
			}
		}
		if !busy {
			m.c.Yield()
			m.c.WaitForEvent()
		}
	}
}

// step receives and handles at most one message, visiting the up channels
// round-robin so no worker starves another.
func (m *Manager) step() bool {
	n := len(m.workers)
	for i := 0; i < n; i++ {
		id := m.workers[m.poll]
		m.poll = (m.poll + 1) % n
		if t := m.links[id].Up.TryRecv(m.c); t != nil {
			m.handle(t)
			return true
		}
	}
	return false
}

func (m *Manager) handle(t *tcb.Thread) {
	m.messages.Add(1)
	h, ok := dispatch[t.Msg.Kind]
	if !ok {
		core.Panic("manager: unexpected %s message from core %d", t.Msg.Kind, t.Msg.ReqCPU)
	}
	h(m, t)
}

// reply answers t's request with result on the down channel of the core
// the request came from.
func (m *Manager) reply(t *tcb.Thread, result int) {
	t.Msg.Reply(result)
	m.send(int(t.Msg.ReqCPU), t)
}

func (m *Manager) send(cpu int, t *tcb.Thread) {
	link := m.links[cpu]
	if link == nil {
		core.Panic("manager: no link to core %d", cpu)
	}
	link.Down.Send(m.c, t)
}

func (m *Manager) lockTable() {
	m.tableMu.Lock()
}

func (m *Manager) unlockTable() {
	m.procs.Store(int32(m.tab.len()))
	m.tableMu.Unlock()
}

