package manager

import (
	"pebbles/kern/defs"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

func (m *Manager) print(t *tcb.Thread) {
	n := m.con.Write(t.Msg.Payload())
	m.reply(t, n)
}

// readline serves a reader at once when a line is ready; otherwise it joins
// the queue of pending readers, served in arrival order as lines complete.
func (m *Manager) readline(t *tcb.Thread) {
	if _, ok := proto.DecodeReadline(&t.Msg); !ok {
		m.reply(t, defs.EINVAL.Ret())
		return
	}
	m.readers.PushBack(t)
	m.serveReaders()
}

func (m *Manager) serveReaders() {
	for !m.readers.Empty() && m.con.LineReady() {
		t := m.readers.PopFront().(*tcb.Thread)
		max, _ := proto.DecodeReadline(&t.Msg)
		n := t.Msg.SetPayload(m.con.ReadLine(max))
		m.reply(t, n)
	}
}

// drainKeys feeds buffered keyboard bytes to the line discipline.
func (m *Manager) drainKeys() bool {
	fed := false
	for {
		select {
		case b := <-m.keys:
			m.con.Feed(b)
			fed = true
		default:
			if fed {
				m.serveReaders()
			}
			return fed
		}
	}
}

func (m *Manager) setColor(t *tcb.Thread) {
	color, ok := proto.DecodeColor(&t.Msg)
	if !ok || m.con.SetColor(color) != nil {
		m.reply(t, defs.EINVAL.Ret())
		return
	}
	m.reply(t, 0)
}

func (m *Manager) setCursor(t *tcb.Thread) {
	row, col, ok := proto.DecodeCursor(&t.Msg)
	if !ok || m.con.SetCursor(row, col) != nil {
		m.reply(t, defs.EINVAL.Ret())
		return
	}
	m.reply(t, 0)
}

func (m *Manager) getCursor(t *tcb.Thread) {
	row, col := m.con.Cursor()
	proto.CursorPayload(&t.Msg, row, col)
	m.reply(t, 0)
}
