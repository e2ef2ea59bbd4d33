package hal

import (
	"bufio"
	"io"
)

// streamKeyboard turns a byte stream, such as stdin, into key events. The
// event channel closes at end of input.
type streamKeyboard struct {
	ch chan KeyEvent
}

func newStreamKeyboard(r io.Reader) *streamKeyboard {
	k := &streamKeyboard{ch: make(chan KeyEvent, 64)}
	go k.pump(bufio.NewReader(r))
	return k
}

func (k *streamKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *streamKeyboard) pump(r *bufio.Reader) {
	defer close(k.ch)
	for {
		ch, _, err := r.ReadRune()
		if err != nil {
			return
		}
		switch ch {
		case '\r':
			continue
		case '\n':
			k.ch <- KeyEvent{Code: KeyEnter, Press: true}
		case '\b', 0x7f:
			k.ch <- KeyEvent{Code: KeyBackspace, Press: true}
		default:
			k.ch <- KeyEvent{Press: true, Rune: ch}
		}
	}
}
