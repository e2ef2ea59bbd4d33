// Package proto defines the fixed-layout records exchanged between worker
// cores and the manager core.
package proto

// Kind identifies the message type carried in Message.Kind.
type Kind uint16

const (
	MsgFork Kind = iota + 1
	MsgForkExec
	MsgForkDone
	MsgVanish
	MsgWait
	MsgPrint
	MsgReadline
	MsgSetColor
	MsgSetCursor
	MsgGetCursor
	MsgSetInit
	MsgReply
)

func (k Kind) String() string {
	switch k {
	case MsgFork:
		return "fork"
	case MsgForkExec:
		return "fork_exec"
	case MsgForkDone:
		return "fork_done"
	case MsgVanish:
		return "vanish"
	case MsgWait:
		return "wait"
	case MsgPrint:
		return "print"
	case MsgReadline:
		return "readline"
	case MsgSetColor:
		return "set_color"
	case MsgSetCursor:
		return "set_cursor"
	case MsgGetCursor:
		return "get_cursor"
	case MsgSetInit:
		return "set_init"
	case MsgReply:
		return "reply"
	default:
		return "unknown"
	}
}

// MaxMessageBytes is the payload capacity of one record. Console output
// larger than this travels as several records.
const MaxMessageBytes = 128

// Message is the fixed-size record embedded in every thread control block.
//
// ReqThr and ReqCPU name the thread that originated the exchange; the
// manager always replies there. Ref holds the request kind once the record
// has been turned into a reply. Try counts fork placement attempts. Obj
// carries a kernel object that cannot be flattened into Data (the user
// entry point of a fork).
type Message struct {
	Kind   Kind
	Ref    Kind
	ReqThr int32
	ReqCPU uint8
	Try    uint8
	Result int32
	Len    uint16
	Data   [MaxMessageBytes]byte
	Obj    any
}

// Payload returns the valid prefix of Data.
func (m *Message) Payload() []byte {
	n := int(m.Len)
	if n > MaxMessageBytes {
		n = MaxMessageBytes
	}
	return m.Data[:n]
}

// SetPayload copies p into Data, truncating at MaxMessageBytes.
func (m *Message) SetPayload(p []byte) int {
	n := copy(m.Data[:], p)
	m.Len = uint16(n)
	return n
}

// Request resets m to a fresh request of kind k from (tid, cpu).
func (m *Message) Request(k Kind, tid int, cpu int) {
	*m = Message{Kind: k, ReqThr: int32(tid), ReqCPU: uint8(cpu)}
}

// Reply turns m into the reply to its own request, keeping the routing
// fields and payload.
func (m *Message) Reply(result int) {
	m.Ref = m.Kind
	m.Kind = MsgReply
	m.Result = int32(result)
}
