package proto

import (
	"encoding/binary"
	"math"
)

// PidStatusPayload encodes a vanish report or a wait reply.
//
// Layout (little-endian):
//   - i32: pid
//   - i32: status
func PidStatusPayload(m *Message, pid, status int) {
	binary.LittleEndian.PutUint32(m.Data[0:4], uint32(int32(pid)))
	binary.LittleEndian.PutUint32(m.Data[4:8], uint32(int32(status)))
	m.Len = 8
}

// DecodePidStatus decodes a PidStatusPayload.
func DecodePidStatus(m *Message) (pid, status int, ok bool) {
	if m.Len < 8 {
		return 0, 0, false
	}
	pid = int(int32(binary.LittleEndian.Uint32(m.Data[0:4])))
	status = int(int32(binary.LittleEndian.Uint32(m.Data[4:8])))
	return pid, status, true
}

// PidPayload encodes a single pid (wait, set_init, fork).
//
// Layout (little-endian):
//   - i32: pid
func PidPayload(m *Message, pid int) {
	binary.LittleEndian.PutUint32(m.Data[0:4], uint32(int32(pid)))
	m.Len = 4
}

// DecodePid decodes a PidPayload.
func DecodePid(m *Message) (pid int, ok bool) {
	if m.Len < 4 {
		return 0, false
	}
	return int(int32(binary.LittleEndian.Uint32(m.Data[0:4]))), true
}

// CursorPayload encodes a cursor position.
//
// Layout (little-endian):
//   - i16: row
//   - i16: col
func CursorPayload(m *Message, row, col int) {
	binary.LittleEndian.PutUint16(m.Data[0:2], uint16(int16(row)))
	binary.LittleEndian.PutUint16(m.Data[2:4], uint16(int16(col)))
	m.Len = 4
}

// CursorFits reports whether row and col survive a CursorPayload unchanged.
func CursorFits(row, col int) bool {
	return row >= math.MinInt16 && row <= math.MaxInt16 && col >= math.MinInt16 && col <= math.MaxInt16
}

// DecodeCursor decodes a CursorPayload.
func DecodeCursor(m *Message) (row, col int, ok bool) {
	if m.Len < 4 {
		return 0, 0, false
	}
	row = int(int16(binary.LittleEndian.Uint16(m.Data[0:2])))
	col = int(int16(binary.LittleEndian.Uint16(m.Data[2:4])))
	return row, col, true
}

// ColorPayload encodes a terminal colour byte.
func ColorPayload(m *Message, color uint8) {
	m.Data[0] = color
	m.Len = 1
}

// DecodeColor decodes a ColorPayload.
func DecodeColor(m *Message) (color uint8, ok bool) {
	if m.Len < 1 {
		return 0, false
	}
	return m.Data[0], true
}

// ReadlinePayload encodes the caller's buffer length.
//
// Layout (little-endian):
//   - u16: max bytes
func ReadlinePayload(m *Message, max int) {
	if max > MaxMessageBytes {
		max = MaxMessageBytes
	}
	binary.LittleEndian.PutUint16(m.Data[0:2], uint16(max))
	m.Len = 2
}

// DecodeReadline decodes a ReadlinePayload.
func DecodeReadline(m *Message) (max int, ok bool) {
	if m.Len < 2 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(m.Data[0:2])), true
}

// ForkPayload encodes a fork request as it travels between the manager and
// the workers that try to place the child.
//
// Layout (little-endian):
//   - i32: parent pid
//   - u8:  first worker tried
func ForkPayload(m *Message, ppid int, start int) {
	binary.LittleEndian.PutUint32(m.Data[0:4], uint32(int32(ppid)))
	m.Data[4] = uint8(start)
	m.Len = 5
}

// DecodeFork decodes a ForkPayload.
func DecodeFork(m *Message) (ppid int, start int, ok bool) {
	if m.Len < 5 {
		return 0, 0, false
	}
	ppid = int(int32(binary.LittleEndian.Uint32(m.Data[0:4])))
	return ppid, int(m.Data[4]), true
}
