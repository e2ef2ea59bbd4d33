package proto

import "testing"

func TestMessagePayloadClampsLen(t *testing.T) {
	var msg Message
	msg.Len = MaxMessageBytes + 10
	if got := len(msg.Payload()); got != MaxMessageBytes {
		t.Fatalf("expected payload length %d, got %d", MaxMessageBytes, got)
	}
}

func TestSetPayloadTruncates(t *testing.T) {
	var msg Message
	big := make([]byte, MaxMessageBytes+5)
	if n := msg.SetPayload(big); n != MaxMessageBytes {
		t.Fatalf("SetPayload() = %d, want %d", n, MaxMessageBytes)
	}
}

func TestReplyKeepsRouting(t *testing.T) {
	var msg Message
	msg.Request(MsgWait, 42, 3)
	PidStatusPayload(&msg, 7, -1)
	msg.Reply(7)

	if msg.Kind != MsgReply || msg.Ref != MsgWait {
		t.Fatalf("reply kind = %s/%s, want reply/wait", msg.Kind, msg.Ref)
	}
	if msg.ReqThr != 42 || msg.ReqCPU != 3 {
		t.Fatalf("routing = (%d, %d), want (42, 3)", msg.ReqThr, msg.ReqCPU)
	}
	pid, status, ok := DecodePidStatus(&msg)
	if !ok || pid != 7 || status != -1 {
		t.Fatalf("DecodePidStatus() = %d, %d, %v", pid, status, ok)
	}
}

func TestDecodeShortPayloads(t *testing.T) {
	var msg Message
	if _, _, ok := DecodePidStatus(&msg); ok {
		t.Fatal("DecodePidStatus on empty record ok")
	}
	if _, ok := DecodePid(&msg); ok {
		t.Fatal("DecodePid on empty record ok")
	}
	if _, _, ok := DecodeCursor(&msg); ok {
		t.Fatal("DecodeCursor on empty record ok")
	}
	if _, ok := DecodeColor(&msg); ok {
		t.Fatal("DecodeColor on empty record ok")
	}
	if _, ok := DecodeReadline(&msg); ok {
		t.Fatal("DecodeReadline on empty record ok")
	}

	CursorPayload(&msg, -1, 79)
	row, col, ok := DecodeCursor(&msg)
	if !ok || row != -1 || col != 79 {
		t.Fatalf("DecodeCursor() = %d, %d, %v", row, col, ok)
	}
}

func TestForkPayloadKeepsStartWorker(t *testing.T) {
	var msg Message
	msg.Request(MsgFork, 9, 2)
	ForkPayload(&msg, 9, 3)
	msg.Kind = MsgForkExec
	msg.Try++

	ppid, start, ok := DecodeFork(&msg)
	if !ok || ppid != 9 || start != 3 {
		t.Fatalf("DecodeFork() = %d, %d, %v", ppid, start, ok)
	}
	if msg.Kind.String() != "fork_exec" || Kind(99).String() != "unknown" {
		t.Fatalf("unexpected kind names %q %q", msg.Kind, Kind(99))
	}
}

func TestCursorFits(t *testing.T) {
	tests := []struct {
		row, col int
		fits     bool
	}{
		{3, 4, true},
		{-1, 0, true},
		{1<<15 - 1, 1<<15 - 1, true},
		{1 << 15, 0, false},
		{0, -1<<15 - 1, false},
		{1<<16 + 3, 4, false},
	}
	for _, tt := range tests {
		if got := CursorFits(tt.row, tt.col); got != tt.fits {
			t.Fatalf("CursorFits(%d, %d) = %v, want %v", tt.row, tt.col, got, tt.fits)
		}
		if !tt.fits {
			continue
		}
		var msg Message
		CursorPayload(&msg, tt.row, tt.col)
		if r, c, ok := DecodeCursor(&msg); !ok || r != tt.row || c != tt.col {
			t.Fatalf("DecodeCursor() = %d, %d, %v, want %d, %d", r, c, ok, tt.row, tt.col)
		}
	}
}
