package mbox

import (
	"runtime"
	"testing"
	"time"

	"pebbles/kern/list"
	"pebbles/kern/proto"
	"pebbles/kern/tcb"
)

type fakeCPU struct{ depth int }

func (f *fakeCPU) DisableInterrupts()   { f.depth++ }
func (f *fakeCPU) EnableInterrupts()    { f.depth-- }
func (f *fakeCPU) Self() list.Elem      { return nil }
func (f *fakeCPU) Block()               {}
func (f *fakeCPU) Wake(list.Elem)       {}
func (f *fakeCPU) Yield()               {}
func (f *fakeCPU) Warnf(string, ...any) {}

func newThreads(t *testing.T, n int) []*tcb.Thread {
	t.Helper()
	var ids tcb.IDSource
	st := tcb.NewStore(1, n, &ids, &fakeCPU{})
	out := make([]*tcb.Thread, n)
	for i := range out {
		th, err := st.CreateThread(nil)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = th
	}
	return out
}

func TestChannelTryRecvEmpty(t *testing.T) {
	ch := NewChannel(nil)
	if got := ch.TryRecv(&fakeCPU{}); got != nil {
		t.Fatalf("TryRecv() = %v, want nil", got)
	}
	if ch.Pending() {
		t.Fatal("Pending() on empty channel")
	}
}

func TestChannelRingsDoorbell(t *testing.T) {
	bell := NewDoorbell()
	ch := NewChannel(bell)
	th := newThreads(t, 1)[0]

	cpu := &fakeCPU{}
	ch.Send(cpu, th)
	if cpu.depth != 0 {
		t.Fatalf("interrupt depth = %d after Send, want 0", cpu.depth)
	}
	halt := make(chan struct{})
	if !bell.Wait(halt) {
		t.Fatal("Wait() = false, want ring")
	}
	if got := ch.TryRecv(cpu); got != th {
		t.Fatalf("TryRecv() = %v, want %v", got, th)
	}

	close(halt)
	if bell.Wait(halt) {
		t.Fatal("Wait() after halt without ring = true")
	}
}

func TestChannelFIFOAcrossCores(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(2)
	defer runtime.GOMAXPROCS(oldProcs)

	const total = 64
	th := newThreads(t, total)
	for i, x := range th {
		x.Msg.Request(proto.MsgPrint, x.TID, 1)
		proto.PidPayload(&x.Msg, i)
	}

	bell := NewDoorbell()
	ch := NewChannel(bell)
	go func() {
		cpu := &fakeCPU{}
		for _, x := range th {
			ch.Send(cpu, x)
			runtime.Gosched()
		}
	}()

	cpu := &fakeCPU{}
	timeout := time.After(2 * time.Second)
	for want := 0; want < total; {
		x := ch.TryRecv(cpu)
		if x == nil {
			select {
			case <-bell:
			case <-timeout:
				t.Fatalf("timeout after %d messages", want)
			}
			continue
		}
		got, ok := proto.DecodePid(&x.Msg)
		if !ok || got != want {
			t.Fatalf("message %d carried %d (ok=%v)", want, got, ok)
		}
		want++
	}
}

func TestPairRouting(t *testing.T) {
	mgr, wrk := NewDoorbell(), NewDoorbell()
	p := NewPair(mgr, wrk)
	th := newThreads(t, 1)[0]
	cpu := &fakeCPU{}

	p.Up.Send(cpu, th)
	select {
	case <-mgr:
	default:
		t.Fatal("Up did not ring the manager")
	}
	p.Down.Send(cpu, p.Up.TryRecv(cpu))
	select {
	case <-wrk:
	default:
		t.Fatal("Down did not ring the worker")
	}
	if p.Down.Len() != 1 || p.Up.Len() != 0 {
		t.Fatalf("lengths up=%d down=%d", p.Up.Len(), p.Down.Len())
	}
}
