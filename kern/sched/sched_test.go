package sched

import (
	"testing"

	"pebbles/kern/defs"
	"pebbles/kern/list"
	"pebbles/kern/tcb"
)

type nopSched struct{}

func (nopSched) DisableInterrupts()   {}
func (nopSched) EnableInterrupts()    {}
func (nopSched) Self() list.Elem      { return nil }
func (nopSched) Block()               {}
func (nopSched) Wake(list.Elem)       {}
func (nopSched) Yield()               {}
func (nopSched) Warnf(string, ...any) {}

func threads(t *testing.T, n int) []*tcb.Thread {
	t.Helper()
	var ids tcb.IDSource
	st := tcb.NewStore(1, n, &ids, nopSched{})
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

type fakeInbox struct{ ready []*tcb.Thread }

func (f *fakeInbox) Deliver() *tcb.Thread {
	if len(f.ready) == 0 {
		return nil
	}
	t := f.ready[0]
	f.ready = f.ready[1:]
	return t
}

func TestGetNextPrefersInbox(t *testing.T) {
	th := threads(t, 3)
	var rq RunQueue
	rq.MakeRunnable(th[0])
	rq.MakeRunnable(th[1])

	inbox := &fakeInbox{ready: []*tcb.Thread{th[2]}}
	want := []*tcb.Thread{th[2], th[0], th[1], nil}
	for i, w := range want {
		if got := rq.GetNext(defs.AnyThread, inbox); got != w {
			t.Fatalf("GetNext #%d = %v, want %v", i, got, w)
		}
	}
}

func TestGetNextSpecificTarget(t *testing.T) {
	th := threads(t, 3)
	var rq RunQueue
	for _, x := range th {
		rq.MakeRunnable(x)
	}

	if got := rq.GetNext(th[1].TID, &fakeInbox{ready: []*tcb.Thread{th[0]}}); got != th[1] {
		t.Fatalf("GetNext(%d) = %v", th[1].TID, got)
	}
	if got := rq.GetNext(th[1].TID, nil); got != nil {
		t.Fatalf("GetNext of removed thread = %v, want nil", got)
	}
	if got := rq.GetNext(9999, nil); got != nil {
		t.Fatalf("GetNext of unknown tid = %v, want nil", got)
	}
	if rq.Len() != 2 || rq.Block() != th[0] || rq.Block() != th[2] {
		t.Fatal("remaining order broken")
	}
	if rq.Block() != nil {
		t.Fatal("Block() on empty queue != nil")
	}
}

func TestSleepQueueOrdering(t *testing.T) {
	th := threads(t, 4)
	var sq SleepQueue
	sq.Add(th[0], 30)
	sq.Add(th[1], 10)
	sq.Add(th[2], 30)
	sq.Add(th[3], 20)

	if due, ok := sq.Next(); !ok || due != 10 {
		t.Fatalf("Next() = %d, %v, want 10", due, ok)
	}
	if got := sq.PopDue(9); got != nil {
		t.Fatalf("PopDue(9) = %v, want nil", got)
	}

	var order []*tcb.Thread
	for now := uint64(10); now <= 30; now++ {
		for x := sq.PopDue(now); x != nil; x = sq.PopDue(now) {
			if x.SleepUntil > now {
				t.Fatalf("thread due %d popped at %d", x.SleepUntil, now)
			}
			order = append(order, x)
		}
	}
	want := []*tcb.Thread{th[1], th[3], th[0], th[2]}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("wake order[%d] = tid %d, want tid %d", i, order[i].TID, want[i].TID)
		}
	}
	if sq.Len() != 0 {
		t.Fatalf("Len() = %d after draining", sq.Len())
	}
}
