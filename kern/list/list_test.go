package list

import "testing"

type item struct {
	link Link
	id   int
}

func (i *item) Link() *Link { return &i.link }

func ids(l *List) []int {
	var out []int
	l.Each(func(e Elem) { out = append(out, e.(*item).id) })
	return out
}

func TestListFIFO(t *testing.T) {
	var l List
	for i := 1; i <= 3; i++ {
		l.PushBack(&item{id: i})
	}
	for want := 1; want <= 3; want++ {
		e := l.PopFront()
		if e == nil {
			t.Fatalf("PopFront() = nil, want %d", want)
		}
		if got := e.(*item).id; got != want {
			t.Fatalf("PopFront() id = %d, want %d", got, want)
		}
		if e.Link().Linked() {
			t.Fatalf("popped element still linked")
		}
	}
	if l.PopFront() != nil || !l.Empty() {
		t.Fatalf("list not empty after draining")
	}
}

func TestListRemove(t *testing.T) {
	var l List
	items := []*item{{id: 1}, {id: 2}, {id: 3}, {id: 4}}
	for _, it := range items {
		l.PushBack(it)
	}

	if !l.Remove(items[3]) {
		t.Fatal("Remove(tail) = false")
	}
	if !l.Remove(items[0]) {
		t.Fatal("Remove(head) = false")
	}
	if l.Remove(items[0]) {
		t.Fatal("Remove of unlinked element = true")
	}
	if got := ids(&l); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("remaining = %v, want [2 3]", got)
	}

	l.PushBack(items[3])
	if got := ids(&l); len(got) != 3 || got[2] != 4 {
		t.Fatalf("after re-push = %v, want [2 3 4]", got)
	}

	e := l.RemoveFunc(func(e Elem) bool { return e.(*item).id == 3 })
	if e == nil || e.(*item).id != 3 {
		t.Fatalf("RemoveFunc() = %v, want id 3", e)
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
}

func TestListDoubleLinkPanics(t *testing.T) {
	var a, b List
	it := &item{id: 1}
	a.PushBack(it)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic linking an element into two lists")
		}
	}()
	b.PushBack(it)
}

func TestListInsertFunc(t *testing.T) {
	var l List
	byID := func(id int) func(Elem) bool {
		return func(e Elem) bool { return e.(*item).id > id }
	}
	for _, id := range []int{5, 1, 3, 3, 9} {
		l.InsertFunc(&item{id: id}, byID(id))
	}
	got := ids(&l)
	want := []int{1, 3, 3, 5, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if e := l.PopFront(); e.(*item).id != 1 {
		t.Fatalf("PopFront() = %d, want 1", e.(*item).id)
	}
	l.PushBack(&item{id: 10})
	if l.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", l.Len())
	}
}
