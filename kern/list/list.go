// Package list is an intrusive singly linked FIFO.
//
// The node lives inside the element (a thread's control block), so queueing a
// blocked thread never allocates. An element can be linked into at most one
// list at a time; PushBack panics otherwise.
package list

// Link is the node embedded in every queueable element.
type Link struct {
	next  Elem
	owner *List
}

// Linked reports whether the element is currently in some list.
func (l *Link) Linked() bool { return l.owner != nil }

// Owner returns the list the element is linked into, or nil.
func (l *Link) Owner() *List { return l.owner }

// Elem is anything that carries a Link.
type Elem interface {
	Link() *Link
}

// List is a FIFO of Elems. The zero value is an empty list.
type List struct {
	head Elem
	tail Elem
	n    int
}

// Len returns the number of linked elements.
func (l *List) Len() int { return l.n }

// Empty reports whether the list has no elements.
func (l *List) Empty() bool { return l.n == 0 }

// Front returns the head without unlinking it.
func (l *List) Front() Elem { return l.head }

// PushBack appends e.
func (l *List) PushBack(e Elem) {
	lk := e.Link()
	if lk.owner != nil {
		panic("list: element already linked")
	}
	lk.owner = l
	lk.next = nil
	if l.tail == nil {
		l.head = e
	} else {
		l.tail.Link().next = e
	}
	l.tail = e
	l.n++
}

// PopFront unlinks and returns the head, or nil when empty.
func (l *List) PopFront() Elem {
	e := l.head
	if e == nil {
		return nil
	}
	lk := e.Link()
	l.head = lk.next
	if l.head == nil {
		l.tail = nil
	}
	lk.next = nil
	lk.owner = nil
	l.n--
	return e
}

// Remove unlinks e if it is in l. It scans from the head.
func (l *List) Remove(e Elem) bool {
	if e.Link().owner != l {
		return false
	}
	var prev Elem
	for cur := l.head; cur != nil; cur = cur.Link().next {
		if cur != e {
			prev = cur
			continue
		}
		l.unlink(prev, cur)
		return true
	}
	return false
}

// RemoveFunc unlinks and returns the first element for which match is true.
func (l *List) RemoveFunc(match func(Elem) bool) Elem {
	var prev Elem
	for cur := l.head; cur != nil; cur = cur.Link().next {
		if !match(cur) {
			prev = cur
			continue
		}
		l.unlink(prev, cur)
		return cur
	}
	return nil
}

// Each calls fn for every element in order. fn must not modify the list.
func (l *List) Each(fn func(Elem)) {
	for cur := l.head; cur != nil; cur = cur.Link().next {
		fn(cur)
	}
}

func (l *List) unlink(prev, cur Elem) {
	lk := cur.Link()
	if prev == nil {
		l.head = lk.next
	} else {
		prev.Link().next = lk.next
	}
	if l.tail == cur {
		l.tail = prev
	}
	lk.next = nil
	lk.owner = nil
	l.n--
}

// InsertFunc links e in front of the first element for which before returns
// true, or at the back if there is none.
func (l *List) InsertFunc(e Elem, before func(Elem) bool) {
	var prev Elem
	cur := l.head
	for ; cur != nil; cur = cur.Link().next {
		if before(cur) {
			break
		}
		prev = cur
	}
	if cur == nil {
		l.PushBack(e)
		return
	}
	lk := e.Link()
	if lk.owner != nil {
		panic("list: element already linked")
	}
	lk.owner = l
	lk.next = cur
	if prev == nil {
		l.head = e
	} else {
		prev.Link().next = e
	}
	l.n++
}
