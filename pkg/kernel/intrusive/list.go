/*
Copyright 2024 The Kernel Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package intrusive provides a zero-allocation doubly-linked list and an
// atomic intrusive reference count, the two building blocks every other
// kernel package is layered on (ready queues, condition-variable wait
// lists, semaphore wait lists, and the VFS's FileBase/FilesystemBase
// lifetime).
//
// A List never allocates: the link pointers live inside a ListNode value
// that the caller embeds, by value, in whatever struct it wants to chain
// (typically a Thread). This mirrors the source kernel's IntrusiveList,
// whose node type is likewise a plain struct embedded in the linked
// object rather than a heap-allocated wrapper.
package intrusive

// ListNode is the embeddable link. Zero value is an unlinked node.
// Callers set Elem once, at construction of the owning object, so that
// List operations can hand back the original owner without a type
// assertion at every call site.
type ListNode struct {
	prev, next *ListNode
	inList     *List
	Elem       any
}

// Linked reports whether the node is currently part of some List.
func (n *ListNode) Linked() bool { return n.inList != nil }

// Unlink removes n from whatever List currently holds it. It is a no-op
// if n is not linked anywhere. Unlike List.Remove, the caller does not
// need a reference to that List — useful when a node may have been
// pushed onto one of several lists a caller doesn't track the identity
// of (a thread's WaitLink, e.g., may belong to a condition variable's
// wait list or a semaphore's, depending on which primitive parked it).
func (n *ListNode) Unlink() {
	if n.inList == nil {
		return
	}
	n.inList.Remove(n)
}

// List is a circular doubly-linked list with a sentinel root node, the
// same structure container/list.List uses internally — except the nodes
// here are supplied by the caller instead of being allocated by the list.
type List struct {
	root ListNode
	n    int
}

func (l *List) lazyInit() {
	if l.root.next == nil {
		l.root.next = &l.root
		l.root.prev = &l.root
	}
}

// Len returns the number of linked nodes.
func (l *List) Len() int { return l.n }

// Empty reports whether the list has no elements.
func (l *List) Empty() bool { return l.n == 0 }

// PushBack links n at the tail of the list.
func (l *List) PushBack(n *ListNode) {
	l.lazyInit()
	l.insertAfter(n, l.root.prev)
}

// PushFront links n at the head of the list.
func (l *List) PushFront(n *ListNode) {
	l.insertAfter(n, &l.root)
}

func (l *List) insertAfter(n, at *ListNode) {
	if n.inList != nil {
		panic("intrusive: node already linked")
	}
	l.lazyInit()
	n.prev = at
	n.next = at.next
	n.prev.next = n
	n.next.prev = n
	n.inList = l
	l.n++
}

// Remove unlinks n. It is a no-op if n is not linked into l.
func (l *List) Remove(n *ListNode) {
	if n.inList != l {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	n.inList = nil
	l.n--
}

// InsertBefore links n immediately before mark, which must already be
// linked into l. Used by callers that keep a list in sorted order (the
// sleep list orders by wakeup time) without a dedicated heap.
func (l *List) InsertBefore(n, mark *ListNode) {
	if mark.inList != l {
		panic("intrusive: mark not linked into this list")
	}
	l.insertAfter(n, mark.prev)
}

// Front returns the element at the head of the list, or nil if empty.
func (l *List) Front() any {
	if l.n == 0 {
		return nil
	}
	return l.root.next.Elem
}

// PopFront removes and returns the element at the head of the list, or
// nil if the list is empty.
func (l *List) PopFront() any {
	if l.n == 0 {
		return nil
	}
	n := l.root.next
	l.Remove(n)
	return n.Elem
}

// Each calls f for every element currently linked, head to tail. f must
// not mutate the list.
func (l *List) Each(f func(elem any)) {
	if l.n == 0 {
		return
	}
	for n := l.root.next; n != &l.root; n = n.next {
		f(n.Elem)
	}
}
