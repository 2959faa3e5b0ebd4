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

package intrusive

import "testing"

type item struct {
	name string
	link ListNode
}

func newItem(name string) *item {
	it := &item{name: name}
	it.link.Elem = it
	return it
}

func TestListFIFO(t *testing.T) {
	var l List
	a, b, c := newItem("a"), newItem("b"), newItem("c")
	l.PushBack(&a.link)
	l.PushBack(&b.link)
	l.PushBack(&c.link)

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		got := l.PopFront().(*item)
		if got.name != want {
			t.Fatalf("PopFront() = %s, want %s", got.name, want)
		}
	}
	if !l.Empty() {
		t.Fatalf("list should be empty")
	}
	if l.PopFront() != nil {
		t.Fatalf("PopFront() on empty list should return nil")
	}
}

func TestListRemoveMiddle(t *testing.T) {
	var l List
	a, b, c := newItem("a"), newItem("b"), newItem("c")
	l.PushBack(&a.link)
	l.PushBack(&b.link)
	l.PushBack(&c.link)

	l.Remove(&b.link)
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if b.link.Linked() {
		t.Fatalf("removed node still reports Linked()")
	}
	// Removing again is a no-op, not a panic.
	l.Remove(&b.link)

	var names []string
	l.Each(func(e any) { names = append(names, e.(*item).name) })
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Fatalf("Each() order = %v, want [a c]", names)
	}
}

func TestListPushFront(t *testing.T) {
	var l List
	a, b := newItem("a"), newItem("b")
	l.PushBack(&a.link)
	l.PushFront(&b.link)
	if got := l.Front().(*item); got.name != "b" {
		t.Fatalf("Front() = %s, want b", got.name)
	}
}

func TestRefCounted(t *testing.T) {
	var r RefCounted
	r.Init(1)
	destroyed := false
	r.Retain()
	if v := r.Release(func() { destroyed = true }); v != 1 {
		t.Fatalf("Release() = %d, want 1", v)
	}
	if destroyed {
		t.Fatalf("destroyed too early")
	}
	if v := r.Release(func() { destroyed = true }); v != 0 {
		t.Fatalf("Release() = %d, want 0", v)
	}
	if !destroyed {
		t.Fatalf("onZero was not called")
	}
}
