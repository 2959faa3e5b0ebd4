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

package ksync

import (
	"container/heap"

	"github.com/mkos/kernel/pkg/kernel/intrusive"
	"github.com/mkos/kernel/pkg/kernel/thread"
)

// waitHeap is a container/heap max-heap (by the mutex-inheritance
// ordering) of the threads blocked on one Mutex, following the same
// HeapIndex-on-the-element idiom as pkg/kernel/sched's EDFPolicy; a
// thread is never in more than one such heap at once (spec.md §3
// invariant), so reusing Thread.HeapIndex for both is safe.
type waitHeap []*thread.Thread

func (h waitHeap) Len() int { return len(h) }
func (h waitHeap) Less(i, j int) bool {
	return h[i].Priority().InheritanceHigher(h[j].Priority())
}
func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].HeapIndex = i
	h[j].HeapIndex = j
}
func (h *waitHeap) Push(x any) {
	t := x.(*thread.Thread)
	t.HeapIndex = len(*h)
	*h = append(*h, t)
}
func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.HeapIndex = -1
	*h = old[:n-1]
	return t
}

// Mutex is the priority-inheriting lock of spec.md §4.3. The zero value
// is not usable; construct with NewMutex.
type Mutex struct {
	recursive bool

	owner *thread.Thread
	depth int
	wait  waitHeap

	// link is this Mutex's node in whichever thread's LockedMutexes
	// list currently owns it; Elem is always this Mutex.
	link intrusive.ListNode
}

// NewMutex constructs an unowned Mutex. recursive selects whether a
// thread may lock it more than once (spec.md §4.3: "optionally
// recursive" applies to FastMutex explicitly; Mutex's own recursion
// flag is this package's generalization of the same knob to the
// priority-inheriting lock, since spec.md's lock() contract already
// describes a recursive_depth on Mutex).
func NewMutex(recursive bool) *Mutex {
	m := &Mutex{recursive: recursive}
	m.link.Elem = m
	return m
}

// LockOwner implements thread.MutexRef.
func (m *Mutex) LockOwner() *thread.Thread { return m.owner }

// Lock acquires the mutex, boosting the owner (and transitively
// whatever it is itself blocked on) to the caller's priority while the
// caller waits (spec.md §4.3 lock).
func (m *Mutex) Lock(s Scheduler) error {
	self := s.Current()
	if m.owner == nil {
		m.owner = self
		m.depth = 0
		self.LockedMutexes.PushBack(&m.link)
		return nil
	}
	if m.owner == self {
		if !m.recursive {
			return ErrDeadlock
		}
		m.depth++
		return nil
	}
	heap.Push(&m.wait, self)
	self.WaitingOn = m
	m.promote(self.Priority())
	s.Block(self, thread.StateWaiting)
	// Unlock already transferred ownership directly to self before
	// waking it; nothing left to do.
	self.WaitingOn = nil
	return nil
}

// TryLock attempts Lock without blocking.
func (m *Mutex) TryLock(s Scheduler) (bool, error) {
	self := s.Current()
	if m.owner == nil {
		m.owner = self
		m.depth = 0
		self.LockedMutexes.PushBack(&m.link)
		return true, nil
	}
	if m.owner == self {
		if !m.recursive {
			return false, ErrDeadlock
		}
		m.depth++
		return true, nil
	}
	return false, nil
}

// Unlock releases one level of ownership (spec.md §4.3 unlock): on the
// outermost unlock it recomputes the caller's effective priority from
// whatever mutexes it still holds, then transfers ownership directly to
// the highest-priority waiter, if any, and wakes it.
func (m *Mutex) Unlock(s Scheduler) error {
	self := s.Current()
	if m.owner != self {
		return ErrNotOwner
	}
	if m.depth > 0 {
		m.depth--
		return nil
	}
	self.LockedMutexes.Remove(&m.link)
	m.owner = nil
	self.SetPriority(effectivePriority(self))
	if m.wait.Len() > 0 {
		next := heap.Pop(&m.wait).(*thread.Thread)
		next.WaitingOn = nil
		m.owner = next
		m.depth = 0
		next.LockedMutexes.PushBack(&m.link)
		s.Wake(next)
	}
	return nil
}

// unlockAllForWait fully releases the mutex regardless of recursion
// depth, for ConditionVariable.Wait/TimedWait, and returns the depth
// the caller held so it can be restored by relock (spec.md §4.3 wait:
// "fully unlocks the mutex, remembering recursion depth").
func (m *Mutex) unlockAllForWait(s Scheduler) int {
	self := s.Current()
	depth := m.depth
	m.depth = 0
	self.LockedMutexes.Remove(&m.link)
	m.owner = nil
	self.SetPriority(effectivePriority(self))
	if m.wait.Len() > 0 {
		next := heap.Pop(&m.wait).(*thread.Thread)
		next.WaitingOn = nil
		m.owner = next
		m.depth = 0
		next.LockedMutexes.PushBack(&m.link)
		s.Wake(next)
	}
	return depth
}

// relock re-acquires the mutex (through the normal contention path)
// and restores the recursion depth unlockAllForWait captured.
func (m *Mutex) relock(s Scheduler, depth int) {
	_ = m.Lock(s)
	m.depth = depth
}

// promote walks the chain of mutexes self is (transitively) waiting on,
// raising each owner's priority to at least candidate and re-heapifying
// every wait-heap the promoted owner sits in, per spec.md §4.3's
// termination argument: mutex_waiting chains are acyclic because a
// cycle would require waking an already-blocked thread, which the
// scheduler invariants forbid.
func (m *Mutex) promote(candidate thread.Priority) {
	cur := m
	for cur != nil {
		owner := cur.owner
		if owner == nil {
			return
		}
		if !candidate.InheritanceHigher(owner.Priority()) {
			return
		}
		owner.SetPriority(candidate)
		next, ok := owner.WaitingOn.(*Mutex)
		if !ok || next == nil {
			return
		}
		next.fixHeap(owner)
		cur = next
	}
}

func (m *Mutex) fixHeap(t *thread.Thread) {
	if t.HeapIndex >= 0 && t.HeapIndex < m.wait.Len() && m.wait[t.HeapIndex] == t {
		heap.Fix(&m.wait, t.HeapIndex)
	}
}

// effectivePriority implements spec.md §4.3's invariant: a thread's
// priority is max(saved_priority, highest waiter priority over every
// mutex it still owns).
func effectivePriority(t *thread.Thread) thread.Priority {
	best := t.SavedPriority()
	t.LockedMutexes.Each(func(elem any) {
		mx := elem.(*Mutex)
		if mx.wait.Len() > 0 {
			top := mx.wait[0].Priority()
			if top.InheritanceHigher(best) {
				best = top
			}
		}
	})
	return best
}
