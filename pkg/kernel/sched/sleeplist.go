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

package sched

import (
	"github.com/mkos/kernel/pkg/kernel/intrusive"
	"github.com/mkos/kernel/pkg/kernel/thread"
)

// sleepList keeps sleeping threads ordered by wakeup time, earliest
// first, using SleepLink (a thread can be in the sleep list and a
// ksync wait list at the same time, via timed_wait — which is why
// Thread carries two distinct ListNode fields rather than one). A
// sorted intrusive.List is used instead of a second heap because the
// single HeapIndex field a Thread carries is already owned by whatever
// priority-inheriting Mutex's wait-heap holds it (spec.md §3 invariant:
// at most one such heap membership at a time); a thread can be both
// asleep and blocked on a mutex simultaneously, so sleeping cannot also
// consume HeapIndex.
type sleepList struct {
	l intrusive.List
}

// insert places t into the list in wakeup-time order.
func (s *sleepList) insert(t *thread.Thread) {
	var mark *thread.Thread
	s.l.Each(func(elem any) {
		cur := elem.(*thread.Thread)
		if mark == nil && t.WakeupAtNanos < cur.WakeupAtNanos {
			mark = cur
		}
	})
	if mark == nil {
		s.l.PushBack(&t.SleepLink)
		return
	}
	s.l.InsertBefore(&t.SleepLink, &mark.SleepLink)
}

func (s *sleepList) remove(t *thread.Thread) {
	s.l.Remove(&t.SleepLink)
}

// expired pops and returns every thread whose WakeupAtNanos is <= now,
// in wakeup order.
func (s *sleepList) expired(now int64) []*thread.Thread {
	var out []*thread.Thread
	for {
		front := s.l.Front()
		if front == nil {
			break
		}
		t := front.(*thread.Thread)
		if t.WakeupAtNanos > now {
			break
		}
		s.l.PopFront()
		out = append(out, t)
	}
	return out
}

// nextWakeup returns the earliest pending wakeup time and true, or
// (0, false) if nothing is asleep.
func (s *sleepList) nextWakeup() (int64, bool) {
	front := s.l.Front()
	if front == nil {
		return 0, false
	}
	return front.(*thread.Thread).WakeupAtNanos, true
}
