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
	"github.com/mkos/kernel/pkg/kernel/intrusive"
	"github.com/mkos/kernel/pkg/kernel/thread"
)

// ConditionVariable is the FIFO-waking wait queue of spec.md §4.3.
type ConditionVariable struct {
	wait intrusive.List
}

// Wait atomically drops m (remembering its recursion depth) and blocks
// until Signal or Broadcast wakes this thread, then re-acquires m to
// the same depth.
func (cv *ConditionVariable) Wait(s Scheduler, m *Mutex) error {
	self := s.Current()
	cv.wait.PushBack(&self.WaitLink)
	depth := m.unlockAllForWait(s)
	s.Block(self, thread.StateWaiting)
	m.relock(s, depth)
	return nil
}

// TimedWait is Wait with a deadline. It reports Timeout if no Signal/
// Broadcast arrived before deadlineNanos (spec.md §4.3 timed_wait): a
// thread still linked into the CV's wait list when it resumes was never
// popped by Signal/Broadcast, so it timed out and must remove itself.
func (cv *ConditionVariable) TimedWait(s Scheduler, m *Mutex, deadlineNanos int64) (Result, error) {
	self := s.Current()
	cv.wait.PushBack(&self.WaitLink)
	depth := m.unlockAllForWait(s)
	timedOut := s.BlockUntil(self, thread.StateWaiting, deadlineNanos)
	if self.WaitLink.Linked() {
		cv.wait.Remove(&self.WaitLink)
	}
	m.relock(s, depth)
	if timedOut {
		return Timeout, nil
	}
	return NoTimeout, nil
}

// Signal wakes at most one waiter, FIFO, without dropping any mutex
// (spec.md §4.3). The caller is expected to hold the associated mutex,
// as with pthread_cond_signal, though ConditionVariable itself has no
// way to check that.
func (cv *ConditionVariable) Signal(s Scheduler) {
	front := cv.wait.PopFront()
	if front == nil {
		return
	}
	s.Wake(front.(*thread.Thread))
	// Unconditional yield even though the mutex isn't held here: under
	// EDF, skipping this preemption point can delay a higher-priority
	// waiter indefinitely, and under the quantum-preemptive policies
	// yielding from inside the mutex would just bounce the waker
	// straight back out. The pthread-style wrapper built on top of this
	// primitive yields only under EDF; this lower-level CV always does
	// (spec.md §4.3, §9).
	s.Yield()
}

// Broadcast wakes every waiter, FIFO order preserved for the wakeups.
func (cv *ConditionVariable) Broadcast(s Scheduler) {
	for {
		front := cv.wait.PopFront()
		if front == nil {
			break
		}
		s.Wake(front.(*thread.Thread))
	}
	s.Yield()
}
