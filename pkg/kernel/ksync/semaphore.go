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
	"sync"

	"github.com/mkos/kernel/pkg/kernel/intrusive"
	"github.com/mkos/kernel/pkg/kernel/thread"
)

// Semaphore is the counting semaphore of spec.md §4.3, the only
// primitive in this package with an interrupt-context entry point
// (IRQSignal). Everything else here relies on the single-token-holder
// discipline pkg/kernel/sched.Kernel enforces for mutual exclusion, but
// IRQSignal is explicitly allowed to run concurrently with whatever
// thread currently holds the token (spec.md §4.4: "the Semaphore is the
// only primitive whose signal path is legal from interrupt context"),
// so Semaphore alone carries its own sync.Mutex guarding count and the
// wait list.
type Semaphore struct {
	mu    sync.Mutex
	count int
	wait  intrusive.List
}

func NewSemaphore(initial int) *Semaphore {
	return &Semaphore{count: initial}
}

// Signal increments the count or wakes one waiter (spec.md §4.3).
func (sm *Semaphore) Signal(s Scheduler) error {
	sm.mu.Lock()
	front := sm.wait.PopFront()
	if front == nil {
		sm.count++
		sm.mu.Unlock()
		return nil
	}
	sm.mu.Unlock()
	s.Wake(front.(*thread.Thread))
	return nil
}

// Wait blocks until the count is positive, then decrements it.
func (sm *Semaphore) Wait(s Scheduler) error {
	sm.mu.Lock()
	if sm.count > 0 {
		sm.count--
		sm.mu.Unlock()
		return nil
	}
	self := s.Current()
	sm.wait.PushBack(&self.WaitLink)
	sm.mu.Unlock()
	s.Block(self, thread.StateWaiting)
	return nil
}

// TryWait is Wait without blocking.
func (sm *Semaphore) TryWait() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.count > 0 {
		sm.count--
		return true
	}
	return false
}

// TimedWait is Wait with a deadline (spec.md §4.3 timed_wait).
func (sm *Semaphore) TimedWait(s Scheduler, deadlineNanos int64) (Result, error) {
	sm.mu.Lock()
	if sm.count > 0 {
		sm.count--
		sm.mu.Unlock()
		return NoTimeout, nil
	}
	self := s.Current()
	sm.wait.PushBack(&self.WaitLink)
	sm.mu.Unlock()

	timedOut := s.BlockUntil(self, thread.StateWaiting, deadlineNanos)
	if timedOut {
		sm.mu.Lock()
		if self.WaitLink.Linked() {
			sm.wait.Remove(&self.WaitLink)
		}
		sm.mu.Unlock()
		return Timeout, nil
	}
	return NoTimeout, nil
}

// Reset sets the count directly, for re-initializing a semaphore
// between uses; it does not disturb any thread already waiting.
func (sm *Semaphore) Reset(count int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.count = count
}

// IRQSignal is Signal's interrupt-context variant (spec.md §4.3,
// §4.4): it never blocks and never yields, and reports whether the
// thread it just woke has higher preemption priority than whatever is
// currently running, so the caller knows whether to request
// IRQFindNextThread on return from the interrupt.
func (sm *Semaphore) IRQSignal(s Scheduler) (higherPriorityReady bool) {
	sm.mu.Lock()
	front := sm.wait.PopFront()
	if front == nil {
		sm.count++
		sm.mu.Unlock()
		return false
	}
	sm.mu.Unlock()

	woken := front.(*thread.Thread)
	cur := s.Current()
	higher := cur != nil && woken.Priority().Kind() == cur.Priority().Kind() && woken.Priority().Higher(cur.Priority())
	s.Wake(woken)
	return higher
}
