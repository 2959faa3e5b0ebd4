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

// Package ksync implements the priority-inheriting Mutex, FastMutex,
// ConditionVariable, and Semaphore of spec.md §4.3, built only on
// pkg/kernel/thread and the small Scheduler interface below —
// pkg/kernel/sched.Kernel satisfies it, but ksync never imports sched,
// avoiding the import cycle sched already has a reason to avoid (sched
// needs thread.MutexRef from a Mutex, ksync needs to block/wake threads
// through the scheduler).
package ksync

import "github.com/mkos/kernel/pkg/kernel/thread"

// Scheduler is the minimal view of pkg/kernel/sched.Kernel the
// primitives in this package need.
type Scheduler interface {
	// Current returns the thread presently holding the token, i.e. the
	// one calling into a primitive's Lock/Wait/Signal method.
	Current() *thread.Thread
	// Block suspends the calling thread (must be Current()) in the
	// given state and does not return until some other thread calls
	// Wake on it.
	Block(self *thread.Thread, state thread.State)
	// BlockUntil is Block with a deadline: it also returns early,
	// reporting true, if no one calls Wake before deadlineNanos
	// (spec.md §4.3 timed_wait).
	BlockUntil(self *thread.Thread, state thread.State, deadlineNanos int64) (timedOut bool)
	// Wake moves a blocked thread back to Ready.
	Wake(t *thread.Thread)
	// Yield gives up the remainder of the calling thread's turn,
	// re-entering the ready set at its current priority.
	Yield()
}
