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

// Package sched implements the three interchangeable scheduling
// policies of spec.md §4.2 (fixed-priority, control-based, EDF) behind
// one Policy interface, plus the Kernel facade that ties a Policy to
// Thread lifecycle (create/yield/sleep/join/...), the sleep list, and
// the idle thread (spec.md §4.1).
package sched

import "github.com/mkos/kernel/pkg/kernel/thread"

// Policy is the selection strategy the three scheduler flavors
// implement. The Kernel calls these with its internal lock held, so
// implementations do not need their own synchronization.
type Policy interface {
	// Enqueue places a newly-ready thread into the policy's ready set.
	Enqueue(t *thread.Thread)

	// Remove takes a thread out of the ready set, e.g. because it is
	// about to block or be deleted. It is a no-op if t isn't present.
	Remove(t *thread.Thread)

	// Next returns the thread that should run next, without removing
	// it, or nil if the ready set is empty.
	Next() *thread.Thread

	// Requeue is called at a scheduler tick for the currently-running
	// thread: fixed-priority round-robins it to the tail of its
	// priority level; the control policy charges the tick against the
	// thread's burst and may rotate it; EDF is a no-op (spec.md §4.2:
	// "no time-slice preemption").
	Requeue(t *thread.Thread)

	// PriorityChanged re-positions t after its priority changed via
	// PK_set_priority, while t is enqueued.
	PriorityChanged(t *thread.Thread)

	// TickInterval returns the maximum time slice before the next
	// mandatory re-evaluation, or 0 if the policy has no periodic tick
	// (EDF: ticks are never needed, only explicit suspension points).
	TickInterval() int64
}
