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

// FixedPolicy is the default scheduler (spec.md §4.2): one FIFO queue
// per priority level, highest non-empty level wins, FIFO within a
// level, with round-robin time-slice preemption.
type FixedPolicy struct {
	levels    []intrusive.List // index 0..PriorityMax-1
	maxSlice  int64
}

// NewFixedPolicy builds a fixed-priority policy with priorityMax levels
// and the given maximum time slice in nanoseconds (spec.md §4.2
// MAX_TIME_SLICE).
func NewFixedPolicy(priorityMax int, maxTimeSliceNanos int64) *FixedPolicy {
	return &FixedPolicy{
		levels:   make([]intrusive.List, priorityMax),
		maxSlice: maxTimeSliceNanos,
	}
}

func (p *FixedPolicy) level(t *thread.Thread) *intrusive.List {
	v := t.Priority().Value()
	if v < 0 || v >= len(p.levels) {
		return nil
	}
	return &p.levels[v]
}

func (p *FixedPolicy) Enqueue(t *thread.Thread) {
	if l := p.level(t); l != nil {
		l.PushBack(&t.WaitLink)
	}
}

func (p *FixedPolicy) Remove(t *thread.Thread) {
	if l := p.level(t); l != nil {
		l.Remove(&t.WaitLink)
	}
}

func (p *FixedPolicy) Next() *thread.Thread {
	for i := len(p.levels) - 1; i >= 0; i-- {
		if front := p.levels[i].Front(); front != nil {
			return front.(*thread.Thread)
		}
	}
	return nil
}

func (p *FixedPolicy) Requeue(t *thread.Thread) {
	if l := p.level(t); l != nil {
		l.Remove(&t.WaitLink)
		l.PushBack(&t.WaitLink)
	}
}

func (p *FixedPolicy) PriorityChanged(t *thread.Thread) {
	// The thread may have moved to a different priority level
	// entirely; since levels are keyed by current Priority().Value(),
	// the caller (Kernel.SetPriority) removes from the old level
	// before changing priority and re-enqueues after, so there is
	// nothing further to do here beyond being a documented no-op.
}

func (p *FixedPolicy) TickInterval() int64 { return p.maxSlice }
