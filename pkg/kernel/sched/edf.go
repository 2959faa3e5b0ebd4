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
	"container/heap"

	"github.com/mkos/kernel/pkg/kernel/thread"
)

// edfHeap is a container/heap min-heap ordered by absolute deadline,
// following the standard library's own PriorityQueue example: each
// Thread carries its own HeapIndex so Remove/fix can locate it in O(log n)
// without a linear scan.
type edfHeap []*thread.Thread

func (h edfHeap) Len() int { return len(h) }

func (h edfHeap) Less(i, j int) bool {
	return h[i].Priority().Higher(h[j].Priority())
}

func (h edfHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].HeapIndex = i
	h[j].HeapIndex = j
}

func (h *edfHeap) Push(x any) {
	t := x.(*thread.Thread)
	t.HeapIndex = len(*h)
	*h = append(*h, t)
}

func (h *edfHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.HeapIndex = -1
	*h = old[:n-1]
	return t
}

// EDFPolicy is the earliest-deadline-first scheduler (spec.md §4.2): no
// time-slice preemption, the ready thread with the smallest absolute
// deadline always runs next.
type EDFPolicy struct {
	h edfHeap
}

func NewEDFPolicy() *EDFPolicy {
	return &EDFPolicy{}
}

func (p *EDFPolicy) Enqueue(t *thread.Thread) {
	heap.Push(&p.h, t)
}

func (p *EDFPolicy) Remove(t *thread.Thread) {
	if t.HeapIndex < 0 || t.HeapIndex >= len(p.h) || p.h[t.HeapIndex] != t {
		return
	}
	heap.Remove(&p.h, t.HeapIndex)
}

func (p *EDFPolicy) Next() *thread.Thread {
	if len(p.h) == 0 {
		return nil
	}
	return p.h[0]
}

// Requeue is a no-op: spec.md §4.2 is explicit that EDF has no
// time-slice preemption, only a deadline comparison at each scheduling
// point.
func (p *EDFPolicy) Requeue(t *thread.Thread) {}

func (p *EDFPolicy) PriorityChanged(t *thread.Thread) {
	if t.HeapIndex < 0 || t.HeapIndex >= len(p.h) || p.h[t.HeapIndex] != t {
		return
	}
	heap.Fix(&p.h, t.HeapIndex)
}

func (p *EDFPolicy) TickInterval() int64 { return 0 }
