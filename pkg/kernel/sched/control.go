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

// ControlPolicy is the control-based scheduler (spec.md §4.2): every
// ready thread gets a per-round "burst" computed by an outer regulator
// (nominal round time split proportionally to static priority) and
// adjusted round to round by an inner regulator, clamped to
// [BurstMin, BurstMax]. A thread's RealtimeClass governs how eagerly it
// preempts on wakeup: IMMEDIATE jumps to the head of the ready list,
// NEXT_BURST and END_OF_ROUND join the tail like any other thread,
// leaving it to the Kernel to decide whether the current burst is cut
// short (NEXT_BURST, spec.md: "waits for the current burst to end") or
// left to run out the round (END_OF_ROUND).
type ControlPolicy struct {
	ready intrusive.List
	burst map[*thread.Thread]int64

	nominalRound    int64
	burstMin        int64
	burstMax        int64
	tickGranularity int64
}

// NewControlPolicy builds a control-based policy. nominalRoundNanos is
// the round time the outer regulator divides among ready threads;
// burstMin/burstMax clamp the per-thread share; tickGranularityNanos is
// how often Requeue is expected to be called for the running thread
// (spec.md's "MAX_TIME_SLICE" analog for this policy).
func NewControlPolicy(nominalRoundNanos, burstMin, burstMax, tickGranularityNanos int64) *ControlPolicy {
	return &ControlPolicy{
		burst:           make(map[*thread.Thread]int64),
		nominalRound:    nominalRoundNanos,
		burstMin:        burstMin,
		burstMax:        burstMax,
		tickGranularity: tickGranularityNanos,
	}
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// outerBurst is the regulator step: the nominal round is split among
// all currently-ready threads proportionally to their static priority
// weight (priority value + 1, so priority 0 still gets a share).
func (p *ControlPolicy) outerBurst(t *thread.Thread) int64 {
	var weightSum, n int
	p.ready.Each(func(elem any) {
		n++
		weightSum += elem.(*thread.Thread).Priority().Value() + 1
	})
	if n == 0 || weightSum == 0 {
		return clampInt64(p.nominalRound, p.burstMin, p.burstMax)
	}
	weight := t.Priority().Value() + 1
	share := p.nominalRound * int64(weight) / int64(weightSum)
	return clampInt64(share, p.burstMin, p.burstMax)
}

func (p *ControlPolicy) assignBurst(t *thread.Thread) {
	p.burst[t] = p.outerBurst(t)
}

func (p *ControlPolicy) Enqueue(t *thread.Thread) {
	if t.Priority().Class() == thread.RealtimeImmediate {
		p.ready.PushFront(&t.WaitLink)
	} else {
		p.ready.PushBack(&t.WaitLink)
	}
	p.assignBurst(t)
}

func (p *ControlPolicy) Remove(t *thread.Thread) {
	p.ready.Remove(&t.WaitLink)
	delete(p.burst, t)
}

func (p *ControlPolicy) Next() *thread.Thread {
	if front := p.ready.Front(); front != nil {
		return front.(*thread.Thread)
	}
	return nil
}

// Requeue is the inner regulator step: called once per tickGranularity
// while t runs. t's remaining burst is charged one tick; once it
// reaches zero t has used its whole allocation for this round, so it
// rotates to the tail and gets a freshly recomputed burst for the next
// round (proportional shares shift as the ready set changes).
func (p *ControlPolicy) Requeue(t *thread.Thread) {
	remaining, ok := p.burst[t]
	if !ok {
		return
	}
	remaining -= p.tickGranularity
	if remaining > 0 {
		p.burst[t] = remaining
		return
	}
	p.ready.Remove(&t.WaitLink)
	p.ready.PushBack(&t.WaitLink)
	p.assignBurst(t)
}

func (p *ControlPolicy) PriorityChanged(t *thread.Thread) {
	if _, ok := p.burst[t]; ok {
		p.assignBurst(t)
	}
}

func (p *ControlPolicy) TickInterval() int64 { return p.tickGranularity }
