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

package thread

import "fmt"

// Kind tags which of the three scheduling policies a Priority value was
// built for. Comparing priorities of different kinds is a programming
// error; the kernel only ever compares priorities drawn from the single
// policy selected at construction (spec.md §4.2).
type Kind uint8

const (
	KindFixed Kind = iota
	KindControl
	KindEDF
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindControl:
		return "control"
	case KindEDF:
		return "edf"
	default:
		return "unknown"
	}
}

// RealtimeClass tags how urgently a control-scheduled thread preempts on
// wakeup (spec.md §4.2).
type RealtimeClass uint8

const (
	// RealtimeNone marks a thread that does not get special preemption
	// treatment; it simply waits for its turn like any other thread.
	RealtimeNone RealtimeClass = iota
	RealtimeImmediate
	RealtimeNextBurst
	RealtimeEndOfRound
)

// IdleValue is the reserved fixed-priority value of the idle thread.
const IdleValue = -1

// Priority is a tagged union over the three priority representations
// spec.md §3 describes: a small fixed integer, a (priority, realtime
// class) pair, or an absolute EDF deadline. Two comparison operators are
// exposed — Higher (the preemption ordering, used only by the scheduler)
// and InheritanceHigher (the mutex-inheritance ordering, used only by
// priority-inheriting Mutex) — kept as distinct methods even though for
// all three representations they agree, because spec.md §3 calls them
// out as separate operators with separate call sites; see DESIGN.md.
type Priority struct {
	kind     Kind
	value    int // Fixed: 0..PriorityMax-1, or IdleValue. Control: static priority.
	class    RealtimeClass
	deadline int64 // EDF: absolute nanoseconds.
}

// Fixed builds a fixed-priority value. v must be in [0, PriorityMax) or
// equal IdleValue.
func Fixed(v int) Priority { return Priority{kind: KindFixed, value: v} }

// Idle returns the reserved idle-thread priority for the fixed scheduler.
func Idle() Priority { return Fixed(IdleValue) }

// Control builds a control-scheduler priority: a static priority used by
// the outer regulator to distribute round time, plus a realtime class
// governing preemption urgency on wakeup.
func Control(v int, class RealtimeClass) Priority {
	return Priority{kind: KindControl, value: v, class: class}
}

// EDF builds an EDF priority from an absolute deadline in nanoseconds.
func EDF(deadlineNs int64) Priority {
	return Priority{kind: KindEDF, deadline: deadlineNs}
}

func (p Priority) Kind() Kind                 { return p.kind }
func (p Priority) Value() int                 { return p.value }
func (p Priority) Class() RealtimeClass        { return p.class }
func (p Priority) Deadline() int64             { return p.deadline }
func (p Priority) IsIdle() bool                { return p.kind == KindFixed && p.value == IdleValue }

// Higher reports whether p has strictly greater scheduling urgency than
// other under the preemption ordering. Only the scheduler (pkg/kernel/sched)
// calls this.
func (p Priority) Higher(other Priority) bool {
	p.mustSameKind(other)
	switch p.kind {
	case KindEDF:
		return p.deadline < other.deadline
	default: // KindFixed, KindControl
		return p.value > other.value
	}
}

// InheritanceHigher is the mutex-inheritance ordering: only
// pkg/kernel/ksync's priority-inheriting Mutex calls this, never the
// scheduler.
func (p Priority) InheritanceHigher(other Priority) bool {
	p.mustSameKind(other)
	return p.Higher(other)
}

// Equal reports value equality (not identity of urgency — two EDF
// deadlines that are numerically equal are Equal even though neither is
// Higher than the other).
func (p Priority) Equal(other Priority) bool {
	p.mustSameKind(other)
	switch p.kind {
	case KindEDF:
		return p.deadline == other.deadline
	case KindControl:
		return p.value == other.value && p.class == other.class
	default:
		return p.value == other.value
	}
}

// Max returns whichever of p, other is Higher (p on a tie).
func Max(p, other Priority) Priority {
	if other.Higher(p) {
		return other
	}
	return p
}

func (p Priority) mustSameKind(other Priority) {
	if p.kind != other.kind {
		panic(fmt.Sprintf("thread: comparing priorities of different kinds (%s vs %s)", p.kind, other.kind))
	}
}

func (p Priority) String() string {
	switch p.kind {
	case KindEDF:
		return fmt.Sprintf("edf(deadline=%dns)", p.deadline)
	case KindControl:
		return fmt.Sprintf("control(%d,class=%d)", p.value, p.class)
	default:
		return fmt.Sprintf("fixed(%d)", p.value)
	}
}
