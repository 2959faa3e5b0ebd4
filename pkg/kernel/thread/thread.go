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

// Package thread defines the per-thread state the scheduler (pkg/kernel/sched)
// and the synchronization primitives (pkg/kernel/ksync) are built on
// (spec.md §3, §4.1). It intentionally knows nothing about how threads
// are selected to run; it only models the state spec.md requires a
// Thread to carry.
package thread

import (
	"github.com/mkos/kernel/pkg/kernel/intrusive"
)

// State is the thread's single run state. Exactly one holds at any
// instant (spec.md §3 invariant): "exactly one of {ready, sleeping,
// waiting} holds at any moment".
type State uint8

const (
	StateReady State = iota
	StateSleeping
	StateWaiting
	StateRunning
	StateTerminated
)

// Flags is the bitset spec.md §3 lists on Thread. Unlike State, any
// subset of these may be set simultaneously.
type Flags uint16

const (
	FlagWaitingOnCond Flags = 1 << iota
	FlagWaitingOnJoin
	FlagDeleted
	FlagDetached
	FlagUserspace
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Options selects create-time behavior (spec.md §4.1).
type Options uint8

const (
	Joinable Options = 0
	Detached Options = 1 << iota
)

// MutexRef is the minimal view of a held-or-awaited mutex the
// priority-inheritance walk needs. pkg/kernel/ksync.Mutex implements
// this; pkg/kernel/thread never imports pkg/kernel/ksync, which would
// otherwise be a import cycle (Mutex embeds *Thread fields).
type MutexRef interface {
	// LockOwner returns the thread that currently owns the mutex, or
	// nil if it is unowned.
	LockOwner() *Thread
}

// ProcessRef is the minimal view of an owning process a Thread needs to
// hold; pkg/kernel/mpu.Process implements it. Kept as an interface for
// the same reason as MutexRef: Thread must not import mpu.
type ProcessRef interface {
	// MPUEnabled reports whether this process runs with the MPU
	// programmed (false for the pseudo-process some kernel threads
	// share, which always runs privileged).
	MPUEnabled() bool
}

const watermarkPattern = 0xAA

// Thread is one schedulable unit of execution: a kernel thread or a
// userspace thread running under a Process.
type Thread struct {
	intrusive.RefCounted

	id uint64

	// WaitLink is this thread's node in whichever single FIFO/ready
	// queue currently holds it (scheduler ready queue, a
	// ConditionVariable's wait list, a Semaphore's wait list, or a
	// FastMutex's wait list — these are mutually exclusive). SleepLink
	// is separate because timed_wait (spec.md §4.3) places a thread in
	// both a wait list *and* the sleep list simultaneously.
	WaitLink  intrusive.ListNode
	SleepLink intrusive.ListNode

	// HeapIndex is maintained exclusively by whichever priority-
	// inheriting Mutex's wait-heap currently holds this thread (at
	// most one, spec.md §3 invariant), the same way container/heap's
	// own documentation example keeps a heap index on the element.
	HeapIndex int

	priority      Priority
	savedPriority Priority

	state State
	flags Flags

	// LockedMutexes holds *ksync.Mutex elements (via their own
	// embedded ListNode) currently owned by this thread, for the
	// priority-inheritance rollback computation on unlock (spec.md
	// §4.3). WaitingOn is set iff state == StateWaiting and the wait
	// reason is a priority-inheriting Mutex.
	LockedMutexes intrusive.List
	WaitingOn     MutexRef

	entry Entry
	arg   any

	options Options

	stack       []byte
	stackBottom int

	joinCh     chan struct{}
	joinResult any
	joinErr    error
	detachedMu bool // true once Detach() has run; guards double-detach

	process ProcessRef

	WakeupAtNanos int64 // valid while state == StateSleeping

	// TimedOut is scheduler-private bookkeeping for BlockUntil
	// (spec.md §4.3 timed_wait): whichever of an explicit Wake or the
	// deadline's own timer callback resolves a pending BlockUntil first
	// decides this thread's fate, and the loser must become a no-op
	// rather than enqueue the thread a second time. BlockUntil reads
	// this field once the thread resumes instead of inferring the
	// outcome from SleepLink, since both the timeout path and the
	// explicit-wake path remove the thread from the sleep list as part
	// of claiming it.
	TimedOut bool

	terminating bool // set by RequestTerminate; observed via TestTerminate
}

// RequestTerminate implements cooperative delete (spec.md §5): it only
// raises a flag. The thread must itself call TestTerminate (typically
// at a syscall boundary) to act on it.
func (t *Thread) RequestTerminate() { t.terminating = true }

// TestTerminate reports whether RequestTerminate was called. Entry
// functions that want to honor cooperative termination poll this.
func (t *Thread) TestTerminate() bool { return t.terminating }

// Entry is a thread's body. It receives the argument passed to Create
// and the Thread itself (so it can call Yield/TestTerminate on itself
// without a separate "current thread" lookup in tests), and returns the
// value a joiner receives from Join (spec.md §3 join_result).
type Entry func(t *Thread, arg any) any

// New constructs a Thread in the Ready state. It does not enqueue the
// thread anywhere; the scheduler (pkg/kernel/sched) does that as part of
// Create, after deciding the thread's id and wiring its goroutine.
func New(id uint64, entry Entry, arg any, stackSize int, priority Priority, options Options, proc ProcessRef) *Thread {
	t := &Thread{
		id:          id,
		priority:    priority,
		savedPriority: priority,
		entry:       entry,
		arg:         arg,
		options:     options,
		stack:       make([]byte, stackSize),
		stackBottom: 0,
		joinCh:      make(chan struct{}),
		process:     proc,
		HeapIndex:   -1,
	}
	t.RefCounted.Init(1)
	t.WaitLink.Elem = t
	t.SleepLink.Elem = t
	if options&Detached != 0 {
		t.flags |= FlagDetached
	}
	fillWatermark(t.stack)
	return t
}

// ID returns the thread's unique, monotonically-issued identifier.
func (t *Thread) ID() uint64 { return t.id }

// Run invokes the thread body and returns its result, so the
// scheduler's goroutine wrapper can feed it to MarkTerminated.
func (t *Thread) Run() any { return t.entry(t, t.arg) }

func (t *Thread) State() State      { return t.state }
func (t *Thread) SetState(s State)  { t.state = s }
func (t *Thread) Flags() Flags      { return t.flags }
func (t *Thread) SetFlag(f Flags)   { t.flags |= f }
func (t *Thread) ClearFlag(f Flags) { t.flags &^= f }

func (t *Thread) Priority() Priority      { return t.priority }
func (t *Thread) SetPriority(p Priority)  { t.priority = p }
func (t *Thread) SavedPriority() Priority { return t.savedPriority }

// SetSavedPriority changes the thread's base priority (what its
// priority would be absent inheritance). Per spec.md §3 invariant,
// "priority ≥ saved_priority whenever mutex_locked is non-empty" must
// be re-established by the caller (pkg/kernel/ksync.Mutex.Unlock and
// pkg/kernel/sched.SetPriority do this).
func (t *Thread) SetSavedPriority(p Priority) { t.savedPriority = p }

func (t *Thread) Process() ProcessRef { return t.process }

func (t *Thread) IsIdle() bool { return t.priority.IsIdle() }

// Joinable reports whether this thread can be joined (i.e. it was
// created without Detached and Detach has not been called).
func (t *Thread) Joinable() bool {
	return t.options&Detached == 0 && !t.detachedMu
}

// Detach marks the thread detached; it reports false if it was already
// detached or created with Detached, matching the "no-op on an already
// detached thread" posture of the source kernel.
func (t *Thread) Detach() bool {
	if !t.Joinable() {
		return false
	}
	t.detachedMu = true
	t.flags |= FlagDetached
	return true
}

// MarkTerminated transitions the thread to its terminal state, records
// the join result, and releases any joiner blocked in Join.
func (t *Thread) MarkTerminated(result any, err error) {
	t.state = StateTerminated
	t.joinResult = result
	t.joinErr = err
	close(t.joinCh)
}

// JoinChannel exposes the close-on-terminate channel so the scheduler
// can select on it alongside other wakeup sources.
func (t *Thread) JoinChannel() <-chan struct{} { return t.joinCh }

// JoinResult returns the value MarkTerminated recorded. Only valid
// after JoinChannel() is closed.
func (t *Thread) JoinResult() (any, error) { return t.joinResult, t.joinErr }

// StackWatermarkOK reports whether the guard region at the bottom of
// the stack is untouched, i.e. no stack overflow occurred (spec.md
// §4.1). Real architectures check this on every context switch out;
// here it is exposed for the scheduler to call at the same point.
func (t *Thread) StackWatermarkOK(watermarkLen int) bool {
	if watermarkLen > len(t.stack) {
		watermarkLen = len(t.stack)
	}
	for i := 0; i < watermarkLen; i++ {
		if t.stack[i] != watermarkPattern {
			return false
		}
	}
	return true
}

func fillWatermark(stack []byte) {
	for i := range stack {
		stack[i] = watermarkPattern
	}
}

// Handle is an opaque, copyable reference to a Thread, returned by
// Create and accepted by Join/Detach/Terminate/Exists (spec.md §4.1).
// It stays valid (Exists reports false, rather than dangling) after the
// idle thread has reclaimed a detached, terminated thread's resources.
type Handle struct {
	t *Thread
}

// HandleOf wraps a *Thread. Used by pkg/kernel/sched when returning
// Create's result.
func HandleOf(t *Thread) Handle { return Handle{t: t} }

// Thread returns the underlying Thread, or nil if the handle is the
// zero value.
func (h Handle) Thread() *Thread { return h.t }

func (h Handle) IsZero() bool { return h.t == nil }
