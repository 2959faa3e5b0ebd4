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
	"errors"
	"runtime"
	"sync"

	"github.com/mkos/kernel/pkg/kernel/thread"
)

var (
	// ErrInvalidHandle is returned for a zero-value thread.Handle.
	ErrInvalidHandle = errors.New("sched: invalid thread handle")
	// ErrNotJoinable is returned by Join/Detach on a detached thread.
	ErrNotJoinable = errors.New("sched: thread is not joinable")
)

const defaultIdleStackSize = 4096

// Kernel ties a Policy to thread lifecycle, the sleep list, and a
// dedicated idle thread (spec.md §4.1, §4.2). There is no true
// asynchronous preemption here: true interrupt-driven preemption is
// architecture/BSP-specific and explicitly out of spec.md §1's scope,
// so Kernel instead models "exactly one thread runs at a time" with one
// buffered(1) channel per thread (its "gate"): a thread's goroutine
// blocks on its own gate whenever it is not the scheduled thread, and
// whoever the scheduler picks next is unblocked by sending on its gate.
// A context switch therefore always happens at an explicit,
// kernel-visible checkpoint (Yield, Sleep, a blocking sync-primitive
// call, thread exit, or IRQTick) — the same set of points a hosted or
// simulated build of a real preemptive kernel would reduce to, absent
// real hardware interrupts.
type Kernel struct {
	mu sync.Mutex

	policy Policy
	ts     TimeSource

	nextID  uint64
	threads map[uint64]*thread.Thread
	gates   map[*thread.Thread]chan struct{}
	joiners map[*thread.Thread][]*thread.Thread

	sleep   sleepList
	current *thread.Thread
	idle    *thread.Thread

	shuttingDown bool
	debugNoSleep bool

	// Trace, if set, is called at every context switch; tests use it to
	// record scheduling traces for the testable properties of spec.md §8
	// without pkg/kernel/sched importing the test package.
	Trace func(event string, t *thread.Thread)
}

// NewKernel builds a Kernel around the given Policy and TimeSource and
// starts its idle thread. debugNoSleep, when true, makes the idle loop
// spin instead of yielding the OS thread, matching the debug flag
// spec.md §4.1 calls out ("unless a debug flag disables sleep").
func NewKernel(policy Policy, ts TimeSource, debugNoSleep bool) *Kernel {
	k := &Kernel{
		policy:       policy,
		ts:           ts,
		threads:      make(map[uint64]*thread.Thread),
		gates:        make(map[*thread.Thread]chan struct{}),
		joiners:      make(map[*thread.Thread][]*thread.Thread),
		debugNoSleep: debugNoSleep,
	}
	idle := thread.New(0, idleEntry, k, defaultIdleStackSize, thread.Idle(), thread.Detached, nil)
	k.threads[idle.ID()] = idle
	k.idle = idle
	k.nextID = 1
	gate := make(chan struct{}, 1)
	k.gates[idle] = gate
	go func() {
		<-gate
		idle.Run()
	}()
	return k
}

// Boot adopts the calling goroutine as the kernel's bootstrap thread:
// the one thread that was never spawned by Create, representing
// whatever called into the kernel first (main, or a test's own
// goroutine). It must be called exactly once, before any other Kernel
// method, and from the goroutine that will act as that thread.
func (k *Kernel) Boot() thread.Handle {
	k.mu.Lock()
	defer k.mu.Unlock()
	id := k.nextID
	k.nextID++
	t := thread.New(id, func(*thread.Thread, any) any { return nil }, nil, 0, thread.Fixed(0), thread.Detached, nil)
	k.threads[id] = t
	k.gates[t] = make(chan struct{}, 1)
	t.SetState(thread.StateRunning)
	k.current = t
	return thread.HandleOf(t)
}

// Create spawns a new thread in the Ready state and returns its handle
// (spec.md §4.1 create). The thread's goroutine parks on its gate until
// the scheduler hands it the token.
func (k *Kernel) Create(entry thread.Entry, arg any, stackSize int, priority thread.Priority, options thread.Options, proc thread.ProcessRef) thread.Handle {
	k.mu.Lock()
	id := k.nextID
	k.nextID++
	t := thread.New(id, entry, arg, stackSize, priority, options, proc)
	k.threads[id] = t
	gate := make(chan struct{}, 1)
	k.gates[t] = gate
	t.SetState(thread.StateReady)
	k.policy.Enqueue(t)
	k.mu.Unlock()

	go func() {
		<-gate
		result := t.Run()
		k.terminate(t, result, nil)
	}()
	return thread.HandleOf(t)
}

// pickNext removes and returns the policy's chosen ready thread, or the
// idle thread if none is ready.
func (k *Kernel) pickNext() *thread.Thread {
	if cand := k.policy.Next(); cand != nil {
		k.policy.Remove(cand)
		return cand
	}
	return k.idle
}

// pickNextPreferring is pickNext's variant for a tick checkpoint: self
// is the thread that was running. If self was not moved into the ready
// set by the policy's Requeue this tick (i.e. it has burst/time-slice
// left), it keeps running unless a strictly more urgent thread — by the
// preemption ordering, or tagged REALTIME_IMMEDIATE (spec.md §4.2) —
// just became ready.
func (k *Kernel) pickNextPreferring(self *thread.Thread) *thread.Thread {
	cand := k.policy.Next()
	if cand == nil {
		return self
	}
	if self == nil || self == k.idle {
		k.policy.Remove(cand)
		return cand
	}
	if !self.WaitLink.Linked() {
		if cand.Priority().Class() == thread.RealtimeImmediate || cand.Priority().Higher(self.Priority()) {
			k.policy.Remove(cand)
			return cand
		}
		return self
	}
	k.policy.Remove(cand)
	return cand
}

// handoff makes next the running thread and, unless next == self,
// blocks the caller (self) on its own gate until it is scheduled again.
// Must be called with k.mu held; always returns with k.mu released.
func (k *Kernel) handoff(self, next *thread.Thread) {
	k.current = next
	next.SetState(thread.StateRunning)
	k.trace("switch", next)
	if next == self {
		k.mu.Unlock()
		return
	}
	k.gates[next] <- struct{}{}
	k.mu.Unlock()
	<-k.gates[self]
}

func (k *Kernel) trace(event string, t *thread.Thread) {
	if k.Trace != nil {
		k.Trace(event, t)
	}
}

// terminate runs on a thread's own goroutine right after its Entry
// returns: it records the join result, wakes any joiners, and hands the
// token to whoever runs next. It never waits for its own gate again —
// this goroutine is about to exit.
func (k *Kernel) terminate(t *thread.Thread, result any, err error) {
	k.mu.Lock()
	t.MarkTerminated(result, err)
	for _, w := range k.joiners[t] {
		w.ClearFlag(thread.FlagWaitingOnJoin)
		w.SetState(thread.StateReady)
		k.policy.Enqueue(w)
	}
	delete(k.joiners, t)
	next := k.pickNext()
	k.current = next
	next.SetState(thread.StateRunning)
	k.trace("switch", next)
	if next != t {
		k.gates[next] <- struct{}{}
	}
	k.mu.Unlock()
}

// Yield gives up the remainder of the current thread's turn (spec.md
// §4.1 yield): it re-enters the ready set at its current priority and
// the scheduler picks whoever should run next.
func (k *Kernel) Yield() {
	k.mu.Lock()
	self := k.current
	self.SetState(thread.StateReady)
	k.policy.Enqueue(self)
	next := k.pickNext()
	k.handoff(self, next)
}

// Sleep suspends the current thread until durationNanos has elapsed on
// the Kernel's TimeSource (spec.md §4.1 sleep).
func (k *Kernel) Sleep(durationNanos int64) {
	k.mu.Lock()
	self := k.current
	wake := k.ts.NowNanos() + durationNanos
	self.WakeupAtNanos = wake
	self.SetState(thread.StateSleeping)
	k.sleep.insert(self)
	k.ts.AfterFunc(wake, func() { k.wakeOne(self) })
	next := k.pickNext()
	k.handoff(self, next)
}

// wakeOne moves a sleeping thread back to Ready. It runs on whatever
// goroutine the TimeSource invokes the callback from (arbitrary,
// per the TimeSource.AfterFunc contract), so it takes the kernel lock
// itself rather than assuming it is held.
func (k *Kernel) wakeOne(t *thread.Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.SleepLink.Linked() {
		return
	}
	k.sleep.remove(t)
	k.wakeExpiredSleepEntry(t)
}

// wakeExpiredSleepEntry moves t, just popped from the sleep list,
// onto the ready queue. t may have been parked by plain Sleep (WaitLink
// untouched, Unlink is then a no-op) or by BlockUntil via a
// ConditionVariable/Semaphore TimedWait, in which case WaitLink may
// still be linked into that primitive's own wait list — nothing pops it
// out until BlockUntil itself returns — so it must be unlinked here
// before policy.Enqueue reuses WaitLink for the ready queue, or PushBack
// panics. TimedOut is meaningful only to BlockUntil's callers; plain
// Sleep callers never read it. Caller must hold k.mu and must already
// have removed t from the sleep list.
func (k *Kernel) wakeExpiredSleepEntry(t *thread.Thread) {
	t.TimedOut = true
	t.WaitLink.Unlink()
	t.SetState(thread.StateReady)
	k.policy.Enqueue(t)
}

// IRQTick is the simulated timer-interrupt checkpoint: it wakes any
// threads whose sleep has expired and gives the policy a chance to
// rotate the running thread (round-robin for FixedPolicy, burst
// accounting for ControlPolicy, a no-op for EDFPolicy). The currently
// running thread's own goroutine must call this — there is no
// asynchronous interrupt delivery in this model, see the Kernel doc
// comment.
func (k *Kernel) IRQTick() {
	k.mu.Lock()
	now := k.ts.NowNanos()
	for _, t := range k.sleep.expired(now) {
		k.wakeExpiredSleepEntry(t)
	}
	self := k.current
	if self != nil && self != k.idle {
		k.policy.Requeue(self)
	}
	next := k.pickNextPreferring(self)
	k.handoff(self, next)
}

// GetCurrent returns the thread currently holding the token.
func (k *Kernel) GetCurrent() *thread.Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// IRQFindNextThread peeks at (without removing) whichever thread the
// policy would hand the token to next, without actually switching. An
// interrupt handler that used IRQSignal calls this to decide whether
// the thread it just woke outranks whatever was running, i.e. whether
// to request a reschedule on return from the interrupt.
func (k *Kernel) IRQFindNextThread() *thread.Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	if n := k.policy.Next(); n != nil {
		return n
	}
	return k.idle
}

// Current implements ksync.Scheduler.
func (k *Kernel) Current() *thread.Thread { return k.GetCurrent() }

// Block implements ksync.Scheduler: it is how pkg/kernel/ksync's Mutex,
// FastMutex, ConditionVariable, and Semaphore suspend the calling
// thread without pkg/kernel/sched importing pkg/kernel/ksync. self must
// be the thread currently holding the token (the caller's own thread);
// it is marked into the given wait state and does not become runnable
// again until some other thread calls Wake on it.
func (k *Kernel) Block(self *thread.Thread, state thread.State) {
	k.mu.Lock()
	self.SetState(state)
	next := k.pickNext()
	k.handoff(self, next)
}

// Wake implements ksync.Scheduler: moves a blocked thread back to
// Ready. Safe to call from any goroutine holding the token (i.e. from
// inside a Block-ed primitive's own unlock/signal path). t may also be
// parked in the sleep list via BlockUntil (ConditionVariable/Semaphore
// TimedWait racing a deadline); in that case Wake is racing
// wakeTimedOut to resolve the same thread, so it must claim the sleep
// list entry itself (removing it) before the other side can, and must
// recognize when it has lost that race instead of enqueueing t a
// second time.
func (k *Kernel) Wake(t *thread.Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.SleepLink.Linked() {
		k.sleep.remove(t)
	} else if t.WaitLink.Linked() {
		// Not a plain Block() wakeup (those never touch the sleep
		// list) — wakeTimedOut already claimed this wakeup and put t
		// on the ready queue first.
		return
	}
	t.SetState(thread.StateReady)
	k.policy.Enqueue(t)
}

// BlockUntil implements ksync.Scheduler for ConditionVariable.TimedWait
// and Semaphore.TimedWait: self is parked in both the given state and
// the sleep list, and a timer races an explicit Wake. Whichever comes
// first claims self (see Wake, wakeTimedOut) and records the outcome in
// self.TimedOut; BlockUntil reports that once self resumes.
func (k *Kernel) BlockUntil(self *thread.Thread, state thread.State, deadlineNanos int64) bool {
	k.mu.Lock()
	self.SetState(state)
	self.WakeupAtNanos = deadlineNanos
	self.TimedOut = false
	k.sleep.insert(self)
	k.ts.AfterFunc(deadlineNanos, func() { k.wakeTimedOut(self) })
	next := k.pickNext()
	k.handoff(self, next)

	k.mu.Lock()
	timedOut := self.TimedOut
	k.mu.Unlock()
	return timedOut
}

// wakeTimedOut is the deadline-timer path of BlockUntil: a no-op if an
// explicit Wake already claimed t first (Wake always removes t from the
// sleep list as part of claiming it, so SleepLink no longer being linked
// is an unambiguous "someone else already handled this"). Otherwise t is
// still linked into whatever wait list (a ConditionVariable's or a
// Semaphore's) parked it — unlike Wake's callers, nothing has popped t
// out of that list yet, since that only happens once BlockUntil itself
// returns — so wakeTimedOut pulls t out of it directly before moving t
// to Ready.
func (k *Kernel) wakeTimedOut(t *thread.Thread) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.SleepLink.Linked() {
		return
	}
	k.sleep.remove(t)
	k.wakeExpiredSleepEntry(t)
}

// Exists reports whether h still refers to a thread the kernel tracks
// (spec.md §4.1 exists): false once the idle thread has reclaimed a
// detached, terminated thread's resources.
func (k *Kernel) Exists(h thread.Handle) bool {
	t := h.Thread()
	if t == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.threads[t.ID()]
	return ok
}

// SetPriority changes a thread's base priority (spec.md §4.1
// PK_set_priority). If the thread is not currently boosted above its
// old base by priority inheritance, the new priority takes effect
// immediately; otherwise the boost is left in place and the new base
// takes effect once pkg/kernel/ksync's Mutex.Unlock recomputes the
// thread's effective priority from what it still holds.
func (k *Kernel) SetPriority(h thread.Handle, p thread.Priority) error {
	t := h.Thread()
	if t == nil {
		return ErrInvalidHandle
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	queued := t.State() == thread.StateReady && t.WaitLink.Linked()
	if queued {
		k.policy.Remove(t)
	}
	old := t.SavedPriority()
	t.SetSavedPriority(p)
	if t.Priority().Equal(old) {
		t.SetPriority(p)
	}
	if queued {
		k.policy.Enqueue(t)
	}
	k.policy.PriorityChanged(t)
	return nil
}

// Join blocks until h's thread terminates and returns the value its
// Entry returned (spec.md §4.1 join). It fails for a detached thread.
func (k *Kernel) Join(h thread.Handle) (any, error) {
	t := h.Thread()
	if t == nil {
		return nil, ErrInvalidHandle
	}
	if !t.Joinable() {
		return nil, ErrNotJoinable
	}
	k.mu.Lock()
	if t.State() == thread.StateTerminated {
		k.mu.Unlock()
		return t.JoinResult()
	}
	self := k.current
	self.SetFlag(thread.FlagWaitingOnJoin)
	self.SetState(thread.StateWaiting)
	k.joiners[t] = append(k.joiners[t], self)
	next := k.pickNext()
	k.handoff(self, next)
	return t.JoinResult()
}

// Detach marks a joinable thread detached (spec.md §4.1 detach): its
// resources are reclaimed by the idle thread on termination instead of
// waiting for a Join.
func (k *Kernel) Detach(h thread.Handle) error {
	t := h.Thread()
	if t == nil {
		return ErrInvalidHandle
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.Detach() {
		return ErrNotJoinable
	}
	return nil
}

// RequestTerminate raises h's cooperative-termination flag (spec.md §5
// terminate); the target thread observes it via TestTerminate.
func (k *Kernel) RequestTerminate(h thread.Handle) {
	if t := h.Thread(); t != nil {
		t.RequestTerminate()
	}
}

// Shutdown stops the idle thread's loop once it next checks. Intended
// for tests that want a clean goroutine exit rather than leaking the
// idle goroutine past the test's lifetime.
func (k *Kernel) Shutdown() {
	k.mu.Lock()
	k.shuttingDown = true
	k.mu.Unlock()
}

func (k *Kernel) isShuttingDown() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.shuttingDown
}

// idleWait is the idle thread's low-power-wait stand-in (spec.md §4.1):
// if a thread is ready, it hands the token over immediately; otherwise
// it releases the kernel lock briefly so other goroutines (a pending
// AfterFunc callback, a concurrent Create) can make progress, mirroring
// the architecture's wait-for-interrupt instruction.
func (k *Kernel) idleWait() bool {
	if k.isShuttingDown() {
		return true
	}
	k.mu.Lock()
	next := k.pickNext()
	if next == k.idle {
		k.mu.Unlock()
		if !k.debugNoSleep {
			runtime.Gosched()
		}
		return false
	}
	k.handoff(k.idle, next)
	return false
}
