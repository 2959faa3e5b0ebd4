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

package ktest

import (
	"sync"

	"github.com/mkos/kernel/pkg/kernel/sched"
)

// FakeClock is a manually-advanced sched.TimeSource, used by scheduler
// and ksync tests that need deterministic control over when sleeping
// threads and timed waits wake up instead of depending on wall-clock
// timing (the teacher has no equivalent, since it has no notion of
// simulated kernel time; this is built from scratch against the
// sched.TimeSource contract documented in timesource.go).
type FakeClock struct {
	mu      sync.Mutex
	nowNs   int64
	timers  []*fakeTimer
	nextSeq int
}

// NewFakeClock returns a clock starting at nowNs.
func NewFakeClock(nowNs int64) *FakeClock {
	return &FakeClock{nowNs: nowNs}
}

func (c *FakeClock) NowNanos() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowNs
}

type fakeTimer struct {
	deadline int64
	f        func()
	seq      int
	fired    bool
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	wasPending := !t.fired && !t.stopped
	t.stopped = true
	return wasPending
}

// AfterFunc arranges for f to run (synchronously, from the goroutine
// that calls Advance or SetNow) once the clock reaches deadlineNanos.
func (c *FakeClock) AfterFunc(deadlineNanos int64, f func()) sched.TimerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: deadlineNanos, f: f, seq: c.nextSeq}
	c.nextSeq++
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d nanoseconds, firing (in
// deadline, then insertion, order) every timer whose deadline is now
// at or before the new time.
func (c *FakeClock) Advance(d int64) {
	c.mu.Lock()
	c.nowNs += d
	due := c.dueLocked()
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// SetNow jumps the clock directly to nowNs, firing any newly-due
// timers the same way Advance does.
func (c *FakeClock) SetNow(nowNs int64) {
	c.mu.Lock()
	c.nowNs = nowNs
	due := c.dueLocked()
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *FakeClock) dueLocked() []*fakeTimer {
	var due []*fakeTimer
	var remaining []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.deadline <= c.nowNs {
			t.fired = true
			due = append(due, t)
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
	for i := 0; i < len(due); i++ {
		for j := i + 1; j < len(due); j++ {
			if due[j].seq < due[i].seq {
				due[i], due[j] = due[j], due[i]
			}
		}
	}
	return due
}
