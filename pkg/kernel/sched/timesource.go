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

import "time"

// TimeSource is the external collaborator spec.md §2 calls out as a
// leaf: "monotonic 64-bit nanosecond clock and one-shot wake-up timer".
// A board-support package supplies the real one; WallClock below is the
// reference implementation used off-target.
type TimeSource interface {
	NowNanos() int64
	// AfterFunc arranges for f to be invoked, from an arbitrary
	// goroutine, no earlier than deadlineNanos. The returned TimerHandle
	// cancels it.
	AfterFunc(deadlineNanos int64, f func()) TimerHandle
}

// TimerHandle cancels a pending one-shot timer.
type TimerHandle interface {
	Stop() bool
}

// WallClock is a TimeSource backed by the operating system clock, used
// by tests and by any host environment without a dedicated board timer.
type WallClock struct{}

func (WallClock) NowNanos() int64 { return time.Now().UnixNano() }

func (WallClock) AfterFunc(deadlineNanos int64, f func()) TimerHandle {
	d := time.Duration(deadlineNanos - time.Now().UnixNano())
	if d < 0 {
		d = 0
	}
	return (*timeTimer)(time.AfterFunc(d, f))
}

type timeTimer time.Timer

func (t *timeTimer) Stop() bool { return (*time.Timer)(t).Stop() }
