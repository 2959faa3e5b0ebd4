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

package ksync

import (
	"testing"

	"github.com/mkos/kernel/pkg/kernel/sched"
	"github.com/mkos/kernel/pkg/kernel/thread"
	"github.com/mkos/kernel/pkg/ktest"
)

// TestFastMutexHandsOffFIFO covers spec.md §4.3 lock/unlock for the
// non-inheriting mutex: waiters queue FIFO, and Unlock hands ownership
// straight to the next waiter rather than letting it race in fresh.
func TestFastMutexHandsOffFIFO(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	m := NewFastMutex(false)
	var order []string
	done := make(chan struct{}, 2)

	spawn := func(name string) {
		k.Create(func(self *thread.Thread, arg any) any {
			if err := m.Lock(k); err != nil {
				t.Errorf("%s: Lock: %v", name, err)
			}
			order = append(order, name)
			if err := m.Unlock(k); err != nil {
				t.Errorf("%s: Unlock: %v", name, err)
			}
			done <- struct{}{}
			return nil
		}, nil, 4096, thread.Fixed(1), thread.Detached, nil)
	}

	if err := m.Lock(k); err != nil {
		t.Fatalf("boot Lock: %v", err)
	}

	spawn("a")
	k.Yield() // a blocks on m, queues FIFO
	spawn("b")
	k.Yield() // b blocks on m, queues FIFO behind a

	if err := m.Unlock(k); err != nil { // hands off to a
		t.Fatalf("boot Unlock: %v", err)
	}
	k.Yield() // let a, then b, run to completion
	<-done
	<-done

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, want [a b]", order)
	}
}

// TestFastMutexRecursive covers the recursive case: the owner may Lock
// again without blocking, and must Unlock the same number of times.
func TestFastMutexRecursive(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	m := NewFastMutex(true)
	if err := m.Lock(k); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if err := m.Lock(k); err != nil {
		t.Fatalf("recursive Lock: %v", err)
	}
	if err := m.Unlock(k); err != nil {
		t.Fatalf("first Unlock: %v", err)
	}
	ok, err := m.TryLock(k)
	if !ok || err != nil {
		t.Fatalf("TryLock while still held by self: (%v, %v), want (true, nil)", ok, err)
	}
	if err := m.Unlock(k); err != nil {
		t.Fatalf("second Unlock: %v", err)
	}
	if err := m.Unlock(k); err != nil {
		t.Fatalf("third Unlock: %v", err)
	}
	if err := m.Unlock(k); err != ErrNotOwner {
		t.Fatalf("Unlock on an unowned mutex: %v, want ErrNotOwner", err)
	}
}

// TestFastMutexNonRecursiveDeadlocks covers the non-recursive case:
// Lock by the current owner reports ErrDeadlock instead of re-entering.
func TestFastMutexNonRecursiveDeadlocks(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	m := NewFastMutex(false)
	if err := m.Lock(k); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if err := m.Lock(k); err != ErrDeadlock {
		t.Fatalf("second Lock by owner: %v, want ErrDeadlock", err)
	}
	if ok, err := m.TryLock(k); ok || err != ErrDeadlock {
		t.Fatalf("TryLock by owner: (%v, %v), want (false, ErrDeadlock)", ok, err)
	}
}
