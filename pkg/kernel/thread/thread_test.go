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

import "testing"

func TestFixedPriorityHigher(t *testing.T) {
	low := Fixed(1)
	high := Fixed(5)
	if !high.Higher(low) {
		t.Fatalf("Fixed(5).Higher(Fixed(1)) = false, want true")
	}
	if low.Higher(high) {
		t.Fatalf("Fixed(1).Higher(Fixed(5)) = true, want false")
	}
	if low.Higher(low) {
		t.Fatalf("equal priorities should not be Higher than each other")
	}
}

func TestEDFPriorityHigherIsEarlierDeadline(t *testing.T) {
	sooner := EDF(1000)
	later := EDF(2000)
	if !sooner.Higher(later) {
		t.Fatalf("earlier EDF deadline should be Higher")
	}
	if later.Higher(sooner) {
		t.Fatalf("later EDF deadline should not be Higher")
	}
}

func TestPriorityMax(t *testing.T) {
	a, b := Fixed(3), Fixed(7)
	if got := Max(a, b); !got.Equal(b) {
		t.Fatalf("Max(3,7) = %v, want 7", got)
	}
	if got := Max(a, a); !got.Equal(a) {
		t.Fatalf("Max(a,a) should return a on a tie")
	}
}

func TestMustSameKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("comparing a Fixed and an EDF priority should panic")
		}
	}()
	Fixed(0).Higher(EDF(0))
}

func TestNewThreadStartsReadyWithWatermarkIntact(t *testing.T) {
	tr := New(1, func(*Thread, any) any { return nil }, nil, 256, Fixed(2), Joinable, nil)
	if !tr.StackWatermarkOK(256) {
		t.Fatalf("freshly built thread should have an intact stack watermark")
	}
	if !tr.Joinable() {
		t.Fatalf("thread created without Detached should be joinable")
	}
}

func TestDetachIsOneShot(t *testing.T) {
	tr := New(1, func(*Thread, any) any { return nil }, nil, 64, Fixed(0), Joinable, nil)
	if !tr.Detach() {
		t.Fatalf("first Detach() on a joinable thread should succeed")
	}
	if tr.Joinable() {
		t.Fatalf("thread should no longer be joinable after Detach")
	}
	if tr.Detach() {
		t.Fatalf("second Detach() should report false")
	}
}

func TestDetachedAtCreateIsNotJoinable(t *testing.T) {
	tr := New(1, func(*Thread, any) any { return nil }, nil, 64, Fixed(0), Detached, nil)
	if tr.Joinable() {
		t.Fatalf("a thread created with Detached should never be joinable")
	}
	if tr.Detach() {
		t.Fatalf("Detach on an already-detached-at-create thread should report false")
	}
}

func TestMarkTerminatedClosesJoinChannel(t *testing.T) {
	tr := New(1, func(*Thread, any) any { return nil }, nil, 64, Fixed(0), Joinable, nil)
	tr.MarkTerminated(42, nil)
	select {
	case <-tr.JoinChannel():
	default:
		t.Fatalf("JoinChannel should be closed after MarkTerminated")
	}
	result, err := tr.JoinResult()
	if err != nil || result != 42 {
		t.Fatalf("JoinResult() = (%v, %v), want (42, nil)", result, err)
	}
	if tr.State() != StateTerminated {
		t.Fatalf("State() = %v, want StateTerminated", tr.State())
	}
}

func TestRequestTerminateIsCooperative(t *testing.T) {
	tr := New(1, func(*Thread, any) any { return nil }, nil, 64, Fixed(0), Joinable, nil)
	if tr.TestTerminate() {
		t.Fatalf("TestTerminate() should start false")
	}
	tr.RequestTerminate()
	if !tr.TestTerminate() {
		t.Fatalf("TestTerminate() should observe RequestTerminate")
	}
}

func TestHandleExistsSemantics(t *testing.T) {
	var zero Handle
	if !zero.IsZero() {
		t.Fatalf("zero-value Handle should report IsZero")
	}
	tr := New(1, func(*Thread, any) any { return nil }, nil, 64, Fixed(0), Joinable, nil)
	h := HandleOf(tr)
	if h.IsZero() {
		t.Fatalf("HandleOf(non-nil) should not be zero")
	}
	if h.Thread() != tr {
		t.Fatalf("Handle.Thread() did not round-trip")
	}
}
