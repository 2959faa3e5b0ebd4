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

package pipefs

import (
	"bytes"
	"testing"

	"github.com/mkos/kernel/pkg/kernel/sched"
	"github.com/mkos/kernel/pkg/kernel/thread"
	"github.com/mkos/kernel/pkg/ktest"
	"github.com/mkos/kernel/pkg/vfs"
	"github.com/mkos/kernel/pkg/vfs/memfs"
)

// newTestParent stands in for the mounted filesystem a pipe() syscall
// would normally register endpoints against; memfs.Filesystem is a
// convenient full FilesystemBase implementation that asks nothing of
// the caller beyond New().
func newTestParent() vfs.FilesystemBase { return memfs.New() }

// TestPipeWriteLargerThanCapacityRoundTrips covers the ring buffer wrap
// case: a 257-byte write against the 256-byte default capacity forces
// the writer to block on spaceAvailable mid-write while the reader
// drains concurrently, both driven by real scheduler threads.
func TestPipeWriteLargerThanCapacityRoundTrips(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	parent := newTestParent()
	r, w := NewEndpoints(k, parent)

	payload := bytes.Repeat([]byte{0xAB}, 257)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	readDone := make(chan []byte, 1)
	writeDone := make(chan struct{})

	readerHandle := k.Create(func(self *thread.Thread, arg any) any {
		got := make([]byte, 0, len(payload))
		buf := make([]byte, 64)
		for len(got) < len(payload) {
			n, err := r.Read(buf)
			if err != nil {
				t.Errorf("Read: %v", err)
				return nil
			}
			if n == 0 {
				break
			}
			got = append(got, buf[:n]...)
		}
		readDone <- got
		return nil
	}, nil, 4096, thread.Fixed(2), thread.Detached, nil)

	k.Create(func(self *thread.Thread, arg any) any {
		n, err := w.Write(payload)
		if err != nil {
			t.Errorf("Write: %v", err)
		}
		if n != len(payload) {
			t.Errorf("Write = %d, want %d", n, len(payload))
		}
		close(writeDone)
		return nil
	}, nil, 4096, thread.Fixed(2), thread.Detached, nil)

	for i := 0; i < 64; i++ {
		k.Yield()
		select {
		case <-writeDone:
		default:
			continue
		}
		select {
		case <-readDone:
		default:
			continue
		}
		break
	}

	select {
	case <-writeDone:
	default:
		t.Fatalf("writer never completed")
	}

	var got []byte
	select {
	case got = <-readDone:
	default:
		t.Fatalf("reader never completed")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-tripped %d bytes, want %d matching payload", len(got), len(payload))
	}

	if _, err := k.Join(readerHandle); err != nil {
		t.Fatalf("Join(reader): %v", err)
	}
}

// TestPipeReadReturnsEOFAfterWriterCloses covers spec.md-style pipe EOF
// semantics: once every writer has gone, a blocked reader wakes with
// (0, nil) instead of hanging forever.
func TestPipeReadReturnsEOFAfterWriterCloses(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	parent := newTestParent()
	r, w := NewEndpoints(k, parent)

	done := make(chan struct {
		n   int
		err error
	}, 1)
	k.Create(func(self *thread.Thread, arg any) any {
		buf := make([]byte, 16)
		n, err := r.Read(buf)
		done <- struct {
			n   int
			err error
		}{n, err}
		return nil
	}, nil, 4096, thread.Fixed(1), thread.Detached, nil)

	k.Yield() // reader blocks: nothing written, writer still open

	select {
	case <-done:
		t.Fatalf("reader completed before the writer closed")
	default:
	}

	w.Release() // drops the last writer, broadcasts dataAvailable
	k.Yield()

	select {
	case res := <-done:
		if res.n != 0 || res.err != nil {
			t.Fatalf("Read after writer close = (%d, %v), want (0, nil)", res.n, res.err)
		}
	default:
		t.Fatalf("reader never woke after writer close")
	}
}

// TestPipeWriteFailsOnceAllReadersClosed covers the write-side mirror:
// once every reader has gone, Write reports EBusy instead of blocking
// forever for room that will never be reclaimed.
func TestPipeWriteFailsOnceAllReadersClosed(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	parent := newTestParent()
	r, w := NewEndpoints(k, parent)
	r.Release()

	n, err := w.Write([]byte("x"))
	if n != 0 || err != vfs.EBusy {
		t.Fatalf("Write with no readers = (%d, %v), want (0, EBusy)", n, err)
	}
}

// TestEndpointGetdentsFails covers comment-2's carve-out: a pipe
// endpoint is a FIFO, never a directory.
func TestEndpointGetdentsFails(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	parent := newTestParent()
	r, w := NewEndpoints(k, parent)

	if _, err := r.Getdents(); err != vfs.ENotDirectory {
		t.Fatalf("ReadEndpoint.Getdents = %v, want ENotDirectory", err)
	}
	if _, err := w.Getdents(); err != vfs.ENotDirectory {
		t.Fatalf("WriteEndpoint.Getdents = %v, want ENotDirectory", err)
	}
}

// TestEndpointFstatReportsFIFOKind covers Fstat's Kind/Size fields.
func TestEndpointFstatReportsFIFOKind(t *testing.T) {
	clock := ktest.NewFakeClock(0)
	k := sched.NewKernel(sched.NewFixedPolicy(4, 1000), clock, true)
	defer k.Shutdown()
	k.Boot()

	parent := newTestParent()
	r, w := NewEndpoints(k, parent)

	var st vfs.Stat
	if err := r.Fstat(&st); err != nil {
		t.Fatalf("Fstat: %v", err)
	}
	if st.Kind != vfs.KindFIFO {
		t.Fatalf("Fstat.Kind = %v, want KindFIFO", st.Kind)
	}
	if err := w.Fstat(&st); err != nil {
		t.Fatalf("Fstat: %v", err)
	}
	if st.Kind != vfs.KindFIFO {
		t.Fatalf("Fstat.Kind = %v, want KindFIFO", st.Kind)
	}
}
