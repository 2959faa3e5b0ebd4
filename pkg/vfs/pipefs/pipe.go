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

// Package pipefs is an in-memory pipe, supplementing the core VFS
// package from the original miosix Pipe (miosix/filesystem/pipe). The
// original aliases a single FileBase to both ends and infers "the other
// end closed" from its own reference count reaching a magic value of
// three; this port resolves that §9 Open Question with explicit reader
// and writer endpoint counts instead; see DESIGN.md.
package pipefs

import (
	"github.com/mkos/kernel/pkg/kernel/ksync"
	"github.com/mkos/kernel/pkg/vfs"
)

const defaultCapacity = 256

// Pipe is the shared ring buffer behind a pair of Endpoint FileBases.
type Pipe struct {
	sched          ksync.Scheduler
	m              *ksync.Mutex
	dataAvailable  ksync.ConditionVariable
	spaceAvailable ksync.ConditionVariable

	buf      []byte
	put, get int
	size     int
	readers  int
	writers  int
}

// New builds a pipe with both endpoints open, ready to hand one
// *ReadEndpoint and one *WriteEndpoint to the spawning syscall.
func New(sched ksync.Scheduler) *Pipe {
	return &Pipe{
		sched:   sched,
		m:       ksync.NewMutex(false),
		buf:     make([]byte, defaultCapacity),
		readers: 1,
		writers: 1,
	}
}

// NewEndpoints returns a pipe's read and write FileBase endpoints,
// both already accounted for in Pipe's endpoint counts.
func NewEndpoints(sched ksync.Scheduler, parent vfs.FilesystemBase) (*ReadEndpoint, *WriteEndpoint) {
	p := New(sched)
	r := &ReadEndpoint{pipe: p}
	r.Init(parent)
	w := &WriteEndpoint{pipe: p}
	w.Init(parent)
	return r, w
}

func (p *Pipe) closeReader() {
	p.m.Lock(p.sched)
	p.readers--
	noMoreReaders := p.readers == 0
	p.m.Unlock(p.sched)
	if noMoreReaders {
		p.spaceAvailable.Broadcast(p.sched)
	}
}

func (p *Pipe) closeWriter() {
	p.m.Lock(p.sched)
	p.writers--
	noMoreWriters := p.writers == 0
	p.m.Unlock(p.sched)
	if noMoreWriters {
		p.dataAvailable.Broadcast(p.sched)
	}
}

// read blocks until at least one byte is available or every writer has
// closed (EOF: returns 0, nil), matching read(2)'s pipe semantics.
func (p *Pipe) read(buf []byte) (int, error) {
	p.m.Lock(p.sched)
	defer p.m.Unlock(p.sched)
	for p.size == 0 {
		if p.writers == 0 {
			return 0, nil
		}
		if err := p.dataAvailable.Wait(p.sched, p.m); err != nil {
			return 0, err
		}
	}
	n := 0
	for n < len(buf) && p.size > 0 {
		buf[n] = p.buf[p.get]
		p.get = (p.get + 1) % len(p.buf)
		p.size--
		n++
	}
	p.spaceAvailable.Broadcast(p.sched)
	return n, nil
}

// write blocks until there is room, returning EPipeClosed-equivalent
// once every reader has gone (spec.md errno taxonomy has no SIGPIPE
// analogue; EBusy stands in for "broken pipe").
func (p *Pipe) write(buf []byte) (int, error) {
	p.m.Lock(p.sched)
	defer p.m.Unlock(p.sched)
	if p.readers == 0 {
		return 0, vfs.EBusy
	}
	n := 0
	for n < len(buf) {
		for p.size == len(p.buf) {
			if p.readers == 0 {
				return n, vfs.EBusy
			}
			if err := p.spaceAvailable.Wait(p.sched, p.m); err != nil {
				return n, err
			}
		}
		for n < len(buf) && p.size < len(p.buf) {
			p.buf[p.put] = buf[n]
			p.put = (p.put + 1) % len(p.buf)
			p.size++
			n++
		}
		p.dataAvailable.Broadcast(p.sched)
	}
	return n, nil
}
