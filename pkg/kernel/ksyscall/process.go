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

package ksyscall

import (
	"sync"

	"github.com/mkos/kernel/pkg/kernel/mpu"
	"github.com/mkos/kernel/pkg/kernel/thread"
	"github.com/mkos/kernel/pkg/vfs"
)

// procInfo is the dispatcher's bookkeeping for one userspace process
// (spec.md §3 Process: "threads: set of Threads... fd_table:
// reference"), layered on top of mpu.Process rather than inside it, so
// pkg/kernel/mpu never needs to know about pids or the VFS.
type procInfo struct {
	pid        uint64
	parentPid  uint64
	process    *mpu.Process
	fds        *vfs.FileDescriptorTable
	cwd        string
	mainThread thread.Handle

	mu       sync.Mutex
	exited   bool
	exitCode int64
	waiters  []chan struct{}
}

func (p *procInfo) markExited(code int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return
	}
	p.exited = true
	p.exitCode = code
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil
}

func (p *procInfo) waitChannel() (<-chan struct{}, bool, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return nil, true, p.exitCode
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	return ch, false, 0
}
