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
	"time"

	"github.com/mkos/kernel/pkg/kconfig"
	"github.com/mkos/kernel/pkg/kernel/mpu"
	"github.com/mkos/kernel/pkg/kernel/sched"
	"github.com/mkos/kernel/pkg/kernel/thread"
	"github.com/mkos/kernel/pkg/vfs"
)

// Scheduler is the subset of *sched.Kernel the dispatcher needs; kept
// as an interface so tests can supply a fake without a real Kernel.
type Scheduler interface {
	Create(entry thread.Entry, arg any, stackSize int, priority thread.Priority, options thread.Options, proc thread.ProcessRef) thread.Handle
	GetCurrent() *thread.Thread
	RequestTerminate(h thread.Handle)
	Sleep(durationNanos int64)
	Yield()
}

// Dispatcher is the syscall dispatch surface of spec.md §4.4, §6: it
// owns the process table (pid → procInfo), validates every pointer
// argument from the saved userspace register snapshot against the
// calling thread's Process, and performs the requested operation.
type Dispatcher struct {
	Kernel   Scheduler
	Resolver *vfs.Resolver
	Settings kconfig.Settings

	mu        debugMutex
	processes map[uint64]*procInfo
}

// NewDispatcher builds a Dispatcher bound to a running kernel and mount
// table.
func NewDispatcher(k *sched.Kernel, resolver *vfs.Resolver, settings kconfig.Settings) *Dispatcher {
	d := &Dispatcher{
		Kernel:    k,
		Resolver:  resolver,
		Settings:  settings,
		processes: make(map[uint64]*procInfo),
	}
	d.mu.Trace = settings.DebugLocks
	return d
}

// currentProcess looks up the procInfo for the thread making the
// syscall. A kernel thread (no Process) has none, so its file-I/O-class
// syscalls fail: open reports ErrBadAddress, since there is no MPU
// configuration to validate its path pointer against, and the other
// handlers report EBadFileDescriptor.
func (d *Dispatcher) currentProcess(self *thread.Thread) *procInfo {
	proc, ok := self.Process().(*mpu.Process)
	if !ok || proc == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.processes {
		if p.process == proc {
			return p
		}
	}
	return nil
}

// validateRead/validateWrite/validateCString implement spec.md §4.4's
// "for each pointer argument the kernel calls the appropriate
// within_for_* check ... and fails the call with BadAddress on
// violation".
func validateRead(p *procInfo, ptr, size uint32) bool {
	return p != nil && p.process.WithinForReading(ptr, size)
}

func validateWrite(p *procInfo, ptr, size uint32) bool {
	return p != nil && p.process.WithinForWriting(ptr, size)
}

func validateCString(p *procInfo, ptr uint32) bool {
	return p != nil && p.process.WithinForReadingCString(ptr)
}

func readCString(p *procInfo, ptr uint32) string {
	return p.process.ReadCString(ptr)
}

// Dispatch performs syscall id with up to four machine-word arguments
// on behalf of self, returning the single machine word spec.md §6
// describes (non-negative result, or negated errno on failure).
func (d *Dispatcher) Dispatch(self *thread.Thread, id ID, a0, a1, a2, a3 uint32) int64 {
	p := d.currentProcess(self)

	switch id {
	case SysExit:
		return d.sysExit(self, p, int64(int32(a0)))
	case SysGetpid:
		if p == nil {
			return -int64(vfs.EBadFileDescriptor)
		}
		return int64(p.pid)
	case SysGetppid:
		if p == nil {
			return -int64(vfs.EBadFileDescriptor)
		}
		return int64(p.parentPid)
	case SysWaitpid:
		return d.sysWaitpid(p, a0)
	case SysSpawn:
		return d.sysSpawn(p, a0, a1, a2)

	case SysOpen:
		return d.sysOpen(p, a0, vfs.OpenFlags(a1), a2)
	case SysClose:
		return d.sysClose(p, a0)
	case SysRead:
		return d.sysRead(p, a0, a1, a2)
	case SysWrite:
		return d.sysWrite(p, a0, a1, a2)
	case SysLseek:
		return d.sysLseek(p, a0, int64(int32(a1)), vfs.Whence(a2))
	case SysFstat:
		return d.sysFstat(p, a0, a1)
	case SysIoctl:
		return d.sysIoctl(p, a0, a1, a2)
	case SysDup:
		return d.sysDup(p, a0)
	case SysFtruncate:
		return d.sysFtruncate(p, a0, int64(a1))
	case SysFcntl:
		return d.sysFcntl(p, a0, a1, a2)
	case SysGetdents:
		return d.sysGetdents(p, a0, a1, a2)
	case SysIsatty:
		return d.sysIsatty(p, a0)

	case SysUnlink, SysRename, SysMkdir, SysRmdir, SysStat, SysLstat, SysReadlink:
		return d.sysPathOp(p, id, a0, a1, a2)

	case SysClockGettime:
		return d.sysClockGettime(p, a0)
	case SysNanosleep:
		return d.sysNanosleep(self, a0)

	default:
		return -int64(vfs.ENotSupported)
	}
}

func (d *Dispatcher) sysExit(self *thread.Thread, p *procInfo, code int64) int64 {
	if p != nil {
		p.markExited(code)
		p.fds.CloseAll()
		d.mu.Lock()
		delete(d.processes, p.pid)
		d.mu.Unlock()
	}
	d.Kernel.RequestTerminate(thread.HandleOf(self))
	return 0
}

func (d *Dispatcher) sysWaitpid(p *procInfo, pid uint32) int64 {
	d.mu.Lock()
	child, ok := d.processes[uint64(pid)]
	d.mu.Unlock()
	if !ok {
		return -int64(vfs.ENoSuchFile)
	}
	ch, already, code := child.waitChannel()
	if already {
		return code
	}
	<-ch
	return child.exitCode
}

func (d *Dispatcher) sysClockGettime(p *procInfo, outPtr uint32) int64 {
	if !validateWrite(p, outPtr, 16) {
		return -int64(ErrBadAddress)
	}
	now := time.Now().UnixNano()
	buf := make([]byte, 16)
	putInt64(buf[0:8], now/1_000_000_000)
	putInt64(buf[8:16], now%1_000_000_000)
	p.process.WriteAt(outPtr, buf)
	return 0
}

func (d *Dispatcher) sysNanosleep(self *thread.Thread, nanos uint32) int64 {
	dur := int64(nanos)
	if dur < kconfig.MinSleepNanos {
		dur = kconfig.MinSleepNanos
	}
	d.Kernel.Sleep(dur)
	return 0
}

func putInt64(b []byte, v int64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
