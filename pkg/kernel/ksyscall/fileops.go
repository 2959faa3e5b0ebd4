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
	"sync/atomic"

	"github.com/mkos/kernel/pkg/kconfig"
	"github.com/mkos/kernel/pkg/kernel/mpu"
	"github.com/mkos/kernel/pkg/kernel/thread"
	"github.com/mkos/kernel/pkg/vfs"
)

var nextPid uint64

// sysSpawn implements spec.md §6 spawn: imgPtr/imgSize name a
// relocatable process image already staged in the caller's data
// region, dataSize is the new process's data-region size. The new
// process's main thread starts detached with no joinable handle of its
// own; the parent observes its exit only through waitpid.
func (d *Dispatcher) sysSpawn(p *procInfo, imgPtr, imgSize, dataSize uint32) int64 {
	if !validateRead(p, imgPtr, imgSize) {
		return -int64(ErrBadAddress)
	}
	code := p.process.ReadAt(imgPtr, imgSize)
	if code == nil {
		return -int64(ErrBadAddress)
	}
	imgCopy := make([]byte, len(code))
	copy(imgCopy, code)

	child, err := mpu.NewProcess(mpu.ProcessImage{Code: imgCopy, DataSize: dataSize})
	if err != nil {
		return -int64(vfs.ENotSupported)
	}

	fds := vfs.NewFileDescriptorTable(d.Settings.MaxOpenFiles)
	consoleParent := d.rootFilesystem()
	if consoleParent == nil {
		consoleParent = vfs.NewMountPointFilesystem()
	}
	stdin := vfs.NewConsoleFile(consoleParent)
	fds.Install(vfs.FDStdin, stdin.Retain())
	fds.Install(vfs.FDStdout, stdin.Retain())
	fds.Install(vfs.FDStderr, stdin.Retain())
	child.FDTable = fds

	pid := atomic.AddUint64(&nextPid, 1)
	parentPid := uint64(0)
	if p != nil {
		parentPid = p.pid
	}

	info := &procInfo{
		pid:       pid,
		parentPid: parentPid,
		process:   child,
		fds:       fds,
		cwd:       "/",
	}

	h := d.Kernel.Create(childEntry, child, int(dataSize), d.defaultPriority(), thread.Detached, child)
	info.mainThread = h

	d.mu.Lock()
	d.processes[pid] = info
	d.mu.Unlock()

	return int64(pid)
}

// childEntry is the Entry a spawned process's main thread begins
// executing at. The real architecture backend resumes the saved
// register context captured in the process image and never returns
// here; the hosted build has no machine code to execute, so it returns
// nil at once.
func childEntry(t *thread.Thread, arg any) any {
	return nil
}

// defaultPriority picks a spawned process's starting priority for
// whichever scheduling policy kconfig selected, placing it at the
// middle of the fixed-priority range or at a neutral control/EDF
// default.
func (d *Dispatcher) defaultPriority() thread.Priority {
	switch d.Settings.Scheduler {
	case kconfig.SchedulerControl:
		return thread.Control(d.Settings.PriorityMax/2, thread.RealtimeNone)
	case kconfig.SchedulerEDF:
		return thread.EDF(0)
	default:
		return thread.Fixed(d.Settings.PriorityMax / 2)
	}
}

func (d *Dispatcher) rootFilesystem() vfs.FilesystemBase {
	if d.Resolver == nil || d.Resolver.Mounts == nil {
		return nil
	}
	fs, _, ok := d.Resolver.Mounts.Resolve("/")
	if !ok {
		return nil
	}
	return fs
}

func (d *Dispatcher) sysOpen(p *procInfo, pathPtr uint32, flags vfs.OpenFlags, mode uint32) int64 {
	if !validateCString(p, pathPtr) {
		return -int64(ErrBadAddress)
	}
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	path := readCString(p, pathPtr)
	res, err := d.Resolver.Resolve(path, true)
	if err != nil {
		return toMachineWord(0, err)
	}
	file, err := res.FS.Open(res.Name, flags, mode)
	if err != nil {
		return toMachineWord(0, err)
	}
	fd := p.fds.Alloc(file.Retain())
	if fd < 0 {
		file.Release()
		return -int64(vfs.EBusy)
	}
	return int64(fd)
}

func (d *Dispatcher) sysClose(p *procInfo, fd uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	return toMachineWord(0, p.fds.Close(int(fd)))
}

func (d *Dispatcher) sysRead(p *procInfo, fd, bufPtr, count uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	if !validateWrite(p, bufPtr, count) {
		return -int64(ErrBadAddress)
	}
	buf := make([]byte, count)
	n, err := h.File().Read(buf)
	if n > 0 {
		p.process.WriteAt(bufPtr, buf[:n])
	}
	return toMachineWord(int64(n), err)
}

func (d *Dispatcher) sysWrite(p *procInfo, fd, bufPtr, count uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	if !validateRead(p, bufPtr, count) {
		return -int64(ErrBadAddress)
	}
	buf := p.process.ReadAt(bufPtr, count)
	n, err := h.File().Write(buf)
	return toMachineWord(int64(n), err)
}

func (d *Dispatcher) sysLseek(p *procInfo, fd uint32, offset int64, whence vfs.Whence) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	pos, err := h.File().Lseek(offset, whence)
	return toMachineWord(pos, err)
}

func (d *Dispatcher) sysFstat(p *procInfo, fd, outPtr uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	if !validateWrite(p, outPtr, 32) {
		return -int64(ErrBadAddress)
	}
	var st vfs.Stat
	if err := h.File().Fstat(&st); err != nil {
		return toMachineWord(0, err)
	}
	p.process.WriteAt(outPtr, encodeStat(st))
	return 0
}

func (d *Dispatcher) sysIoctl(p *procInfo, fd, cmd, arg uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	return toMachineWord(0, h.File().Ioctl(cmd, uintptr(arg)))
}

func (d *Dispatcher) sysDup(p *procInfo, fd uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	newFd, err := p.fds.Dup(int(fd))
	return toMachineWord(int64(newFd), err)
}

func (d *Dispatcher) sysFtruncate(p *procInfo, fd uint32, size int64) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	return toMachineWord(0, h.File().Ftruncate(size))
}

func (d *Dispatcher) sysFcntl(p *procInfo, fd, cmd, arg uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	result, err := h.File().Fcntl(cmd, uintptr(arg))
	return toMachineWord(int64(result), err)
}

// sysIsatty implements spec.md §6 isatty: 1 if fd refers to a terminal
// device, 0 otherwise. FileBase.Isatty has no error case of its own; a
// bad fd is the only failure.
func (d *Dispatcher) sysIsatty(p *procInfo, fd uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	if h.File().Isatty() {
		return 1
	}
	return 0
}

// sysGetdents implements spec.md §6 getdents: fills bufPtr with as
// many encoded Dirent entries as fit in bufSize bytes and returns the
// number of bytes written. Each entry is Ino (8 bytes LE) + Kind (1
// byte) + name length (1 byte) + the name itself, matching encodeStat's
// fixed-width, little-endian house style for kernel/userspace ABI
// structures.
func (d *Dispatcher) sysGetdents(p *procInfo, fd, bufPtr, bufSize uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	h := p.fds.Get(int(fd))
	if h == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	if !validateWrite(p, bufPtr, bufSize) {
		return -int64(ErrBadAddress)
	}
	dirents, err := h.File().Getdents()
	if err != nil {
		return toMachineWord(0, err)
	}
	buf := encodeDirents(dirents, bufSize)
	if len(buf) > 0 {
		p.process.WriteAt(bufPtr, buf)
	}
	return int64(len(buf))
}

// encodeDirents packs as many whole entries as fit within maxLen bytes,
// truncating names to the 255 bytes the 1-byte length prefix can
// address.
func encodeDirents(dirents []vfs.Dirent, maxLen uint32) []byte {
	var buf []byte
	for _, de := range dirents {
		name := de.Name
		if len(name) > 255 {
			name = name[:255]
		}
		entry := make([]byte, 10+len(name))
		putInt64(entry[0:8], int64(de.Ino))
		entry[8] = byte(de.Kind)
		entry[9] = byte(len(name))
		copy(entry[10:], name)
		if uint32(len(buf)+len(entry)) > maxLen {
			break
		}
		buf = append(buf, entry...)
	}
	return buf
}

// sysPathOp dispatches the syscalls that take one or two path-string
// arguments and no file descriptor (spec.md §6 unlink/rename/mkdir/
// rmdir/stat/lstat/readlink).
func (d *Dispatcher) sysPathOp(p *procInfo, id ID, a0, a1, a2 uint32) int64 {
	if p == nil {
		return -int64(vfs.EBadFileDescriptor)
	}
	if !validateCString(p, a0) {
		return -int64(ErrBadAddress)
	}
	path := readCString(p, a0)

	switch id {
	case SysUnlink:
		res, err := d.Resolver.Resolve(path, false)
		if err != nil {
			return toMachineWord(0, err)
		}
		return toMachineWord(0, res.FS.Unlink(res.Name))

	case SysMkdir:
		res, err := d.Resolver.Resolve(path, false)
		if err != nil {
			return toMachineWord(0, err)
		}
		return toMachineWord(0, res.FS.Mkdir(res.Name, a1))

	case SysRmdir:
		res, err := d.Resolver.Resolve(path, false)
		if err != nil {
			return toMachineWord(0, err)
		}
		return toMachineWord(0, res.FS.Rmdir(res.Name))

	case SysRename:
		if !validateCString(p, a1) {
			return -int64(ErrBadAddress)
		}
		newPath := readCString(p, a1)
		res, err := d.Resolver.Resolve(path, false)
		if err != nil {
			return toMachineWord(0, err)
		}
		newRes, err := d.Resolver.Resolve(newPath, false)
		if err != nil {
			return toMachineWord(0, err)
		}
		if newRes.FS != res.FS {
			return -int64(vfs.ENotSupported)
		}
		return toMachineWord(0, res.FS.Rename(res.Name, newRes.Name))

	case SysStat, SysLstat:
		res, err := d.Resolver.Resolve(path, id == SysStat)
		if err != nil {
			return toMachineWord(0, err)
		}
		if !validateWrite(p, a1, 32) {
			return -int64(ErrBadAddress)
		}
		var st vfs.Stat
		if err := res.FS.Lstat(res.Name, &st); err != nil {
			return toMachineWord(0, err)
		}
		p.process.WriteAt(a1, encodeStat(st))
		return 0

	case SysReadlink:
		res, err := d.Resolver.Resolve(path, false)
		if err != nil {
			return toMachineWord(0, err)
		}
		target, err := res.FS.Readlink(res.Name)
		if err != nil {
			return toMachineWord(0, err)
		}
		if !validateWrite(p, a1, a2) {
			return -int64(ErrBadAddress)
		}
		buf := []byte(target)
		if uint32(len(buf)) > a2 {
			buf = buf[:a2]
		}
		p.process.WriteAt(a1, buf)
		return int64(len(buf))
	}
	return -int64(vfs.ENotSupported)
}

// encodeStat packs a Stat into the fixed 32-byte layout the userspace
// ABI shares with the kernel (spec.md §7 Stat fields, little-endian).
func encodeStat(st vfs.Stat) []byte {
	buf := make([]byte, 32)
	putInt64(buf[0:8], int64(st.StDev))
	putInt64(buf[8:16], int64(st.StIno))
	putInt64(buf[16:24], st.Size)
	buf[24] = byte(st.Kind)
	return buf
}
