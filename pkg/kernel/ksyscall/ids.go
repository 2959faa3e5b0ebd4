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

// Package ksyscall is the syscall dispatcher of spec.md §4.4/§6: it
// reads a small-integer syscall id and up to four machine-word
// arguments, validates every pointer/string argument against the
// calling process's MPU configuration, performs the requested
// VFS/thread operation, and returns a single machine word (negative
// values in the POSIX-errno range signal failure).
package ksyscall

// ID enumerates the syscall surface spec.md §6 requires the core to
// implement.
type ID int

const (
	SysExit ID = iota
	SysGetpid
	SysGetppid
	SysWaitpid
	SysSpawn

	SysOpen
	SysClose
	SysRead
	SysWrite
	SysLseek
	SysFstat
	SysStat
	SysLstat
	SysUnlink
	SysRename
	SysMkdir
	SysRmdir
	SysIoctl
	SysFcntl
	SysFtruncate
	SysGetdents
	SysIsatty
	SysDup
	SysReadlink

	SysClockGettime
	SysNanosleep
)
