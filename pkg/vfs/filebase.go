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

// Package vfs is the virtual filesystem layer of spec.md §4.5: the
// FileBase/FilesystemBase contracts concrete filesystems implement, the
// mount table, the path resolver, the per-process file-descriptor
// table, and the TerminalDevice line discipline wrapping the default
// console.
package vfs

import (
	"github.com/mkos/kernel/pkg/kernel/intrusive"
)

// OpenFlags mirrors the standard POSIX open(2) flag set named in
// spec.md §4.5.
type OpenFlags int

const (
	ORdOnly OpenFlags = 1 << iota
	OWrOnly
	ORdWr
	OCreat
	OExcl
	OAppend
	OTrunc
	ODirectory
	OSync
)

// Whence selects lseek's origin, matching io.Seeker's constants.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// Dirent is one entry returned by FileBase.Getdents.
type Dirent struct {
	Name string
	Ino  uint64
	Kind FileKind
}

// FileBase is the contract every open file satisfies (spec.md §4.5):
// ref-counted, backed by a parent filesystem it never outlives (the
// strong reference runs file→filesystem, never the reverse, keeping
// the ownership graph acyclic per §5).
type FileBase interface {
	Read(buf []byte) (n int, err error)
	Write(buf []byte) (n int, err error)
	Lseek(offset int64, whence Whence) (int64, error)
	Fstat(out *Stat) error
	Isatty() bool
	Sync() error
	Ioctl(cmd uint32, arg uintptr) error
	Getdents() ([]Dirent, error)
	Fcntl(cmd uint32, arg uintptr) (int, error)
	Ftruncate(size int64) error

	// Retain/Release implement the object's intrusive reference count
	// (spec.md §5); Release runs the close hook exactly once, when the
	// count reaches zero.
	Retain() *FileHandle
	Release()
}

// FileHandle is the intrusive strong reference a FileDescriptorTable
// slot and any duplicate (dup(2)) hold. It is a thin indirection over a
// FileBase so Retain/Release can be called without the caller needing
// to know the concrete file type.
type FileHandle struct {
	file FileBase
}

func (h *FileHandle) File() FileBase { return h.file }

// Release drops this handle's strong reference.
func (h *FileHandle) Release() {
	if h == nil {
		return
	}
	h.file.Release()
}

// FileBaseCommon is embedded by value in concrete FileBase
// implementations: it carries the intrusive refcount, the weak-by-
// convention parent filesystem pointer (strong, never reverse — see
// package doc), and the open-file counter link the parent filesystem
// decrements on close (spec.md §4.5 "tracks open-file counter").
type FileBaseCommon struct {
	intrusive.RefCounted
	Parent FilesystemBase
}

// Init registers this file with its parent's open-file counter and
// starts its reference count at 1, matching FilesystemBase.open's
// single initial owner (the caller who receives the FileBase).
func (f *FileBaseCommon) Init(parent FilesystemBase) {
	f.RefCounted.Init(1)
	f.Parent = parent
	parent.noteOpen()
}

// Retain increments the refcount and hands back a new FileHandle
// wrapping self. Concrete FileBase implementations embed
// FileBaseCommon and forward their own Retain to this one, passing
// themselves as the FileBase to wrap.
func (f *FileBaseCommon) RetainAs(self FileBase) *FileHandle {
	f.RefCounted.Retain()
	return &FileHandle{file: self}
}

// ReleaseAs drops a reference; at zero it notifies the parent
// filesystem's file_close_hook (spec.md §4.5) and, if the concrete type
// supplied one, runs its own teardown.
func (f *FileBaseCommon) ReleaseAs(onZero func()) {
	f.RefCounted.Release(func() {
		f.Parent.noteClose()
		if onZero != nil {
			onZero()
		}
	})
}
