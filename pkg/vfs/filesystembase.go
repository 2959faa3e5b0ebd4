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

package vfs

import (
	"sync/atomic"

	"github.com/mkos/kernel/pkg/kernel/intrusive"
)

// FilesystemBase is the contract every concrete filesystem
// implementation satisfies (spec.md §4.5): romfs, devfs, pipefs, memfs,
// hostfs, s3fs, and the zero-file mountpointfs below. Paths passed in
// are always relative to this filesystem's own root; the mount table
// and path resolver have already stripped the mountpoint prefix.
type FilesystemBase interface {
	Open(name string, flags OpenFlags, mode uint32) (FileBase, error)
	Lstat(name string, out *Stat) error
	Unlink(name string) error
	Rename(oldname, newname string) error
	Mkdir(name string, mode uint32) error
	Rmdir(name string) error
	Readlink(name string) (string, error)
	SupportsSymlinks() bool

	// AreAllFilesClosed reports whether it is safe to unmount.
	AreAllFilesClosed() bool

	// ID returns this filesystem's 16-bit id, issued once at
	// construction time and used to populate Stat.StDev.
	ID() uint16

	// noteOpen/noteClose are unexported so only FileBaseCommon (in the
	// same package) can drive the open-file counter; concrete
	// filesystems never call these directly.
	noteOpen()
	noteClose()
}

var nextFSID uint32 = 1

// NextFilesystemID hands out the monotonically increasing 16-bit
// filesystem id spec.md §4.5 requires ("a unique 16-bit
// filesystem-id issued monotonically by FileDescriptorTable::get_fs_id").
// Despite the name in the original source, this package issues it at
// filesystem-construction time rather than through the fd table, since
// nothing about the id depends on any process's table.
func NextFilesystemID() uint16 {
	return uint16(atomic.AddUint32(&nextFSID, 1))
}

// FilesystemBaseCommon is embedded by value in concrete filesystems: it
// owns the id and the open-file counter that AreAllFilesClosed and the
// unmount precondition check.
type FilesystemBaseCommon struct {
	id       uint16
	refCount intrusive.RefCounted // reused as a plain atomic open-file counter
}

// InitFilesystem assigns this filesystem its id. Call once from the
// concrete constructor.
func (f *FilesystemBaseCommon) InitFilesystem() {
	f.id = NextFilesystemID()
	f.refCount.Init(0)
}

func (f *FilesystemBaseCommon) ID() uint16 { return f.id }

func (f *FilesystemBaseCommon) noteOpen()  { f.refCount.Retain() }
func (f *FilesystemBaseCommon) noteClose() { f.refCount.Release(nil) }

// AreAllFilesClosed implements the unmount precondition of spec.md
// §4.5.
func (f *FilesystemBaseCommon) AreAllFilesClosed() bool { return f.refCount.Count() == 0 }
