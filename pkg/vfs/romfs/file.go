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

package romfs

import "github.com/mkos/kernel/pkg/vfs"

// File is a read-only view into one ROMFS entry's bytes, tracking only
// a seek position (matching the original MemoryMappedRomFsFile, which
// keeps no other per-open state since the backing image never
// changes).
type File struct {
	vfs.FileBaseCommon
	fs    *Filesystem
	entry entry
	pos   int64
}

func (f *File) Read(buf []byte) (int, error) {
	if f.pos >= int64(f.entry.size) {
		return 0, nil
	}
	start := int64(f.entry.offset) + f.pos
	remaining := int64(f.entry.size) - f.pos
	n := int64(len(buf))
	if n > remaining {
		n = remaining
	}
	copy(buf[:n], f.fs.image[start:start+n])
	f.pos += n
	return int(n), nil
}

func (f *File) Write(buf []byte) (int, error) { return 0, vfs.EReadOnlyFilesystem }

func (f *File) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	var newPos int64
	switch whence {
	case vfs.SeekSet:
		newPos = offset
	case vfs.SeekCur:
		newPos = f.pos + offset
	case vfs.SeekEnd:
		newPos = int64(f.entry.size) + offset
	default:
		return 0, vfs.ENotSupported
	}
	if newPos < 0 {
		return 0, vfs.EOverflow
	}
	f.pos = newPos
	return newPos, nil
}

func (f *File) Fstat(out *vfs.Stat) error {
	*out = vfs.Stat{StDev: f.fs.ID(), Kind: f.entry.kind, Size: int64(f.entry.size)}
	return nil
}

func (f *File) Isatty() bool { return false }
func (f *File) Sync() error  { return nil }
func (f *File) Ioctl(cmd uint32, arg uintptr) error            { return vfs.ENotSupported }
func (f *File) Getdents() ([]vfs.Dirent, error)                { return nil, vfs.ENotDirectory }
func (f *File) Fcntl(cmd uint32, arg uintptr) (int, error)     { return 0, nil }
func (f *File) Ftruncate(size int64) error                     { return vfs.EReadOnlyFilesystem }
func (f *File) Retain() *vfs.FileHandle                        { return f.RetainAs(f) }
func (f *File) Release()                                       { f.ReleaseAs(nil) }
