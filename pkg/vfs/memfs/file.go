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

package memfs

import "github.com/mkos/kernel/pkg/vfs"

// File is an open handle onto one memfs node; several Files may share
// the same node concurrently, each with its own seek position.
type File struct {
	vfs.FileBaseCommon
	fs  *Filesystem
	key string
	pos int64
}

func (f *File) Read(buf []byte) (int, error) {
	f.fs.mu.RLock()
	defer f.fs.mu.RUnlock()
	n, ok := f.fs.nodes[f.key]
	if !ok {
		return 0, vfs.ENoSuchFile
	}
	if f.pos >= int64(len(n.data)) {
		return 0, nil
	}
	count := copy(buf, n.data[f.pos:])
	f.pos += int64(count)
	return count, nil
}

func (f *File) Write(buf []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	n, ok := f.fs.nodes[f.key]
	if !ok {
		return 0, vfs.ENoSuchFile
	}
	end := f.pos + int64(len(buf))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[f.pos:end], buf)
	f.pos = end
	return len(buf), nil
}

func (f *File) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	f.fs.mu.RLock()
	size := int64(len(f.fs.nodes[f.key].data))
	f.fs.mu.RUnlock()

	var newPos int64
	switch whence {
	case vfs.SeekSet:
		newPos = offset
	case vfs.SeekCur:
		newPos = f.pos + offset
	case vfs.SeekEnd:
		newPos = size + offset
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
	f.fs.mu.RLock()
	defer f.fs.mu.RUnlock()
	n, ok := f.fs.nodes[f.key]
	if !ok {
		return vfs.ENoSuchFile
	}
	*out = vfs.Stat{StDev: f.fs.ID(), Kind: n.kind, Size: int64(len(n.data))}
	return nil
}

func (f *File) Ftruncate(size int64) error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	n, ok := f.fs.nodes[f.key]
	if !ok {
		return vfs.ENoSuchFile
	}
	if size < 0 {
		return vfs.EOverflow
	}
	if int64(len(n.data)) == size {
		return nil
	}
	grown := make([]byte, size)
	copy(grown, n.data)
	n.data = grown
	return nil
}

func (f *File) Isatty() bool { return false }
func (f *File) Sync() error  { return nil }
func (f *File) Ioctl(cmd uint32, arg uintptr) error        { return vfs.ENotSupported }
func (f *File) Getdents() ([]vfs.Dirent, error)            { return nil, vfs.ENotDirectory }
func (f *File) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }
func (f *File) Retain() *vfs.FileHandle                    { return f.RetainAs(f) }
func (f *File) Release()                                   { f.ReleaseAs(nil) }
