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

package s3fs

import "github.com/mkos/kernel/pkg/vfs"

// File buffers a whole S3 object in memory: read opens fetch the full
// body up front (fs.Open), write opens accumulate into data and flush
// once on Sync/Release, since S3 has no partial-object write operation
// to speak of.
type File struct {
	vfs.FileBaseCommon
	fs      *Filesystem
	key     string
	data    []byte
	pos     int64
	writing bool
	dirty   bool
}

func (f *File) Read(buf []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, nil
	}
	n := copy(buf, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *File) Write(buf []byte) (int, error) {
	end := f.pos + int64(len(buf))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.pos:end], buf)
	f.pos = end
	f.dirty = true
	return len(buf), nil
}

func (f *File) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	var newPos int64
	switch whence {
	case vfs.SeekSet:
		newPos = offset
	case vfs.SeekCur:
		newPos = f.pos + offset
	case vfs.SeekEnd:
		newPos = int64(len(f.data)) + offset
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
	*out = vfs.Stat{StDev: f.fs.ID(), Kind: vfs.KindRegular, Size: int64(len(f.data))}
	return nil
}

func (f *File) Ftruncate(size int64) error {
	if size < 0 {
		return vfs.EOverflow
	}
	grown := make([]byte, size)
	copy(grown, f.data)
	f.data = grown
	f.dirty = true
	return nil
}

// Sync flushes a dirty write-opened file's buffered bytes up as one
// PutObject, since S3 has no append/patch operation.
func (f *File) Sync() error {
	if !f.dirty {
		return nil
	}
	if err := f.fs.putObject(f.key, f.data); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

func (f *File) Isatty() bool { return false }
func (f *File) Ioctl(cmd uint32, arg uintptr) error        { return vfs.ENotSupported }
func (f *File) Getdents() ([]vfs.Dirent, error)            { return nil, vfs.ENotDirectory }
func (f *File) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }

func (f *File) Retain() *vfs.FileHandle { return f.RetainAs(f) }
func (f *File) Release()                { f.ReleaseAs(func() { f.Sync() }) }
