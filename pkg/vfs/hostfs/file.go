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

package hostfs

import (
	"errors"
	"io"
	"os"

	"github.com/mkos/kernel/pkg/vfs"
)

// File wraps a real *os.File, translating errors to vfs.Errno at every
// call site (spec.md §4.5's FileBase contract speaks Errno, not the Go
// standard library's error values).
type File struct {
	vfs.FileBaseCommon
	fs *Filesystem
	fh *os.File
}

func (f *File) Read(buf []byte) (int, error) {
	n, err := f.fh.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, vfs.FromUnixErr(err)
	}
	return n, nil
}

func (f *File) Write(buf []byte) (int, error) {
	n, err := f.fh.Write(buf)
	return n, vfs.FromUnixErr(err)
}

func (f *File) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	pos, err := f.fh.Seek(offset, int(whence))
	return pos, vfs.FromUnixErr(err)
}

func (f *File) Fstat(out *vfs.Stat) error {
	fi, err := f.fh.Stat()
	if err != nil {
		return vfs.FromUnixErr(err)
	}
	kind := vfs.KindRegular
	if fi.IsDir() {
		kind = vfs.KindDirectory
	}
	*out = vfs.Stat{Kind: kind, Size: fi.Size(), StDev: f.fs.ID(), ModTime: fi.ModTime()}
	return nil
}

func (f *File) Ftruncate(size int64) error {
	return vfs.FromUnixErr(f.fh.Truncate(size))
}

func (f *File) Isatty() bool { return false }
func (f *File) Sync() error  { return vfs.FromUnixErr(f.fh.Sync()) }
func (f *File) Ioctl(cmd uint32, arg uintptr) error { return vfs.ENotSupported }

// Getdents lists the backing directory's entries, for a File opened on
// a real host directory (hostfs.Open happily opens one); os.File.ReadDir
// itself returns ENOTDIR, translated the same as every other FromUnixErr
// call site, when fh isn't a directory.
func (f *File) Getdents() ([]vfs.Dirent, error) {
	entries, err := f.fh.ReadDir(-1)
	if err != nil {
		return nil, vfs.FromUnixErr(err)
	}
	dirents := make([]vfs.Dirent, 0, len(entries))
	for _, e := range entries {
		kind := vfs.KindRegular
		if e.IsDir() {
			kind = vfs.KindDirectory
		} else if e.Type()&os.ModeSymlink != 0 {
			kind = vfs.KindSymlink
		}
		dirents = append(dirents, vfs.Dirent{Name: e.Name(), Kind: kind})
	}
	return dirents, nil
}

func (f *File) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }

func (f *File) Retain() *vfs.FileHandle { return f.RetainAs(f) }
func (f *File) Release()                { f.ReleaseAs(func() { f.fh.Close() }) }
