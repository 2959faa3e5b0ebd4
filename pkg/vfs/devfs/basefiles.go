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

package devfs

import "github.com/mkos/kernel/pkg/vfs"

// NullFile discards everything written to it and returns EOF on every
// read, matching the original miosix NullFile.
type NullFile struct {
	vfs.FileBaseCommon
}

func NewNullFile(parent vfs.FilesystemBase) *NullFile {
	f := &NullFile{}
	f.Init(parent)
	return f
}

func (f *NullFile) Read(buf []byte) (int, error)  { return 0, nil }
func (f *NullFile) Write(buf []byte) (int, error) { return len(buf), nil }
func (f *NullFile) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	return 0, nil
}
func (f *NullFile) Fstat(out *vfs.Stat) error {
	*out = vfs.Stat{StDev: f.Parent.ID(), Kind: vfs.KindCharDevice}
	return nil
}
func (f *NullFile) Isatty() bool { return false }
func (f *NullFile) Sync() error  { return nil }
func (f *NullFile) Ioctl(cmd uint32, arg uintptr) error            { return vfs.ENotSupported }
func (f *NullFile) Getdents() ([]vfs.Dirent, error)                { return nil, vfs.ENotDirectory }
func (f *NullFile) Fcntl(cmd uint32, arg uintptr) (int, error)     { return 0, nil }
func (f *NullFile) Ftruncate(size int64) error                    { return vfs.ENotSupported }
func (f *NullFile) Retain() *vfs.FileHandle                       { return f.RetainAs(f) }
func (f *NullFile) Release()                                      { f.ReleaseAs(nil) }

// ZeroFile discards writes and fills every read with zero bytes,
// matching the original miosix ZeroFile.
type ZeroFile struct {
	vfs.FileBaseCommon
}

func NewZeroFile(parent vfs.FilesystemBase) *ZeroFile {
	f := &ZeroFile{}
	f.Init(parent)
	return f
}

func (f *ZeroFile) Read(buf []byte) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}
func (f *ZeroFile) Write(buf []byte) (int, error) { return len(buf), nil }
func (f *ZeroFile) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	return 0, nil
}
func (f *ZeroFile) Fstat(out *vfs.Stat) error {
	*out = vfs.Stat{StDev: f.Parent.ID(), Kind: vfs.KindCharDevice}
	return nil
}
func (f *ZeroFile) Isatty() bool { return false }
func (f *ZeroFile) Sync() error  { return nil }
func (f *ZeroFile) Ioctl(cmd uint32, arg uintptr) error        { return vfs.ENotSupported }
func (f *ZeroFile) Getdents() ([]vfs.Dirent, error)            { return nil, vfs.ENotDirectory }
func (f *ZeroFile) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }
func (f *ZeroFile) Ftruncate(size int64) error                 { return vfs.ENotSupported }
func (f *ZeroFile) Retain() *vfs.FileHandle                    { return f.RetainAs(f) }
func (f *ZeroFile) Release()                                   { f.ReleaseAs(nil) }
