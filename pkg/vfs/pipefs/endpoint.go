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

package pipefs

import "github.com/mkos/kernel/pkg/vfs"

// ReadEndpoint is the read-only FileBase handed back to fd 0 of a
// pipe(2)-style call.
type ReadEndpoint struct {
	vfs.FileBaseCommon
	pipe *Pipe
}

func (e *ReadEndpoint) Read(buf []byte) (int, error)  { return e.pipe.read(buf) }
func (e *ReadEndpoint) Write(buf []byte) (int, error) { return 0, vfs.ENotSupported }
func (e *ReadEndpoint) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	return 0, vfs.ENotSupported
}
func (e *ReadEndpoint) Fstat(out *vfs.Stat) error {
	*out = vfs.Stat{StDev: e.Parent.ID(), Kind: vfs.KindFIFO, Size: int64(e.pipe.size)}
	return nil
}
func (e *ReadEndpoint) Isatty() bool { return false }
func (e *ReadEndpoint) Sync() error  { return nil }
func (e *ReadEndpoint) Ioctl(cmd uint32, arg uintptr) error        { return vfs.ENotSupported }
func (e *ReadEndpoint) Getdents() ([]vfs.Dirent, error)            { return nil, vfs.ENotDirectory }
func (e *ReadEndpoint) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }
func (e *ReadEndpoint) Ftruncate(size int64) error                 { return vfs.ENotSupported }
func (e *ReadEndpoint) Retain() *vfs.FileHandle                    { return e.RetainAs(e) }
func (e *ReadEndpoint) Release()                                   { e.ReleaseAs(e.pipe.closeReader) }

// WriteEndpoint is the write-only FileBase handed back to fd 1 of a
// pipe(2)-style call.
type WriteEndpoint struct {
	vfs.FileBaseCommon
	pipe *Pipe
}

func (e *WriteEndpoint) Read(buf []byte) (int, error)  { return 0, vfs.ENotSupported }
func (e *WriteEndpoint) Write(buf []byte) (int, error) { return e.pipe.write(buf) }
func (e *WriteEndpoint) Lseek(offset int64, whence vfs.Whence) (int64, error) {
	return 0, vfs.ENotSupported
}
func (e *WriteEndpoint) Fstat(out *vfs.Stat) error {
	*out = vfs.Stat{StDev: e.Parent.ID(), Kind: vfs.KindFIFO, Size: int64(e.pipe.size)}
	return nil
}
func (e *WriteEndpoint) Isatty() bool { return false }
func (e *WriteEndpoint) Sync() error  { return nil }
func (e *WriteEndpoint) Ioctl(cmd uint32, arg uintptr) error        { return vfs.ENotSupported }
func (e *WriteEndpoint) Getdents() ([]vfs.Dirent, error)            { return nil, vfs.ENotDirectory }
func (e *WriteEndpoint) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }
func (e *WriteEndpoint) Ftruncate(size int64) error                 { return vfs.ENotSupported }
func (e *WriteEndpoint) Retain() *vfs.FileHandle                    { return e.RetainAs(e) }
func (e *WriteEndpoint) Release()                                   { e.ReleaseAs(e.pipe.closeWriter) }
