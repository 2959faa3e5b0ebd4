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

// Package devfs is a minimal device filesystem exposing /dev/null,
// /dev/zero, and /dev/console, supplementing the core VFS package with
// the fixed device-file set the original miosix DevFs registers by
// name (spec.md §4.5 FilesystemBase, supplemented from
// miosix/filesystem/devfs).
package devfs

import (
	"sync"

	"github.com/mkos/kernel/pkg/vfs"
)

// Filesystem is a read-only FilesystemBase: its file set is the three
// device files registered at construction plus any added later through
// Register; files cannot be created through the filesystem calls
// (mkdir/unlink/rename all fail with EReadOnlyFilesystem).
type Filesystem struct {
	vfs.FilesystemBaseCommon

	mu    sync.Mutex
	files map[string]func(parent vfs.FilesystemBase) vfs.FileBase
}

// New builds a devfs instance with the standard null/zero/console
// device set already registered.
func New() *Filesystem {
	fs := &Filesystem{files: make(map[string]func(vfs.FilesystemBase) vfs.FileBase)}
	fs.InitFilesystem()
	fs.Register("null", func(parent vfs.FilesystemBase) vfs.FileBase { return NewNullFile(parent) })
	fs.Register("zero", func(parent vfs.FilesystemBase) vfs.FileBase { return NewZeroFile(parent) })
	fs.Register("console", func(parent vfs.FilesystemBase) vfs.FileBase { return vfs.NewConsoleFile(parent) })
	return fs
}

// Register adds a named device-file constructor, mirroring the
// original DevFs's per-device registration call made once at boot.
func (fs *Filesystem) Register(name string, ctor func(parent vfs.FilesystemBase) vfs.FileBase) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[name] = ctor
}

func trimLeadingSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}

func (fs *Filesystem) Open(name string, flags vfs.OpenFlags, mode uint32) (vfs.FileBase, error) {
	fs.mu.Lock()
	ctor, ok := fs.files[trimLeadingSlash(name)]
	fs.mu.Unlock()
	if !ok {
		return nil, vfs.ENoSuchFile
	}
	return ctor(fs), nil
}

func (fs *Filesystem) Lstat(name string, out *vfs.Stat) error {
	if name == "/" || name == "" {
		*out = vfs.Stat{StDev: fs.ID(), Kind: vfs.KindDirectory}
		return nil
	}
	fs.mu.Lock()
	_, ok := fs.files[trimLeadingSlash(name)]
	fs.mu.Unlock()
	if !ok {
		return vfs.ENoSuchFile
	}
	*out = vfs.Stat{StDev: fs.ID(), Kind: vfs.KindCharDevice}
	return nil
}

func (fs *Filesystem) Unlink(name string) error             { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Rename(oldname, newname string) error { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Mkdir(name string, mode uint32) error { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Rmdir(name string) error              { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Readlink(name string) (string, error) { return "", vfs.ENotSupported }
func (fs *Filesystem) SupportsSymlinks() bool                { return false }
