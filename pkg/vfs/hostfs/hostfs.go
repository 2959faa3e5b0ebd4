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

// Package hostfs is a FilesystemBase backed by a real directory on the
// host running the simulator, for off-target testing without flashing
// hardware. Adapted from the teacher's blobserver/localdisk: a rooted
// directory whose os.* calls this package wraps and translates to
// vfs.Errno, instead of localdisk's blob-ref-sharded directory layout.
package hostfs

import (
	"os"
	"path/filepath"

	"github.com/mkos/kernel/pkg/vfs"
)

// Filesystem roots every path at a real host directory, which must
// already exist (matching localdisk.New's precondition).
type Filesystem struct {
	vfs.FilesystemBaseCommon
	root string
}

// New builds a hostfs rooted at root, which must already exist and be
// a directory.
func New(root string) (*Filesystem, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, vfs.FromUnixErr(err)
	}
	if !fi.IsDir() {
		return nil, vfs.ENotDirectory
	}
	fs := &Filesystem{root: root}
	fs.InitFilesystem()
	return fs, nil
}

func (fs *Filesystem) hostPath(name string) string {
	return filepath.Join(fs.root, filepath.Clean("/"+name))
}

func openFlags(flags vfs.OpenFlags) int {
	var f int
	switch {
	case flags&vfs.ORdWr != 0:
		f = os.O_RDWR
	case flags&vfs.OWrOnly != 0:
		f = os.O_WRONLY
	default:
		f = os.O_RDONLY
	}
	if flags&vfs.OCreat != 0 {
		f |= os.O_CREATE
	}
	if flags&vfs.OExcl != 0 {
		f |= os.O_EXCL
	}
	if flags&vfs.OTrunc != 0 {
		f |= os.O_TRUNC
	}
	if flags&vfs.OAppend != 0 {
		f |= os.O_APPEND
	}
	return f
}

func (fs *Filesystem) Open(name string, flags vfs.OpenFlags, mode uint32) (vfs.FileBase, error) {
	fh, err := os.OpenFile(fs.hostPath(name), openFlags(flags), os.FileMode(mode))
	if err != nil {
		return nil, vfs.FromUnixErr(err)
	}
	f := &File{fs: fs, fh: fh}
	f.Init(fs)
	return f, nil
}

func (fs *Filesystem) Lstat(name string, out *vfs.Stat) error {
	fi, err := os.Lstat(fs.hostPath(name))
	if err != nil {
		return vfs.FromUnixErr(err)
	}
	kind := vfs.KindRegular
	switch {
	case fi.IsDir():
		kind = vfs.KindDirectory
	case fi.Mode()&os.ModeSymlink != 0:
		kind = vfs.KindSymlink
	}
	*out = vfs.Stat{Kind: kind, Size: fi.Size(), StDev: fs.ID(), ModTime: fi.ModTime()}
	return nil
}

func (fs *Filesystem) Unlink(name string) error {
	return vfs.FromUnixErr(os.Remove(fs.hostPath(name)))
}

func (fs *Filesystem) Rename(oldname, newname string) error {
	return vfs.FromUnixErr(os.Rename(fs.hostPath(oldname), fs.hostPath(newname)))
}

func (fs *Filesystem) Mkdir(name string, mode uint32) error {
	return vfs.FromUnixErr(os.Mkdir(fs.hostPath(name), os.FileMode(mode)))
}

func (fs *Filesystem) Rmdir(name string) error {
	return vfs.FromUnixErr(os.Remove(fs.hostPath(name)))
}

func (fs *Filesystem) Readlink(name string) (string, error) {
	target, err := os.Readlink(fs.hostPath(name))
	if err != nil {
		return "", vfs.FromUnixErr(err)
	}
	return target, nil
}

func (fs *Filesystem) SupportsSymlinks() bool { return true }
