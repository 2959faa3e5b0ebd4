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
	"errors"
	"sync"

	"github.com/mkos/kernel/pkg/kstrutil"
)

var (
	ErrAlreadyMounted = errors.New("vfs: mountpoint already in use")
	ErrNotMounted     = errors.New("vfs: no filesystem mounted there")
)

// MountTable maps normalized absolute mountpoint paths to the
// FilesystemBase attached there (spec.md §3 MountTable, §4.5 longest-
// prefix resolution), guarded by a reader/writer discipline: lookups
// (the hot path, once per path resolution) take the read lock; Mount
// and Unmount take the write lock. Grounded on the teacher's
// blobserver/registry.go map-plus-mutex registration pattern,
// generalized from a single global map to a per-kernel-instance table
// with prefix lookup instead of exact-type lookup.
type MountTable struct {
	mu     sync.RWMutex
	mounts map[string]FilesystemBase
}

// NewMountTable returns an empty table.
func NewMountTable() *MountTable {
	return &MountTable{mounts: make(map[string]FilesystemBase)}
}

// Mount attaches fs at the normalized absolute path.
func (t *MountTable) Mount(path string, fs FilesystemBase) error {
	path = NormalizePath(path)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.mounts[path]; exists {
		return ErrAlreadyMounted
	}
	t.mounts[path] = fs
	return nil
}

// Unmount detaches whatever is mounted at path. The caller must have
// already checked AreAllFilesClosed (spec.md §4.5); Unmount itself does
// not re-check it, mirroring the source's separation of the busy check
// from the detach operation.
func (t *MountTable) Unmount(path string) error {
	path = NormalizePath(path)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.mounts[path]; !exists {
		return ErrNotMounted
	}
	delete(t.mounts, path)
	return nil
}

// Resolve finds the longest mounted prefix of the normalized path and
// returns the filesystem handling it plus the remainder path relative
// to that filesystem's root (spec.md §4.5 step 2). The root filesystem
// ("/") must always be mounted for Resolve to ever succeed on a path
// outside any more specific mount.
func (t *MountTable) Resolve(path string) (fs FilesystemBase, remainder string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	best := ""
	for mp := range t.mounts {
		if !isPrefixMountpoint(mp, path) {
			continue
		}
		if len(mp) > len(best) {
			best = mp
		}
	}
	if best == "" {
		return nil, "", false
	}
	fs = t.mounts[best]
	remainder = cutRemainder(path, best)
	return fs, remainder, true
}

// cutRemainder splits path into the matched mountpoint and the
// filesystem-relative remainder using a StringPart (spec.md §3, §4.5
// step 2): it writes a NUL over the "/" separating the mountpoint from
// the rest of the path, reads the remainder on the far side of that cut,
// then restores the original byte, rather than building the remainder
// with a TrimPrefix-and-concatenate allocation chain.
func cutRemainder(path, mountpoint string) string {
	sep := len(mountpoint)
	if mountpoint == "/" {
		sep = 0
	}
	buf := []byte(path)
	sp := NewStringPart(buf)
	sp.CutAt(sep)
	rem := string(sp.Remainder())
	sp.End()

	if mountpoint == "/" {
		if rem == "" {
			return "/"
		}
		return "/" + rem
	}
	if rem == "" {
		return "/"
	}
	return "/" + rem
}

func isPrefixMountpoint(mp, path string) bool {
	return kstrutil.IsPathPrefix(mp, path)
}

// mountPointFilesystem is the zero-file filesystem from
// original_source/miosix/filesystem/mountpointfs (spec.md SPEC_FULL §3):
// its only role is to exist as an explicit, stat-able mount target
// directory so "mkdir then mount" has somewhere to mount over. Lstat on
// "/" itself succeeds; Mkdir fails with EReadOnlyFilesystem, and every
// other operation fails with ENoSuchFile.
type mountPointFilesystem struct {
	FilesystemBaseCommon
}

// NewMountPointFilesystem returns a filesystem with no files at all,
// used purely to occupy a mountpoint path until something is mounted
// over it.
func NewMountPointFilesystem() FilesystemBase {
	fs := &mountPointFilesystem{}
	fs.InitFilesystem()
	return fs
}

func (fs *mountPointFilesystem) Open(name string, flags OpenFlags, mode uint32) (FileBase, error) {
	return nil, ENoSuchFile
}

func (fs *mountPointFilesystem) Lstat(name string, out *Stat) error {
	if name == "/" || name == "" {
		*out = Stat{StDev: fs.ID(), Kind: KindDirectory, Mode: 0755}
		return nil
	}
	return ENoSuchFile
}

func (fs *mountPointFilesystem) Unlink(name string) error                  { return ENoSuchFile }
func (fs *mountPointFilesystem) Rename(oldname, newname string) error     { return ENoSuchFile }
func (fs *mountPointFilesystem) Mkdir(name string, mode uint32) error     { return EReadOnlyFilesystem }
func (fs *mountPointFilesystem) Rmdir(name string) error                  { return ENoSuchFile }
func (fs *mountPointFilesystem) Readlink(name string) (string, error)     { return "", ENoSuchFile }
func (fs *mountPointFilesystem) SupportsSymlinks() bool                  { return false }
