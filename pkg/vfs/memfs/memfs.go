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

// Package memfs is an in-RAM, read-write FilesystemBase (a tmpfs
// analogue), adapted from the teacher's blobserver/memory in-memory
// blob Storage: an RWMutex-guarded map keyed by name instead of by blob
// ref, holding a growable byte slice instead of an immutable blob.
package memfs

import (
	"sync"

	"github.com/mkos/kernel/pkg/vfs"
)

type node struct {
	data []byte
	kind vfs.FileKind
}

// Filesystem is an in-memory flat namespace of regular files, sized
// only by available heap, matching the original devfs-adjacent
// "filesystem with no backing store" role a tmpfs plays (supplemented
// component; not named in spec.md, which treats concrete filesystems
// as external).
type Filesystem struct {
	vfs.FilesystemBaseCommon

	mu    sync.RWMutex
	nodes map[string]*node
}

// New builds an empty memfs instance.
func New() *Filesystem {
	fs := &Filesystem{nodes: make(map[string]*node)}
	fs.InitFilesystem()
	return fs
}

func trim(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}

func (fs *Filesystem) Open(name string, flags vfs.OpenFlags, mode uint32) (vfs.FileBase, error) {
	key := trim(name)
	fs.mu.Lock()
	n, ok := fs.nodes[key]
	if !ok {
		if flags&vfs.OCreat == 0 {
			fs.mu.Unlock()
			return nil, vfs.ENoSuchFile
		}
		n = &node{kind: vfs.KindRegular}
		fs.nodes[key] = n
	} else if flags&vfs.OExcl != 0 && flags&vfs.OCreat != 0 {
		fs.mu.Unlock()
		return nil, vfs.EFileExists
	}
	if flags&vfs.OTrunc != 0 {
		n.data = nil
	}
	fs.mu.Unlock()

	f := &File{fs: fs, key: key}
	f.Init(fs)
	if flags&vfs.OAppend != 0 {
		f.pos = int64(len(n.data))
	}
	return f, nil
}

func (fs *Filesystem) Lstat(name string, out *vfs.Stat) error {
	if name == "/" || name == "" {
		*out = vfs.Stat{StDev: fs.ID(), Kind: vfs.KindDirectory}
		return nil
	}
	key := trim(name)
	fs.mu.RLock()
	n, ok := fs.nodes[key]
	fs.mu.RUnlock()
	if !ok {
		return vfs.ENoSuchFile
	}
	*out = vfs.Stat{StDev: fs.ID(), Kind: n.kind, Size: int64(len(n.data))}
	return nil
}

func (fs *Filesystem) Unlink(name string) error {
	key := trim(name)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.nodes[key]; !ok {
		return vfs.ENoSuchFile
	}
	delete(fs.nodes, key)
	return nil
}

func (fs *Filesystem) Rename(oldname, newname string) error {
	o, n := trim(oldname), trim(newname)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	node, ok := fs.nodes[o]
	if !ok {
		return vfs.ENoSuchFile
	}
	fs.nodes[n] = node
	delete(fs.nodes, o)
	return nil
}

func (fs *Filesystem) Mkdir(name string, mode uint32) error { return vfs.ENotSupported }
func (fs *Filesystem) Rmdir(name string) error              { return vfs.ENotSupported }
func (fs *Filesystem) Readlink(name string) (string, error) { return "", vfs.ENotSupported }
func (fs *Filesystem) SupportsSymlinks() bool                { return false }
