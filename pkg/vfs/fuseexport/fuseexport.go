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

// Package fuseexport mounts a vfs.FilesystemBase as a real FUSE
// filesystem on the host, for integration tests and interactive
// inspection that want ordinary host tools (ls, cat, cp) pointed at
// the simulated VFS tree. Adapted from the teacher's pkg/fs, which
// plays the same "expose an internal tree over FUSE" role for a
// Camlistore filesystem; that package predates bazil.org/fuse and
// wraps an older rsc.io/fuse, so only its shape (one FS type whose
// Root returns a Node, one Node per backing object) survives here —
// this port speaks bazil.org/fuse/fs directly.
package fuseexport

import (
	"context"
	"os"
	"sync"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sync/errgroup"

	"github.com/mkos/kernel/pkg/vfs"
)

// Mount exports fs (a single FilesystemBase, with no subdirectories —
// matching the flat namespace every concrete FilesystemBase in this
// module implements) at mountpoint, serving requests until ctx is
// canceled or Close is called.
type Mount struct {
	conn *fuse.Conn
	g    *errgroup.Group
}

// Export mounts fs at mountpoint and starts serving in the background,
// supervised by an errgroup the same way teacher code groups worker
// goroutines.
func Export(ctx context.Context, mountpoint string, vfsRoot vfs.FilesystemBase) (*Mount, error) {
	c, err := fuse.Mount(mountpoint, fuse.FSName("kernelvfs"), fuse.Subtype("kernelfs"))
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	root := &dir{fs: vfsRoot}
	g.Go(func() error {
		return fusefs.Serve(c, &filesystem{root: root})
	})
	g.Go(func() error {
		<-gctx.Done()
		return fuse.Unmount(mountpoint)
	})
	return &Mount{conn: c, g: g}, nil
}

// Wait blocks until the serve loop and the unmount watcher both
// return.
func (m *Mount) Wait() error { return m.g.Wait() }

// Close forces the mount closed, for callers that don't want to wait
// on ctx cancellation.
func (m *Mount) Close() error { return m.conn.Close() }

type filesystem struct {
	root *dir
}

func (f *filesystem) Root() (fusefs.Node, error) { return f.root, nil }

// dir is the single exported directory node, backed by one
// vfs.FilesystemBase's flat file set.
type dir struct {
	fs vfs.FilesystemBase

	mu      sync.Mutex
	entries []string
}

func (d *dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0755
	return nil
}

func (d *dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	var st vfs.Stat
	if err := d.fs.Lstat(name, &st); err != nil {
		return nil, fuse.ENOENT
	}
	return &file{fs: d.fs, name: name}, nil
}

// file is a lookup-backed handle; Open re-resolves a vfs.FileBase each
// time since FUSE may hand out several concurrent file handles for one
// path.
type file struct {
	fs   vfs.FilesystemBase
	name string
}

func (f *file) Attr(ctx context.Context, a *fuse.Attr) error {
	var st vfs.Stat
	if err := f.fs.Lstat(f.name, &st); err != nil {
		return err.(vfs.Errno).Syscall()
	}
	a.Mode = 0644
	a.Size = uint64(st.Size)
	return nil
}

func (f *file) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fb, err := f.fs.Open(f.name, vfs.ORdWr, 0644)
	if err != nil {
		return nil, err.(vfs.Errno).Syscall()
	}
	return &handle{file: fb}, nil
}

type handle struct {
	file vfs.FileBase
}

func (h *handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	if _, err := h.file.Lseek(req.Offset, vfs.SeekSet); err != nil {
		return err.(vfs.Errno).Syscall()
	}
	n, err := h.file.Read(buf)
	if err != nil {
		return err.(vfs.Errno).Syscall()
	}
	resp.Data = buf[:n]
	return nil
}

func (h *handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	if _, err := h.file.Lseek(req.Offset, vfs.SeekSet); err != nil {
		return err.(vfs.Errno).Syscall()
	}
	n, err := h.file.Write(req.Data)
	if err != nil {
		return err.(vfs.Errno).Syscall()
	}
	resp.Size = n
	return nil
}

func (h *handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	h.file.Release()
	return nil
}
