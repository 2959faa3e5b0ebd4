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

package fuseexport

import (
	"context"
	"testing"

	"bazil.org/fuse"

	"github.com/mkos/kernel/pkg/vfs"
	"github.com/mkos/kernel/pkg/vfs/memfs"
)

// These tests drive dir/file/handle directly rather than through a real
// fuse.Mount (which needs the host's FUSE kernel module): Export itself
// is a thin wrapper around fuse.Mount/fusefs.Serve with nothing of its
// own to unit test, but the Node/Handle methods translate vfs calls and
// errors and are worth covering in isolation.

func TestDirLookupAndAttr(t *testing.T) {
	backing := memfs.New()
	if _, err := backing.Open("/f", vfs.OCreat|vfs.OWrOnly, 0644); err != nil {
		t.Fatalf("Open: %v", err)
	}
	d := &dir{fs: backing}

	var a fuse.Attr
	if err := d.Attr(context.Background(), &a); err != nil {
		t.Fatalf("Attr: %v", err)
	}
	if a.Mode.IsRegular() {
		t.Fatalf("dir Attr.Mode should report a directory")
	}

	node, err := d.Lookup(context.Background(), "/f")
	if err != nil {
		t.Fatalf("Lookup(/f): %v", err)
	}
	if _, ok := node.(*file); !ok {
		t.Fatalf("Lookup returned %T, want *file", node)
	}

	if _, err := d.Lookup(context.Background(), "/missing"); err != fuse.ENOENT {
		t.Fatalf("Lookup(/missing) = %v, want fuse.ENOENT", err)
	}
}

func TestFileOpenReadWrite(t *testing.T) {
	backing := memfs.New()
	if _, err := backing.Open("/f", vfs.OCreat|vfs.OWrOnly, 0644); err != nil {
		t.Fatalf("Open: %v", err)
	}
	f := &file{fs: backing, name: "/f"}

	var or fuse.OpenResponse
	h, err := f.Open(context.Background(), &fuse.OpenRequest{}, &or)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	handle := h.(*handle)

	var wr fuse.WriteResponse
	if err := handle.Write(context.Background(), &fuse.WriteRequest{Data: []byte("hello")}, &wr); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if wr.Size != 5 {
		t.Fatalf("WriteResponse.Size = %d, want 5", wr.Size)
	}

	var rr fuse.ReadResponse
	if err := handle.Read(context.Background(), &fuse.ReadRequest{Offset: 0, Size: 16}, &rr); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(rr.Data) != "hello" {
		t.Fatalf("Read = %q, want hello", rr.Data)
	}

	if err := handle.Release(context.Background(), &fuse.ReleaseRequest{}); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFileAttrReportsSize(t *testing.T) {
	backing := memfs.New()
	wf, err := backing.Open("/f", vfs.OCreat|vfs.OWrOnly, 0644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := wf.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f := &file{fs: backing, name: "/f"}
	var a fuse.Attr
	if err := f.Attr(context.Background(), &a); err != nil {
		t.Fatalf("Attr: %v", err)
	}
	if a.Size != 10 {
		t.Fatalf("Attr.Size = %d, want 10", a.Size)
	}
}
