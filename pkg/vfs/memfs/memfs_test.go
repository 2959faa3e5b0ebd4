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

package memfs

import (
	"testing"

	"github.com/mkos/kernel/pkg/vfs"
)

// TestOpenCreateExclAndTrunc covers the OCreat/OExcl/OTrunc flag
// interactions spec.md §4.5's open documents.
func TestOpenCreateExclAndTrunc(t *testing.T) {
	fs := New()

	if _, err := fs.Open("/f", vfs.ORdOnly, 0); err != vfs.ENoSuchFile {
		t.Fatalf("Open of a missing file without OCreat = %v, want ENoSuchFile", err)
	}

	f, err := fs.Open("/f", vfs.OCreat|vfs.OWrOnly, 0644)
	if err != nil {
		t.Fatalf("Open(OCreat): %v", err)
	}
	if _, err := f.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := fs.Open("/f", vfs.OCreat|vfs.OExcl, 0644); err != vfs.EFileExists {
		t.Fatalf("Open(OCreat|OExcl) on an existing file = %v, want EFileExists", err)
	}

	truncated, err := fs.Open("/f", vfs.OCreat|vfs.OTrunc|vfs.ORdWr, 0644)
	if err != nil {
		t.Fatalf("Open(OTrunc): %v", err)
	}
	buf := make([]byte, 16)
	if n, err := truncated.Read(buf); err != nil || n != 0 {
		t.Fatalf("Read after OTrunc = (%d, %v), want (0, nil)", n, err)
	}
}

// TestWriteGrowsFileAndReadSeesIt covers the write-then-read round trip,
// including Write growing the backing slice past its current length.
func TestWriteGrowsFileAndReadSeesIt(t *testing.T) {
	fs := New()
	f, err := fs.Open("/f", vfs.OCreat|vfs.ORdWr, 0644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Lseek(10, vfs.SeekSet); err != nil {
		t.Fatalf("Lseek: %v", err)
	}
	if _, err := f.Write([]byte("tail")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var st vfs.Stat
	if err := f.Fstat(&st); err != nil {
		t.Fatalf("Fstat: %v", err)
	}
	if st.Size != 14 {
		t.Fatalf("Fstat.Size = %d, want 14 (10 zero bytes + 4-byte tail)", st.Size)
	}

	if _, err := f.Lseek(10, vfs.SeekSet); err != nil {
		t.Fatalf("Lseek: %v", err)
	}
	buf := make([]byte, 4)
	if n, err := f.Read(buf); err != nil || string(buf[:n]) != "tail" {
		t.Fatalf("Read after seek = (%q, %v), want tail", buf[:n], err)
	}
}

// TestLseekWhenceVariants covers SeekSet/SeekCur/SeekEnd and the
// negative-result rejection.
func TestLseekWhenceVariants(t *testing.T) {
	fs := New()
	f, err := fs.Open("/f", vfs.OCreat|vfs.ORdWr, 0644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if pos, err := f.Lseek(0, vfs.SeekEnd); err != nil || pos != 10 {
		t.Fatalf("Lseek(0, SeekEnd) = (%d, %v), want (10, nil)", pos, err)
	}
	if pos, err := f.Lseek(-4, vfs.SeekCur); err != nil || pos != 6 {
		t.Fatalf("Lseek(-4, SeekCur) = (%d, %v), want (6, nil)", pos, err)
	}
	if _, err := f.Lseek(-100, vfs.SeekCur); err != vfs.EOverflow {
		t.Fatalf("Lseek to a negative position = %v, want EOverflow", err)
	}
}

// TestRenameMovesNode covers Rename moving a node to a new name.
func TestRenameMovesNode(t *testing.T) {
	fs := New()
	f, err := fs.Open("/a", vfs.OCreat|vfs.OWrOnly, 0644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Rename("/a", "/b"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := fs.Open("/a", vfs.ORdOnly, 0); err != vfs.ENoSuchFile {
		t.Fatalf("Open(/a) after rename = %v, want ENoSuchFile", err)
	}
	var st vfs.Stat
	if err := fs.Lstat("/b", &st); err != nil {
		t.Fatalf("Lstat(/b): %v", err)
	}
	if st.Size != 4 {
		t.Fatalf("Lstat(/b).Size = %d, want 4", st.Size)
	}
}

// TestUnlinkRemovesNode covers Unlink and its not-found rejection.
func TestUnlinkRemovesNode(t *testing.T) {
	fs := New()
	if _, err := fs.Open("/a", vfs.OCreat|vfs.OWrOnly, 0644); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := fs.Unlink("/a"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if err := fs.Unlink("/a"); err != vfs.ENoSuchFile {
		t.Fatalf("second Unlink = %v, want ENoSuchFile", err)
	}
}

// TestLstatRoot covers memfs's synthesized root directory entry: memfs
// has no real directories, but "/" itself must still Lstat as one so
// path resolution can treat it as a mountpoint.
func TestLstatRoot(t *testing.T) {
	fs := New()
	var st vfs.Stat
	if err := fs.Lstat("/", &st); err != nil {
		t.Fatalf("Lstat(/): %v", err)
	}
	if st.Kind != vfs.KindDirectory {
		t.Fatalf("Lstat(/).Kind = %v, want KindDirectory", st.Kind)
	}
}

// TestGetdentsOnRegularFileFails covers comment-2's carve-out: memfs is
// a flat namespace with no directories at all, so every open file
// reports ENotDirectory from Getdents.
func TestGetdentsOnRegularFileFails(t *testing.T) {
	fs := New()
	f, err := fs.Open("/f", vfs.OCreat|vfs.ORdWr, 0644)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Getdents(); err != vfs.ENotDirectory {
		t.Fatalf("Getdents = %v, want ENotDirectory", err)
	}
}

// TestUnsupportedDirectoryOps covers Mkdir/Rmdir/Readlink/
// SupportsSymlinks: memfs has no directory or symlink support at all.
func TestUnsupportedDirectoryOps(t *testing.T) {
	fs := New()
	if err := fs.Mkdir("/d", 0755); err != vfs.ENotSupported {
		t.Fatalf("Mkdir = %v, want ENotSupported", err)
	}
	if err := fs.Rmdir("/d"); err != vfs.ENotSupported {
		t.Fatalf("Rmdir = %v, want ENotSupported", err)
	}
	if _, err := fs.Readlink("/d"); err != vfs.ENotSupported {
		t.Fatalf("Readlink = %v, want ENotSupported", err)
	}
	if fs.SupportsSymlinks() {
		t.Fatalf("SupportsSymlinks = true, want false")
	}
}
