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

import "testing"

// TestMountTableResolveLongestPrefix covers spec.md §4.5 step 2: a path
// resolves against the longest mounted prefix, not just the root.
func TestMountTableResolveLongestPrefix(t *testing.T) {
	mt := NewMountTable()
	root := &mountPointFilesystem{}
	root.InitFilesystem()
	sub := &mountPointFilesystem{}
	sub.InitFilesystem()

	if err := mt.Mount("/", root); err != nil {
		t.Fatalf("Mount(/): %v", err)
	}
	if err := mt.Mount("/mnt/usb", sub); err != nil {
		t.Fatalf("Mount(/mnt/usb): %v", err)
	}

	fs, remainder, ok := mt.Resolve("/mnt/usb/dir/file.txt")
	if !ok || fs != FilesystemBase(sub) || remainder != "/dir/file.txt" {
		t.Fatalf("Resolve(/mnt/usb/dir/file.txt) = (%v, %q, %v), want (sub, /dir/file.txt, true)", fs, remainder, ok)
	}

	fs, remainder, ok = mt.Resolve("/etc/passwd")
	if !ok || fs != FilesystemBase(root) || remainder != "/etc/passwd" {
		t.Fatalf("Resolve(/etc/passwd) = (%v, %q, %v), want (root, /etc/passwd, true)", fs, remainder, ok)
	}

	fs, remainder, ok = mt.Resolve("/mnt/usb")
	if !ok || fs != FilesystemBase(sub) || remainder != "/" {
		t.Fatalf("Resolve(/mnt/usb) = (%v, %q, %v), want (sub, /, true)", fs, remainder, ok)
	}
}

// TestMountTableResolveUnmounted covers Resolve's false return when no
// prefix (not even "/") is mounted.
func TestMountTableResolveUnmounted(t *testing.T) {
	mt := NewMountTable()
	if _, _, ok := mt.Resolve("/anything"); ok {
		t.Fatalf("Resolve against an empty MountTable should fail")
	}
}

// TestMountTableMountUnmount covers the double-mount rejection and the
// not-mounted rejection on Unmount (spec.md §4.5 mount/unmount).
func TestMountTableMountUnmount(t *testing.T) {
	mt := NewMountTable()
	fs := &mountPointFilesystem{}
	fs.InitFilesystem()

	if err := mt.Mount("/data", fs); err != nil {
		t.Fatalf("first Mount: %v", err)
	}
	if err := mt.Mount("/data", fs); err != ErrAlreadyMounted {
		t.Fatalf("second Mount at the same path: %v, want ErrAlreadyMounted", err)
	}
	if err := mt.Unmount("/data"); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if err := mt.Unmount("/data"); err != ErrNotMounted {
		t.Fatalf("Unmount of an already-unmounted path: %v, want ErrNotMounted", err)
	}
}

// TestNormalizePath covers spec.md §8 property 6: "/a/./b", "/a//b",
// and "/a/c/../b" all normalize to "/a/b", and normalization is
// idempotent.
func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/a/./b", "/a/b"},
		{"/a//b", "/a/b"},
		{"/a/c/../b", "/a/b"},
		{"/a/b", "/a/b"},
		{"/", "/"},
		{"/..", "/"},
	}
	for _, c := range cases {
		if got := NormalizePath(c.in); got != c.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
		twice := NormalizePath(got)
		if twice != got {
			t.Errorf("NormalizePath(%q) is not idempotent: %q then %q", c.in, got, twice)
		}
	}
}

// TestResolverFollowsSymlinks exercises Resolver.Resolve's symlink
// expansion against a minimal fake filesystem (spec.md §4.5 step 3).
func TestResolverFollowsSymlinks(t *testing.T) {
	mt := NewMountTable()
	fs := newFakeSymlinkFS()
	fs.files["/link"] = fakeNode{kind: KindSymlink, target: "/real"}
	fs.files["/real"] = fakeNode{kind: KindRegular}
	if err := mt.Mount("/", fs); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	r := &Resolver{Mounts: mt}

	res, err := r.Resolve("/link", true)
	if err != nil {
		t.Fatalf("Resolve(/link, follow=true): %v", err)
	}
	if res.Name != "/real" {
		t.Fatalf("Resolve(/link, follow=true).Name = %q, want /real", res.Name)
	}

	res, err = r.Resolve("/link", false)
	if err != nil {
		t.Fatalf("Resolve(/link, follow=false): %v", err)
	}
	if res.Name != "/link" {
		t.Fatalf("Resolve(/link, follow=false).Name = %q, want /link (unfollowed)", res.Name)
	}
}

// fakeNode/fakeSymlinkFS is a minimal FilesystemBase stand-in, just
// enough to drive Resolver.Resolve's symlink-following branch without
// pulling in a concrete filesystem package.
type fakeNode struct {
	kind   FileKind
	target string
}

type fakeSymlinkFS struct {
	FilesystemBaseCommon
	files map[string]fakeNode
}

func newFakeSymlinkFS() *fakeSymlinkFS {
	fs := &fakeSymlinkFS{files: make(map[string]fakeNode)}
	fs.InitFilesystem()
	return fs
}

func (fs *fakeSymlinkFS) Open(name string, flags OpenFlags, mode uint32) (FileBase, error) {
	return nil, ENotSupported
}
func (fs *fakeSymlinkFS) Lstat(name string, out *Stat) error {
	n, ok := fs.files[name]
	if !ok {
		return ENoSuchFile
	}
	*out = Stat{StDev: fs.ID(), Kind: n.kind}
	return nil
}
func (fs *fakeSymlinkFS) Unlink(name string) error              { return ENotSupported }
func (fs *fakeSymlinkFS) Rename(oldname, newname string) error  { return ENotSupported }
func (fs *fakeSymlinkFS) Mkdir(name string, mode uint32) error  { return ENotSupported }
func (fs *fakeSymlinkFS) Rmdir(name string) error               { return ENotSupported }
func (fs *fakeSymlinkFS) Readlink(name string) (string, error) {
	n, ok := fs.files[name]
	if !ok || n.kind != KindSymlink {
		return "", ENoSuchFile
	}
	return n.target, nil
}
func (fs *fakeSymlinkFS) SupportsSymlinks() bool { return true }

// TestStringPartCutAndRestore covers the StringPart primitive
// MountTable.Resolve is built on (comment-3 grounding): CutAt/Bytes/
// Remainder/End round-trip the original buffer.
func TestStringPartCutAndRestore(t *testing.T) {
	buf := []byte("/mnt/usb/file")
	orig := append([]byte(nil), buf...)

	sp := NewStringPart(buf)
	sp.CutAt(8) // "/mnt/usb" | NUL over "/" | "file"
	if string(sp.Bytes()) != "/mnt/usb" {
		t.Fatalf("Bytes() = %q, want /mnt/usb", sp.Bytes())
	}
	if string(sp.Remainder()) != "file" {
		t.Fatalf("Remainder() = %q, want file", sp.Remainder())
	}
	sp.End()
	if string(buf) != string(orig) {
		t.Fatalf("buffer after End() = %q, want %q (original byte restored)", buf, orig)
	}
}

// TestStringPartCutAtEnd covers the edge case cutRemainder relies on
// for an exact mountpoint match: cutting at len(buf) leaves an empty
// Remainder and never touches buf (nothing to save/restore).
func TestStringPartCutAtEnd(t *testing.T) {
	buf := []byte("/mnt/usb")
	sp := NewStringPart(buf)
	sp.CutAt(len(buf))
	if rem := sp.Remainder(); rem != nil {
		t.Fatalf("Remainder() at end-of-buffer cut = %q, want nil", rem)
	}
	sp.End()
	if string(buf) != "/mnt/usb" {
		t.Fatalf("buffer mutated despite cutting at its own length: %q", buf)
	}
}
