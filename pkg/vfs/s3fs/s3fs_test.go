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

package s3fs

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/mkos/kernel/pkg/vfs"
)

// fakeAWSErr is a minimal awserr.Error stand-in for awsErrToErrno,
// which only ever inspects Code().
type fakeAWSErr struct{ code string }

func (e fakeAWSErr) Error() string   { return e.code }
func (e fakeAWSErr) Code() string    { return e.code }
func (e fakeAWSErr) Message() string { return e.code }
func (e fakeAWSErr) OrigErr() error  { return nil }

var _ awserr.Error = fakeAWSErr{}

// TestAwsErrToErrnoMapsKnownCodes covers the S3-specific mapping: a
// missing key or bucket becomes ENoSuchFile, anything else an
// unrecognized plain error) falls back to ENotSupported.
func TestAwsErrToErrnoMapsKnownCodes(t *testing.T) {
	if err := awsErrToErrno(nil); err != nil {
		t.Fatalf("awsErrToErrno(nil) = %v, want nil", err)
	}
	if err := awsErrToErrno(fakeAWSErr{code: "NoSuchKey"}); err != vfs.ENoSuchFile {
		t.Fatalf("awsErrToErrno(NoSuchKey) = %v, want ENoSuchFile", err)
	}
	if err := awsErrToErrno(fakeAWSErr{code: "NoSuchBucket"}); err != vfs.ENoSuchFile {
		t.Fatalf("awsErrToErrno(NoSuchBucket) = %v, want ENoSuchFile", err)
	}
	if err := awsErrToErrno(fakeAWSErr{code: "AccessDenied"}); err != vfs.ENotSupported {
		t.Fatalf("awsErrToErrno(AccessDenied) = %v, want ENotSupported", err)
	}
	if err := awsErrToErrno(errors.New("not an awserr")); err != vfs.ENotSupported {
		t.Fatalf("awsErrToErrno(plain error) = %v, want ENotSupported", err)
	}
}

// newTestFile builds a File directly, bypassing Filesystem.Open (which
// needs a live S3 client), to exercise the in-memory buffering logic.
func newTestFile(fs *Filesystem, data []byte) *File {
	f := &File{fs: fs, key: "obj", data: data}
	f.Init(fs)
	return f
}

func TestFileWriteGrowsBufferAndMarksDirty(t *testing.T) {
	fs := &Filesystem{bucket: "test-bucket"}
	fs.InitFilesystem()
	f := newTestFile(fs, nil)

	n, err := f.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, nil)", n, err)
	}
	if !f.dirty {
		t.Fatalf("Write should mark the file dirty")
	}

	var st vfs.Stat
	if err := f.Fstat(&st); err != nil {
		t.Fatalf("Fstat: %v", err)
	}
	if st.Size != 5 {
		t.Fatalf("Fstat.Size = %d, want 5", st.Size)
	}
}

func TestFileReadSeekRoundTrip(t *testing.T) {
	fs := &Filesystem{bucket: "test-bucket"}
	fs.InitFilesystem()
	f := newTestFile(fs, []byte("0123456789"))

	if pos, err := f.Lseek(3, vfs.SeekSet); err != nil || pos != 3 {
		t.Fatalf("Lseek = (%d, %v), want (3, nil)", pos, err)
	}
	buf := make([]byte, 4)
	n, err := f.Read(buf)
	if err != nil || string(buf[:n]) != "3456" {
		t.Fatalf("Read = (%q, %v), want 3456", buf[:n], err)
	}

	if _, err := f.Lseek(-100, vfs.SeekCur); err != vfs.EOverflow {
		t.Fatalf("Lseek to negative position = %v, want EOverflow", err)
	}
}

func TestFileFtruncate(t *testing.T) {
	fs := &Filesystem{bucket: "test-bucket"}
	fs.InitFilesystem()
	f := newTestFile(fs, []byte("0123456789"))

	if err := f.Ftruncate(4); err != nil {
		t.Fatalf("Ftruncate: %v", err)
	}
	if string(f.data) != "0123" {
		t.Fatalf("data after Ftruncate(4) = %q, want 0123", f.data)
	}
	if !f.dirty {
		t.Fatalf("Ftruncate should mark the file dirty")
	}
	if err := f.Ftruncate(-1); err != vfs.EOverflow {
		t.Fatalf("Ftruncate(-1) = %v, want EOverflow", err)
	}
}

// TestSyncOnlyFlushesWhenDirty covers Sync's no-op fast path: a File
// that was never written to never calls putObject (which would need a
// live client).
func TestSyncOnlyFlushesWhenDirty(t *testing.T) {
	fs := &Filesystem{bucket: "test-bucket"}
	fs.InitFilesystem()
	f := newTestFile(fs, []byte("unchanged"))
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync on a clean file: %v", err)
	}
}

// TestGetdentsOnRegularFileFails covers comment-2's carve-out: an S3
// object is never a directory.
func TestGetdentsOnRegularFileFails(t *testing.T) {
	fs := &Filesystem{bucket: "test-bucket"}
	fs.InitFilesystem()
	f := newTestFile(fs, nil)
	if _, err := f.Getdents(); err != vfs.ENotDirectory {
		t.Fatalf("Getdents = %v, want ENotDirectory", err)
	}
}

// TestKeyAppliesDirPrefix covers key's prefix+trim-leading-slash
// composition for an already-normalized dirPrefix.
func TestKeyAppliesDirPrefix(t *testing.T) {
	fs := &Filesystem{bucket: "b", dirPrefix: "data/"}
	fs.InitFilesystem()
	if got := fs.key("/a/b.txt"); got != "data/a/b.txt" {
		t.Fatalf("key(/a/b.txt) = %q, want data/a/b.txt", got)
	}
}
