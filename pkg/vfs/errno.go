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
	"syscall"

	"golang.org/x/sys/unix"
)

// Errno is the VFS error taxonomy of spec.md §7, returned as a negative
// machine word at the syscall boundary (§6) and as an ordinary Go error
// everywhere else in this package.
type Errno int

const (
	EBadFileDescriptor Errno = iota + 1
	ENoSuchFile
	EFileExists
	ENotDirectory
	EIsDirectory
	ENotEmpty
	ENameTooLong
	EReadOnlyFilesystem
	EBusy
	EDeadlock
	ETimeout
	EBadAddress
	ENotSupported
	EOutOfMemory
	EOverflow
)

var names = map[Errno]string{
	EBadFileDescriptor:  "bad file descriptor",
	ENoSuchFile:         "no such file",
	EFileExists:         "file exists",
	ENotDirectory:       "not a directory",
	EIsDirectory:        "is a directory",
	ENotEmpty:           "directory not empty",
	ENameTooLong:        "name too long",
	EReadOnlyFilesystem: "read-only filesystem",
	EBusy:               "resource busy",
	EDeadlock:           "would deadlock",
	ETimeout:            "timed out",
	EBadAddress:         "bad address",
	ENotSupported:       "not supported",
	EOutOfMemory:        "out of memory",
	EOverflow:           "overflow",
}

func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "vfs: unknown errno"
}

// Unix maps an Errno to the nearest golang.org/x/sys/unix constant, for
// interop with code (fuseexport, hostfs) that must speak real POSIX
// errno values (spec.md §1.2: grounded in the pack's go-fuse/bazil-fuse
// errno mapping).
func (e Errno) Unix() unix.Errno {
	switch e {
	case EBadFileDescriptor:
		return unix.EBADF
	case ENoSuchFile:
		return unix.ENOENT
	case EFileExists:
		return unix.EEXIST
	case ENotDirectory:
		return unix.ENOTDIR
	case EIsDirectory:
		return unix.EISDIR
	case ENotEmpty:
		return unix.ENOTEMPTY
	case ENameTooLong:
		return unix.ENAMETOOLONG
	case EReadOnlyFilesystem:
		return unix.EROFS
	case EBusy:
		return unix.EBUSY
	case EDeadlock:
		return unix.EDEADLK
	case ETimeout:
		return unix.ETIMEDOUT
	case EBadAddress:
		return unix.EFAULT
	case ENotSupported:
		return unix.ENOTTY
	case EOutOfMemory:
		return unix.ENOMEM
	case EOverflow:
		return unix.EOVERFLOW
	default:
		return unix.EIO
	}
}

// Syscall returns e as a syscall.Errno, the type the standard os package
// and bazil.org/fuse expect at their respective boundaries.
func (e Errno) Syscall() syscall.Errno { return syscall.Errno(e.Unix()) }

// FromUnix converts a unix.Errno back into the nearest Errno, for a
// backing store (hostfs, s3fs) that surfaces a real OS error.
func FromUnix(u unix.Errno) Errno {
	switch u {
	case unix.ENOENT:
		return ENoSuchFile
	case unix.EEXIST:
		return EFileExists
	case unix.ENOTDIR:
		return ENotDirectory
	case unix.EISDIR:
		return EIsDirectory
	case unix.ENOTEMPTY:
		return ENotEmpty
	case unix.ENAMETOOLONG:
		return ENameTooLong
	case unix.EROFS:
		return EReadOnlyFilesystem
	case unix.EBUSY:
		return EBusy
	case unix.EBADF:
		return EBadFileDescriptor
	default:
		return ENotSupported
	}
}

// FromUnixErr converts an error returned by a host os.* call (normally
// wrapping a syscall.Errno inside an *os.PathError or *os.LinkError)
// into the nearest Errno, for hostfs's os.* backing calls. A nil error
// maps to nil.
func FromUnixErr(err error) error {
	if err == nil {
		return nil
	}
	var se syscall.Errno
	if errors.As(err, &se) {
		return FromUnix(unix.Errno(se))
	}
	return ENotSupported
}
