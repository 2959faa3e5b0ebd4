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

package ksyscall

import "github.com/mkos/kernel/pkg/vfs"

// ErrBadAddress is returned when a pointer argument fails MPU
// validation (spec.md §7 BadAddress); it has no vfs.Errno equivalent
// since it is detected by the dispatcher itself, before the VFS is ever
// reached.
const ErrBadAddress vfs.Errno = 100

// toMachineWord converts a (result, error) pair from a VFS/thread
// operation into the single machine word a syscall returns: the
// non-negative result on success, or the negated errno on failure
// (spec.md §6: "negative values in the POSIX-errno range signal
// failure").
func toMachineWord(result int64, err error) int64 {
	if err == nil {
		return result
	}
	if e, ok := err.(vfs.Errno); ok {
		return -int64(e)
	}
	return -int64(vfs.ENotSupported)
}
