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

import "time"

// FileKind tags what Stat.Mode describes, since this package has no
// userspace stat.h bit layout to match byte-for-byte.
type FileKind int

const (
	KindRegular FileKind = iota
	KindDirectory
	KindSymlink
	KindCharDevice
	KindFIFO
)

// Stat is the fstat/lstat/stat result (spec.md §4.5, §6). StDev is the
// owning filesystem's id (FilesystemBase.ID), making (StDev, StIno)
// globally unique across mounts.
type Stat struct {
	StDev   uint16
	StIno   uint64
	Kind    FileKind
	Size    int64
	Mode    uint32
	ModTime time.Time
}
