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

import "sync"

// stdin/stdout/stderr are reserved fds, never handed out by Alloc
// (spec.md §4.5).
const (
	FDStdin  = 0
	FDStdout = 1
	FDStderr = 2
	firstAllocatable = 3
)

// FileDescriptorTable is a process's fixed-size array of open-file
// slots (spec.md §4.5). Allocation always picks the lowest free index
// ≥3; fds 0/1/2 are reserved for stdin/stdout/stderr and are wired up
// by the caller (normally to TerminalDevice/DefaultConsole), not by
// Alloc.
type FileDescriptorTable struct {
	mu    sync.Mutex
	slots []*FileHandle
}

// NewFileDescriptorTable allocates a table with maxOpen slots
// (kconfig.Settings.MaxOpenFiles).
func NewFileDescriptorTable(maxOpen int) *FileDescriptorTable {
	return &FileDescriptorTable{slots: make([]*FileHandle, maxOpen)}
}

// Install places h at a specific fd (used for 0/1/2), replacing and
// releasing whatever was there.
func (t *FileDescriptorTable) Install(fd int, h *FileHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(fd, h)
}

func (t *FileDescriptorTable) setLocked(fd int, h *FileHandle) {
	if old := t.slots[fd]; old != nil {
		old.Release()
	}
	t.slots[fd] = h
}

// Alloc installs h at the lowest free index ≥3 and returns that fd, or
// -1 if the table is full.
func (t *FileDescriptorTable) Alloc(h *FileHandle) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd := firstAllocatable; fd < len(t.slots); fd++ {
		if t.slots[fd] == nil {
			t.slots[fd] = h
			return fd
		}
	}
	return -1
}

// Get returns the handle at fd, or nil if fd is out of range or unset.
func (t *FileDescriptorTable) Get(fd int) *FileHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.slots) {
		return nil
	}
	return t.slots[fd]
}

// Close drops fd's slot, releasing the handle's reference. Returns
// EBadFileDescriptor if fd was already empty or out of range.
func (t *FileDescriptorTable) Close(fd int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.slots) || t.slots[fd] == nil {
		return EBadFileDescriptor
	}
	t.slots[fd].Release()
	t.slots[fd] = nil
	return nil
}

// Dup duplicates fd into the lowest free slot ≥3, retaining the
// underlying FileBase's reference count.
func (t *FileDescriptorTable) Dup(fd int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.slots) || t.slots[fd] == nil {
		return -1, EBadFileDescriptor
	}
	h := t.slots[fd]
	newHandle := h.file.Retain()
	for nfd := firstAllocatable; nfd < len(t.slots); nfd++ {
		if t.slots[nfd] == nil {
			t.slots[nfd] = newHandle
			return nfd, nil
		}
	}
	newHandle.Release()
	return -1, EOutOfMemory
}

// CloseAll releases every open slot, for process teardown.
func (t *FileDescriptorTable) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd := range t.slots {
		t.setLocked(fd, nil)
	}
}
