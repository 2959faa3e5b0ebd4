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

package mpu

import "sync"

// ProcessImage is the loadable input to NewProcess: a relocatable
// image's program bytes, plus how much RAM the data region (stack,
// heap, globals) needs (spec.md §4.4: "owns a code region... and a
// data region sized for stack+bss+heap").
type ProcessImage struct {
	Code     []byte
	DataSize uint32
}

// Process is a userspace process: its two MPU regions, the backing
// store behind them (this package's stand-in for real addressable RAM,
// since there is no hardware to validate against), and whatever fault
// last terminated one of its threads.
type Process struct {
	cfg  *MPUConfiguration
	code []byte
	data []byte

	mu    sync.Mutex
	fault *FaultData

	// FDTable is the process's *vfs.FileDescriptorTable. Declared as
	// any, not a concrete vfs type, so this package never imports
	// pkg/vfs — only pkg/kernel/ksyscall, which already imports both,
	// needs to type-assert it back.
	FDTable any
}

// NewProcess builds a Process from img, allocating and rounding its
// code and data regions to satisfy the MPU's power-of-two/aligned-base
// invariant (spec.md §4.4).
func NewProcess(img ProcessImage) (*Process, error) {
	codeSize := RoundSizeForMPU(uint32(len(img.Code)))
	dataSize := RoundSizeForMPU(img.DataSize)
	codeBase := allocateAligned(codeSize)
	dataBase := allocateAligned(dataSize)

	cfg, err := NewMPUConfiguration(codeBase, codeSize, dataBase, dataSize)
	if err != nil {
		return nil, err
	}
	p := &Process{
		cfg:  cfg,
		code: make([]byte, codeSize),
		data: make([]byte, dataSize),
	}
	copy(p.code, img.Code)
	return p, nil
}

// MPUEnabled implements thread.ProcessRef: a Process always runs with
// its MPU configuration installed; kernel threads instead carry a nil
// ProcessRef, for which thread.Thread.Process() returning nil already
// means "no MPU" without needing a second always-privileged Process
// kind.
func (p *Process) MPUEnabled() bool { return true }

// Config returns the process's MPU region configuration.
func (p *Process) Config() *MPUConfiguration { return p.cfg }

// WithinForReading and WithinForWriting forward to the process's
// MPUConfiguration; kept on Process too since ksyscall's dispatcher
// validates every argument against "the calling process", not its
// configuration object specifically.
func (p *Process) WithinForReading(ptr, size uint32) bool { return p.cfg.WithinForReading(ptr, size) }
func (p *Process) WithinForWriting(ptr, size uint32) bool { return p.cfg.WithinForWriting(ptr, size) }

// WithinForReadingCString reports whether ptr's NUL terminator lies
// within the process's code or data region (spec.md §4.4
// within_for_reading applied to a NUL-terminated string argument).
func (p *Process) WithinForReadingCString(ptr uint32) bool {
	return scanForNUL(p.cfg.Code, p.code, ptr) || scanForNUL(p.cfg.Data, p.data, ptr)
}

func scanForNUL(r Region, backing []byte, ptr uint32) bool {
	if ptr < r.Base || uint64(ptr) >= r.End() {
		return false
	}
	off := ptr - r.Base
	if int(off) >= len(backing) {
		return false
	}
	for i := int(off); i < len(backing); i++ {
		if backing[i] == 0 {
			return true
		}
	}
	return false
}

// ReadCString copies bytes from ptr up to (not including) its NUL
// terminator, for a syscall implementation that has already validated
// the pointer with WithinForReadingCString.
func (p *Process) ReadCString(ptr uint32) string {
	if s, ok := stringAt(p.cfg.Data, p.data, ptr); ok {
		return s
	}
	if s, ok := stringAt(p.cfg.Code, p.code, ptr); ok {
		return s
	}
	return ""
}

func stringAt(r Region, backing []byte, ptr uint32) (string, bool) {
	if ptr < r.Base || uint64(ptr) >= r.End() {
		return "", false
	}
	off := int(ptr - r.Base)
	if off >= len(backing) {
		return "", false
	}
	for i := off; i < len(backing); i++ {
		if backing[i] == 0 {
			return string(backing[off:i]), true
		}
	}
	return "", false
}

// ReadAt copies size bytes starting at ptr out of the process's data or
// code region backing store, for a syscall implementation that has
// already validated the access with WithinForReading.
func (p *Process) ReadAt(ptr, size uint32) []byte {
	if buf, off, ok := p.backingFor(p.cfg.Data, p.data, ptr, size); ok {
		return buf[off : off+int(size)]
	}
	if buf, off, ok := p.backingFor(p.cfg.Code, p.code, ptr, size); ok {
		return buf[off : off+int(size)]
	}
	return nil
}

// WriteAt copies src into the process's data region backing store at
// ptr, for a syscall implementation that has already validated the
// access with WithinForWriting.
func (p *Process) WriteAt(ptr uint32, src []byte) {
	if buf, off, ok := p.backingFor(p.cfg.Data, p.data, ptr, uint32(len(src))); ok {
		copy(buf[off:], src)
	}
}

func (p *Process) backingFor(r Region, backing []byte, ptr, size uint32) ([]byte, int, bool) {
	if !contains(r, ptr, size) {
		return nil, 0, false
	}
	off := int(ptr - r.Base)
	if off+int(size) > len(backing) {
		return nil, 0, false
	}
	return backing, off, true
}

// SetFault records the fault that terminated one of this process's
// threads (spec.md §4.4 fault handling: "constructs a FaultData...
// stores it on the process").
func (p *Process) SetFault(f FaultData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = &f
}

// Fault returns the last recorded fault, or nil.
func (p *Process) Fault() *FaultData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fault
}
