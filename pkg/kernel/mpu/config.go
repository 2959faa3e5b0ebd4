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

// MPUConfiguration is the pair of regions spec.md §4.4 describes:
// region 0 is the code image (privileged RW, unprivileged RO,
// execute-enabled), region 1 is the data image (privileged/
// unprivileged RW, execute-disabled). The four architecture register
// values a real MPU driver would program are encoded here as an opaque
// snapshot; this package never talks to real hardware, so Registers
// exists only so a board-support package can hand them to the actual
// MPU driver.
type MPUConfiguration struct {
	Code Region
	Data Region
	regs [4]uint32
}

// NewMPUConfiguration validates and builds the two-region configuration
// for a process.
func NewMPUConfiguration(codeBase, codeSize, dataBase, dataSize uint32) (*MPUConfiguration, error) {
	code := Region{Base: codeBase, Size: codeSize}
	data := Region{Base: dataBase, Size: dataSize}
	if err := validateRegion(code); err != nil {
		return nil, err
	}
	if err := validateRegion(data); err != nil {
		return nil, err
	}
	cfg := &MPUConfiguration{Code: code, Data: data}
	cfg.regs = encodeRegisters(code, data)
	return cfg, nil
}

// encodeRegisters stores each region as two register words, its base
// and its log2 size, mirroring Cortex-M's MPU_RBAR/MPU_RASR pair; real encodings (access permissions, TEX/cache bits,
// sub-region disable) are architecture-specific and out of this
// package's scope (spec.md §1), so only base and size survive here.
func encodeRegisters(code, data Region) [4]uint32 {
	return [4]uint32{
		code.Base,
		log2(code.Size),
		data.Base,
		log2(data.Size),
	}
}

func log2(n uint32) uint32 {
	var l uint32
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// Registers returns the four encoded register values for a
// board-support package's actual MPU driver to program.
func (cfg *MPUConfiguration) Registers() [4]uint32 { return cfg.regs }

// WithinForReading reports whether [ptr, ptr+size) lies entirely within
// either region without wrapping (spec.md §4.4 within_for_reading).
func (cfg *MPUConfiguration) WithinForReading(ptr, size uint32) bool {
	return contains(cfg.Code, ptr, size) || contains(cfg.Data, ptr, size)
}

// WithinForWriting is WithinForReading restricted to the data region
// (spec.md §4.4 within_for_writing).
func (cfg *MPUConfiguration) WithinForWriting(ptr, size uint32) bool {
	return contains(cfg.Data, ptr, size)
}

// IRQEnable is called by the scheduler on switch into a userspace
// thread (spec.md §4.4): on real hardware it writes the four register
// values and drops to unprivileged mode. This host simulation has no
// hardware mode to drop to, so it is a documented no-op; Registers
// gives a board-support package the values it would need to do the
// real thing.
func (cfg *MPUConfiguration) IRQEnable() {}

// IRQDisable reverts to the privileged "kernel default" MPU mapping
// that allows full access (spec.md §4.4), called on switch to a kernel
// thread. Package-level because it names no specific process's
// configuration — it is what every kernel thread's Process() being nil
// implies.
func IRQDisable() {}
