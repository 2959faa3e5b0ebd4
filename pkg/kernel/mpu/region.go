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

// Package mpu models the hardware memory-protection unit region
// descriptors of spec.md §4.4: a Process owns a code region and a data
// region, each a power-of-two-sized, self-aligned address range, and
// the syscall dispatcher (pkg/kernel/ksyscall) validates every
// userspace pointer against them before the kernel touches it.
package mpu

import (
	"errors"
	"sync"
)

// MaxRegionSize is the enlargement ceiling round_region_for_mpu refuses
// to cross (spec.md §4.4: "never happens on realistic MCU flash
// layouts").
const MaxRegionSize = 1 << 31

// MinRegionSize is the smallest region size the hardware unit can
// express (spec.md §4.4: "a power of two ≥32").
const MinRegionSize = 32

var ErrRegionTooLarge = errors.New("mpu: region would have to grow past 2 GiB")

// Region is a single [Base, Base+Size) address range.
type Region struct {
	Base uint32
	Size uint32
}

// End returns Base+Size as a 64-bit value so callers can compare
// without risking native uint32 wraparound on the addition itself.
func (r Region) End() uint64 { return uint64(r.Base) + uint64(r.Size) }

func isPowerOfTwo(n uint32) bool { return n != 0 && n&(n-1) == 0 }

// RoundSizeForMPU returns the smallest legal MPU region size ≥ n
// (spec.md §4.4 round_size_for_mpu).
func RoundSizeForMPU(n uint32) uint32 {
	if n <= MinRegionSize {
		return MinRegionSize
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func alignDown(ptr, size uint32) uint32 { return ptr &^ (size - 1) }

// RoundRegionForMPU enlarges [ptr, ptr+size) until its base is aligned
// to a power-of-two size that also covers the whole original range
// (spec.md §4.4 round_region_for_mpu).
func RoundRegionForMPU(ptr, size uint32) (Region, error) {
	end := uint64(ptr) + uint64(size)
	sz := RoundSizeForMPU(size)
	for {
		base := alignDown(ptr, sz)
		if uint64(base)+uint64(sz) >= end {
			return Region{Base: base, Size: sz}, nil
		}
		if sz >= MaxRegionSize {
			return Region{}, ErrRegionTooLarge
		}
		sz *= 2
	}
}

// validateRegion checks the invariant spec.md §4.4 states for both
// regions of a Process: size is a power of two ≥32 and base is aligned
// to size.
func validateRegion(r Region) error {
	if !isPowerOfTwo(r.Size) || r.Size < MinRegionSize {
		return errors.New("mpu: region size must be a power of two >= 32")
	}
	if r.Base&(r.Size-1) != 0 {
		return errors.New("mpu: region base must be aligned to its size")
	}
	return nil
}

// contains implements the two within_for_* checks (spec.md §4.4): a
// wraparound access (ptr+size overflowing uint32) is always rejected,
// and — matching the worked example in spec.md §8 precisely — the
// region's end is an exclusive bound compared with strict inequality,
// so a request whose end lands exactly on the region boundary is
// rejected rather than accepted.
func contains(r Region, ptr, size uint32) bool {
	sum := ptr + size
	if sum < ptr {
		return false
	}
	if ptr < r.Base {
		return false
	}
	end := uint64(r.Base) + uint64(r.Size)
	return uint64(sum) < end
}

// addrAlloc is a deterministic bump allocator standing in for whatever
// loader/MMU-less memory carve-out assigns Process code/data regions on
// real hardware; it always hands back a base already aligned to the
// requested size, so validateRegion never rejects what it produces.
var (
	addrAllocMu sync.Mutex
	nextAddr    uint32 = 0x20000000
)

func allocateAligned(size uint32) uint32 {
	addrAllocMu.Lock()
	defer addrAllocMu.Unlock()
	base := (nextAddr + size - 1) &^ (size - 1)
	nextAddr = base + size
	return base
}
