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

// FaultKind enumerates the architecture fault vector's causes
// (spec.md §4.4, §7).
type FaultKind int

const (
	FaultStackOverflow FaultKind = iota
	FaultMemReadFault
	FaultMemWriteFault
	FaultExecuteFault
	FaultDivideByZero
	FaultUnalignedAccess
	FaultUndefinedInstruction
	FaultHardfault
	FaultBusFault
)

func (k FaultKind) String() string {
	switch k {
	case FaultStackOverflow:
		return "StackOverflow"
	case FaultMemReadFault:
		return "MemReadFault"
	case FaultMemWriteFault:
		return "MemWriteFault"
	case FaultExecuteFault:
		return "ExecuteFault"
	case FaultDivideByZero:
		return "DivideByZero"
	case FaultUnalignedAccess:
		return "UnalignedAccess"
	case FaultUndefinedInstruction:
		return "UndefinedInstruction"
	case FaultHardfault:
		return "Hardfault"
	case FaultBusFault:
		return "BusFault"
	default:
		return "UnknownFault"
	}
}

// FaultData is what the architecture fault vector constructs and
// stores on the faulting thread's process (spec.md §4.4): the fault
// kind, the program counter at fault time, and the fault address for
// kinds that have one (MemReadFault, MemWriteFault, ExecuteFault,
// BusFault); zero otherwise.
type FaultData struct {
	Kind FaultKind
	PC   uint32
	Arg  uint32
}
