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

// Package kconfig is a leaf package, without dependencies besides
// go4.org/jsonconfig, holding the compile-time settings spec.md §6
// "Environment" describes: scheduler kind, priority count, default
// stack size, max open files, and which optional subsystems are
// compiled in. Adapted from the teacher's pkg/constants (a single leaf
// constant) and pkg/jsonconfig/pkg/serverconfig (the loader+validation
// pattern).
package kconfig

// MinSleepNanos is the lower clamp §5 requires: sleep deadlines ≤
// this value are raised to it, to avoid underflow in the
// nanosecond-to-tick conversion math.
const MinSleepNanos = 100_000

// DefaultStackSize is the stack size threads get when Create is called
// with stackSize == 0.
const DefaultStackSize = 4096

// DefaultMaxOpenFiles is FileDescriptorTable's default slot count when
// no configuration overrides it.
const DefaultMaxOpenFiles = 16
