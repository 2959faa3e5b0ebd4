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

import (
	"log"
	"os"
)

// Halt is the hosted-build stand-in for the architecture's halt-and-
// never-return routine (spec.md §4.4, §7): a Hardfault or BusFault with
// no recovering thread leaves the system unable to make progress. Real
// firmware spins with interrupts disabled; a hosted simulation exits
// the process instead so a test harness sees the failure.
func Halt(msg string, err error) {
	if err != nil {
		log.Printf("mpu: halt: %s: %v", msg, err)
	} else {
		log.Printf("mpu: halt: %s", msg)
	}
	os.Exit(1)
}
