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

package kconfig

import (
	"fmt"

	"go4.org/jsonconfig"
)

// SchedulerKind selects one of the three scheduler flavors of spec.md
// §4.2 at process-start time.
type SchedulerKind string

const (
	SchedulerFixed   SchedulerKind = "fixed"
	SchedulerControl SchedulerKind = "control"
	SchedulerEDF     SchedulerKind = "edf"
)

// Settings is the process-wide configuration singleton, populated once
// from a jsonconfig.Obj (or Defaults()) at boot, mirroring the
// teacher's pattern of loading a jsonconfig.Obj into a typed struct via
// Required*/Optional* accessors and calling Validate at the end.
type Settings struct {
	Scheduler       SchedulerKind
	PriorityMax     int
	DefaultStack    int
	MaxOpenFiles    int
	DevfsEnabled    bool
	ProcessesEnabled bool
	DefaultBaud     int
	// DebugLocks enables held-stack logging on the syscall dispatcher's
	// process table lock, for chasing deadlocks; off by default since it
	// logs on every lock/unlock.
	DebugLocks bool

	// Control-scheduler-only tuning; ignored by other scheduler kinds.
	NominalRoundNanos int64
	BurstMinNanos     int64
	BurstMaxNanos     int64
	TickGranularity   int64
}

// Defaults returns the settings a board with no configuration file
// boots with: fixed-priority scheduling, 32 priority levels, the
// package's default stack size and fd-table size, devfs and processes
// compiled in, 115200 baud.
func Defaults() Settings {
	return Settings{
		Scheduler:         SchedulerFixed,
		PriorityMax:       32,
		DefaultStack:      DefaultStackSize,
		MaxOpenFiles:      DefaultMaxOpenFiles,
		DevfsEnabled:      true,
		ProcessesEnabled:  true,
		DefaultBaud:       115200,
		NominalRoundNanos: 10_000_000,
		BurstMinNanos:     1_000_000,
		BurstMaxNanos:     5_000_000,
		TickGranularity:   1_000_000,
	}
}

// Load populates Settings from a jsonconfig.Obj, the way teacher code
// loads a serverconfig.Config: known keys are read with Optional*
// accessors seeded from Defaults(), then config.Validate() reports any
// key the caller didn't recognize.
func Load(config jsonconfig.Obj) (Settings, error) {
	s := Defaults()
	s.Scheduler = SchedulerKind(config.OptionalString("scheduler", string(s.Scheduler)))
	s.PriorityMax = config.OptionalInt("priorityMax", s.PriorityMax)
	s.DefaultStack = config.OptionalInt("defaultStack", s.DefaultStack)
	s.MaxOpenFiles = config.OptionalInt("maxOpenFiles", s.MaxOpenFiles)
	s.DevfsEnabled = config.OptionalBool("devfs", s.DevfsEnabled)
	s.ProcessesEnabled = config.OptionalBool("processes", s.ProcessesEnabled)
	s.DefaultBaud = config.OptionalInt("baud", s.DefaultBaud)
	s.DebugLocks = config.OptionalBool("debugLocks", s.DebugLocks)

	if err := config.Validate(); err != nil {
		return Settings{}, err
	}
	switch s.Scheduler {
	case SchedulerFixed, SchedulerControl, SchedulerEDF:
	default:
		return Settings{}, fmt.Errorf("kconfig: unknown scheduler kind %q", s.Scheduler)
	}
	if s.PriorityMax < 1 {
		return Settings{}, fmt.Errorf("kconfig: priorityMax must be >= 1")
	}
	return s, nil
}
