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

// nullConsole is installed before a BSP calls IRQSet: reads/writes
// succeed as no-ops (spec.md §4.5 "Before installation, reads/writes
// succeed as no-ops").
type nullConsole struct{}

func (nullConsole) Read(buf []byte) (int, error)  { return 0, nil }
func (nullConsole) Write(buf []byte) (int, error) { return len(buf), nil }
func (nullConsole) IRQWrite(msg string)           {}

var defaultConsole = &defaultConsoleT{
	device:   nullConsole{},
	terminal: NewTerminalDevice(nullConsole{}),
}

// defaultConsoleT is the process-wide singleton of spec.md §4.5: the
// currently-installed low-level ConsoleDevice plus a cached
// TerminalDevice wrapping it.
type defaultConsoleT struct {
	mu       sync.Mutex
	device   ConsoleDevice
	terminal *TerminalDevice
}

// DefaultConsole returns the process-wide console singleton.
func DefaultConsole() *defaultConsoleT { return defaultConsole }

// IRQSet installs dev as the low-level console device, called by BSP
// code during boot. Takes the scheduler-paused/interrupt-disabled
// discipline as given — it is named IRQSet to match the source's
// IRQ_set naming for functions meant to be called from a context where
// preemption cannot interleave with the swap.
func (c *defaultConsoleT) IRQSet(dev ConsoleDevice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.device = dev
	c.terminal = NewTerminalDevice(dev)
}

// Terminal returns the cached TerminalDevice wrapping the currently
// installed device.
func (c *defaultConsoleT) Terminal() *TerminalDevice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

// IRQWrite writes msg directly to the low-level device, bypassing the
// line discipline and any locking, for use from fault handlers before
// the scheduler is known to be in a safe state (SPEC_FULL.md §3,
// grounded in original_source's IRQDisplayPrint).
func (c *defaultConsoleT) IRQWrite(msg string) {
	c.device.IRQWrite(msg)
}
