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

package ksyscall

import (
	"log"
	"runtime"
	"sync"
)

// debugMutex wraps sync.Mutex with optional held-stack logging, for
// chasing deadlocks on the process table lock during development.
// Adapted from the teacher's syncutil.RWMutexTracker, trimmed to the
// write-only case this package needs (the process table is never
// read-locked) and gated behind Trace so a production build pays
// nothing for it.
type debugMutex struct {
	mu    sync.Mutex
	Trace bool

	holder []byte
}

func (m *debugMutex) Lock() {
	m.mu.Lock()
	if m.Trace {
		buf := make([]byte, 4096)
		m.holder = buf[:runtime.Stack(buf, false)]
		log.Printf("ksyscall: process table locked at\n%s", m.holder)
	}
}

func (m *debugMutex) Unlock() {
	if m.Trace {
		log.Printf("ksyscall: process table unlocked, was held at\n%s", m.holder)
	}
	m.mu.Unlock()
}
