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

package sched

import (
	"github.com/mkos/kernel/pkg/kernel/thread"
)

// idleEntry is the body of the kernel's own idle thread (spec.md §4.1:
// "lowest priority, runs a loop that reclaims DETACHED terminated
// threads' stacks and control blocks, then issues the architecture's
// low-power wait-for-interrupt"). It never returns on its own; the
// Kernel stops scheduling it (and the goroutine exits) only when
// Shutdown is called.
func idleEntry(t *thread.Thread, arg any) any {
	k := arg.(*Kernel)
	for {
		if k.idleStep() {
			return nil
		}
	}
}

// idleStep reclaims one round of detached, terminated threads, then
// waits for the next tick or reschedule. It returns true once the
// kernel has been asked to shut down.
func (k *Kernel) idleStep() bool {
	k.reclaimTerminated()
	return k.idleWait()
}

// reclaimTerminated drops the Kernel's registry entry for every
// detached thread that has already terminated, the host-level analog
// of freeing a real kernel's thread control block and stack (spec.md
// §5: a detached thread's resources are reclaimed without anyone
// calling Join).
func (k *Kernel) reclaimTerminated() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, t := range k.threads {
		if t.State() == thread.StateTerminated && !t.Joinable() {
			delete(k.threads, id)
		}
	}
}
