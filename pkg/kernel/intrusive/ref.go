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

package intrusive

import "sync/atomic"

// RefCounted is embedded by value in every object the kernel shares via
// an intrusive pointer (Thread, FileBase, FilesystemBase). The count
// lives inside the object itself, so cloning a reference never touches
// the heap. The ownership graph is required to be acyclic (§5): a
// FileBase strongly references its FilesystemBase, never the reverse, so
// no weak pointer type is needed.
type RefCounted struct {
	n atomic.Int64
}

// Init sets the starting reference count. Call it once, right after
// constructing the owner, with the number of references the
// constructor itself hands out (normally 1).
func (r *RefCounted) Init(initial int64) { r.n.Store(initial) }

// Retain increments the count and returns the new value. Safe to call
// from any thread, including interrupt context, since it is a single
// atomic add.
func (r *RefCounted) Retain() int64 { return r.n.Add(1) }

// Release decrements the count and runs onZero exactly once, the
// instant the count reaches zero — the Go equivalent of the source
// kernel's "last dropped reference destroys the object". Release
// returns the count after the decrement.
func (r *RefCounted) Release(onZero func()) int64 {
	v := r.n.Add(-1)
	if v < 0 {
		panic("intrusive: refcount dropped below zero")
	}
	if v == 0 && onZero != nil {
		onZero()
	}
	return v
}

// Count returns the current reference count, for tests and diagnostics.
func (r *RefCounted) Count() int64 { return r.n.Load() }
