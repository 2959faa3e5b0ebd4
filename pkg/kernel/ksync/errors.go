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

package ksync

import "errors"

var (
	// ErrDeadlock is returned by Lock when the calling thread already
	// owns a non-recursive mutex (spec.md §7 Deadlock).
	ErrDeadlock = errors.New("ksync: thread already owns this non-recursive mutex")
	// ErrNotOwner is returned by Unlock when the caller does not own
	// the mutex.
	ErrNotOwner = errors.New("ksync: unlock by non-owner")
)
