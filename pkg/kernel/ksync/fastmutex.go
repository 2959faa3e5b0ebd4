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

import (
	"github.com/mkos/kernel/pkg/kernel/intrusive"
	"github.com/mkos/kernel/pkg/kernel/thread"
)

// FastMutex is the non-inheriting lock of spec.md §4.3: a plain FIFO
// wait list, optionally recursive, no priority bookkeeping at all.
type FastMutex struct {
	recursive bool
	owner     *thread.Thread
	depth     int
	wait      intrusive.List
}

func NewFastMutex(recursive bool) *FastMutex {
	return &FastMutex{recursive: recursive}
}

func (m *FastMutex) Lock(s Scheduler) error {
	self := s.Current()
	if m.owner == nil {
		m.owner = self
		m.depth = 0
		return nil
	}
	if m.owner == self {
		if !m.recursive {
			return ErrDeadlock
		}
		m.depth++
		return nil
	}
	m.wait.PushBack(&self.WaitLink)
	s.Block(self, thread.StateWaiting)
	return nil
}

func (m *FastMutex) TryLock(s Scheduler) (bool, error) {
	self := s.Current()
	if m.owner == nil {
		m.owner = self
		m.depth = 0
		return true, nil
	}
	if m.owner == self {
		if !m.recursive {
			return false, ErrDeadlock
		}
		m.depth++
		return true, nil
	}
	return false, nil
}

func (m *FastMutex) Unlock(s Scheduler) error {
	self := s.Current()
	if m.owner != self {
		return ErrNotOwner
	}
	if m.depth > 0 {
		m.depth--
		return nil
	}
	m.owner = nil
	if front := m.wait.PopFront(); front != nil {
		next := front.(*thread.Thread)
		m.owner = next
		m.depth = 0
		s.Wake(next)
	}
	return nil
}
