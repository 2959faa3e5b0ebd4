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

// Package ktest holds test support shared across the kernel packages'
// test files, adapted from the teacher's pkg/test (TLog/NewLogger's
// testing.TB-backed io.Writer, WaitFor's poll loop) generalized here
// with a deterministic sched.TimeSource fake so scheduling tests don't
// depend on wall-clock timing.
package ktest

import (
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

// TLog redirects the log package's output to t for the duration of a
// test, returning a function to restore stderr, exactly like the
// teacher's test.TLog.
func TLog(t testing.TB) func() {
	log.SetOutput(twriter{t: t})
	return func() {
		log.SetOutput(os.Stderr)
	}
}

type twriter struct {
	t testing.TB
}

func (w twriter) Write(p []byte) (int, error) {
	if w.t != nil {
		w.t.Log(strings.TrimSuffix(string(p), "\n"))
	}
	return len(p), nil
}

// NewLogger returns a logger that logs to t with the given prefix,
// exactly like the teacher's test.NewLogger.
func NewLogger(t *testing.T, prefix string) *log.Logger {
	return log.New(twriter{t: t}, prefix, log.LstdFlags)
}

// WaitFor polls condition immediately and then every checkInterval
// until it returns true or maxWait elapses, like the teacher's
// test.WaitFor.
func WaitFor(condition func() bool, maxWait, checkInterval time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(checkInterval)
	}
}
