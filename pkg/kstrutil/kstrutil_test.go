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

package kstrutil

import (
	"reflect"
	"testing"
)

func TestAppendSplitN(t *testing.T) {
	got := AppendSplitN(nil, "a/b/c", "/", -1)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got = AppendSplitN(nil, "a/b/c", "/", 2)
	want = []string{"a", "b/c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	dst := []string{"prefix"}
	got = AppendSplitN(dst, "x/y", "/", -1)
	want = []string{"prefix", "x", "y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reused buffer: got %v, want %v", got, want)
	}
}

func TestCommonPrefixLen(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"/foo/bar", "/foo/baz", 7},
		{"", "anything", 0},
		{"same", "same", 4},
		{"abc", "abd", 2},
	}
	for _, c := range cases {
		if got := CommonPrefixLen(c.a, c.b); got != c.want {
			t.Errorf("CommonPrefixLen(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestIsPathPrefix(t *testing.T) {
	cases := []struct {
		prefix, path string
		want         bool
	}{
		{"/", "/anything", true},
		{"/foo", "/foo", true},
		{"/foo", "/foo/bar", true},
		{"/foo", "/foobar", false},
		{"/foo/bar", "/foo", false},
	}
	for _, c := range cases {
		if got := IsPathPrefix(c.prefix, c.path); got != c.want {
			t.Errorf("IsPathPrefix(%q,%q) = %v, want %v", c.prefix, c.path, got, c.want)
		}
	}
}
