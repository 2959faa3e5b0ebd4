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

import "strings"

// maxSymlinkDepth bounds readlink expansion to prevent livelock
// (spec.md §4.5 step 3).
const maxSymlinkDepth = 8

var errTooManySymlinks = Errno(ENameTooLong)

// NormalizePath collapses "//" into "/", eliminates "/./", and resolves
// "/.." lexically, purely as a string operation with no filesystem
// lookups (spec.md §4.5 step 1). Repeated normalization is idempotent
// and "/a/./b", "/a//b", "/a/c/../b" all normalize to "/a/b" (§8
// property 6).
func NormalizePath(path string) string {
	abs := strings.HasPrefix(path, "/")
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, p)
		}
	}
	joined := strings.Join(out, "/")
	if abs {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// Resolver walks a normalized path against a MountTable, performing
// symlink expansion when the target filesystem supports it.
type Resolver struct {
	Mounts *MountTable
}

// ResolveResult is the outcome of walking a path to its final
// filesystem and leaf name, ready for Open/Lstat/etc.
type ResolveResult struct {
	FS   FilesystemBase
	Name string // remainder path, relative to FS's root
}

// Resolve normalizes path, finds its mountpoint, and follows symlinks
// (bounded at maxSymlinkDepth) when the owning filesystem supports them
// and followSymlink is true (false for lstat/readlink's own target,
// true for open and most other operations per spec.md §4.5 step 3).
func (r *Resolver) Resolve(path string, followSymlink bool) (ResolveResult, error) {
	cur := NormalizePath(path)
	for depth := 0; ; depth++ {
		fs, remainder, ok := r.Mounts.Resolve(cur)
		if !ok {
			return ResolveResult{}, ENoSuchFile
		}
		if !followSymlink || !fs.SupportsSymlinks() {
			return ResolveResult{FS: fs, Name: remainder}, nil
		}
		var st Stat
		if err := fs.Lstat(remainder, &st); err != nil {
			return ResolveResult{}, err
		}
		if st.Kind != KindSymlink {
			return ResolveResult{FS: fs, Name: remainder}, nil
		}
		if depth >= maxSymlinkDepth {
			return ResolveResult{}, errTooManySymlinks
		}
		target, err := fs.Readlink(remainder)
		if err != nil {
			return ResolveResult{}, err
		}
		if strings.HasPrefix(target, "/") {
			cur = NormalizePath(target)
		} else {
			cur = NormalizePath(parentOf(cur) + "/" + target)
		}
	}
}

func parentOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return "/"
	}
	return path[:i]
}
