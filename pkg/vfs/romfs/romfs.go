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

// Package romfs is a read-only, memory-mapped filesystem reader: the
// Go port of the original miosix MemoryMappedRomFs
// (miosix/filesystem/romfs), which mounts a flat image appended after
// the kernel's own flash image as a FilesystemBase. This port replaces
// "memory-mapped flash" with an in-process []byte image (supplied by
// whatever loaded it — flash read, host file, test fixture) and adds an
// explicit header/entry wire format, since the original relies on the
// C++ struct layout of RomFsHeader/RomFsDirectoryEntry rather than a
// documented format.
package romfs

import (
	"encoding/binary"
	"errors"

	"github.com/mkos/kernel/pkg/vfs"
)

// magic identifies a valid ROMFS image: the ASCII bytes "RFS1".
const magic = 0x31534652

// headerSize is the fixed 16-byte header: magic, entry count, image
// size, and a reserved word.
const headerSize = 16

// entryHeaderSize is the fixed portion of each directory entry, before
// its variable-length name: kind (1), name length (1), reserved (2),
// offset (4), size (4).
const entryHeaderSize = 12

// ErrCorrupt is returned when an image's header or directory cannot be
// parsed.
var ErrCorrupt = errors.New("romfs: corrupt image")

type entry struct {
	kind   vfs.FileKind
	name   string
	offset uint32
	size   uint32
}

// Filesystem is a parsed, read-only ROMFS image: a flat directory of
// regular files and symlinks, looked up by exact name match (no nested
// directories, matching the original's single flat romfs instance per
// mountpoint).
type Filesystem struct {
	vfs.FilesystemBaseCommon
	image   []byte
	entries map[string]entry
}

// Open parses image's header and directory, without copying the file
// payload bytes (Filesystem.image aliases the caller's slice, matching
// the original's memory-mapped, zero-copy design).
func Open(image []byte) (*Filesystem, error) {
	if len(image) < headerSize {
		return nil, ErrCorrupt
	}
	if binary.LittleEndian.Uint32(image[0:4]) != magic {
		return nil, ErrCorrupt
	}
	count := binary.LittleEndian.Uint32(image[4:8])
	dirOffset := uint32(headerSize)

	entries := make(map[string]entry, count)
	off := dirOffset
	for i := uint32(0); i < count; i++ {
		if int(off)+entryHeaderSize > len(image) {
			return nil, ErrCorrupt
		}
		kind := vfs.FileKind(image[off])
		nameLen := int(image[off+1])
		fileOffset := binary.LittleEndian.Uint32(image[off+4 : off+8])
		fileSize := binary.LittleEndian.Uint32(image[off+8 : off+12])
		nameStart := off + entryHeaderSize
		if int(nameStart)+nameLen > len(image) {
			return nil, ErrCorrupt
		}
		name := string(image[nameStart : int(nameStart)+nameLen])
		entries[name] = entry{kind: kind, name: name, offset: fileOffset, size: fileSize}
		off = nameStart + uint32(nameLen)
	}

	fs := &Filesystem{image: image, entries: entries}
	fs.InitFilesystem()
	return fs, nil
}

func (fs *Filesystem) lookup(name string) (entry, bool) {
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	e, ok := fs.entries[name]
	return e, ok
}

func (fs *Filesystem) Open(name string, flags vfs.OpenFlags, mode uint32) (vfs.FileBase, error) {
	if flags&(vfs.OWrOnly|vfs.ORdWr|vfs.OCreat|vfs.OTrunc) != 0 {
		return nil, vfs.EReadOnlyFilesystem
	}
	e, ok := fs.lookup(name)
	if !ok {
		return nil, vfs.ENoSuchFile
	}
	if e.kind != vfs.KindRegular {
		return nil, vfs.ENotSupported
	}
	f := &File{fs: fs, entry: e}
	f.Init(fs)
	return f, nil
}

func (fs *Filesystem) Lstat(name string, out *vfs.Stat) error {
	if name == "/" || name == "" {
		*out = vfs.Stat{StDev: fs.ID(), Kind: vfs.KindDirectory}
		return nil
	}
	e, ok := fs.lookup(name)
	if !ok {
		return vfs.ENoSuchFile
	}
	*out = vfs.Stat{StDev: fs.ID(), Kind: e.kind, Size: int64(e.size)}
	return nil
}

func (fs *Filesystem) Unlink(name string) error             { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Rename(oldname, newname string) error { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Mkdir(name string, mode uint32) error { return vfs.EReadOnlyFilesystem }
func (fs *Filesystem) Rmdir(name string) error              { return vfs.EReadOnlyFilesystem }

func (fs *Filesystem) Readlink(name string) (string, error) {
	e, ok := fs.lookup(name)
	if !ok {
		return "", vfs.ENoSuchFile
	}
	if e.kind != vfs.KindSymlink {
		return "", vfs.ENotSupported
	}
	return string(fs.image[e.offset : e.offset+e.size]), nil
}

func (fs *Filesystem) SupportsSymlinks() bool { return true }
