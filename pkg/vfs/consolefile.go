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

// ConsoleFile is the FileBase a process's fds 0/1/2 are installed with
// at spawn time: a thin adapter over DefaultConsole's TerminalDevice,
// giving every process the same line-disciplined stdin/stdout/stderr
// without a concrete filesystem backing it (spec.md §4.5 DefaultConsole).
type ConsoleFile struct {
	FileBaseCommon
	term *TerminalDevice
}

// NewConsoleFile wraps the process-wide console singleton's terminal.
func NewConsoleFile(parent FilesystemBase) *ConsoleFile {
	f := &ConsoleFile{term: DefaultConsole().Terminal()}
	f.Init(parent)
	return f
}

func (f *ConsoleFile) Read(buf []byte) (int, error)  { return f.term.Read(buf) }
func (f *ConsoleFile) Write(buf []byte) (int, error) { return f.term.Write(buf) }
func (f *ConsoleFile) Lseek(offset int64, whence Whence) (int64, error) {
	return 0, ENotSupported
}
func (f *ConsoleFile) Fstat(out *Stat) error {
	*out = Stat{StDev: f.Parent.ID(), Kind: KindCharDevice}
	return nil
}
func (f *ConsoleFile) Isatty() bool { return f.term.Isatty() }
func (f *ConsoleFile) Sync() error  { return nil }
func (f *ConsoleFile) Ioctl(cmd uint32, arg uintptr) error {
	return f.term.Ioctl(cmd, arg)
}
func (f *ConsoleFile) Getdents() ([]Dirent, error)         { return nil, ENotDirectory }
func (f *ConsoleFile) Fcntl(cmd uint32, arg uintptr) (int, error) { return 0, nil }
func (f *ConsoleFile) Ftruncate(size int64) error                { return ENotSupported }

func (f *ConsoleFile) Retain() *FileHandle { return f.RetainAs(f) }
func (f *ConsoleFile) Release()            { f.ReleaseAs(nil) }
