// Package dokanfs defines the contract between the operation dispatcher and
// the virtual filesystem (VFS) backend it exposes at a mount point. It does
// not implement a filesystem itself: everything here is interfaces and the
// small value types needed to call them.
package dokanfs

import (
	"io"
	"os"
	"time"
)

// Stream is the interface a VFS backend's open file handles must satisfy.
// It is meant to be a drop-in replacement for the file-handle-shaped part of
// [os.File].
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Truncate sets the length of the stream's underlying file.
	Truncate(size int64) error
	// Flush pushes any buffered writes to the backend.
	Flush() error
	// Mode returns the flags the stream was opened with.
	Mode() OpenMode
	// Closed reports whether Close has already been called.
	Closed() bool
}

// OpenMode mirrors the subset of fopen(3)-style mode strings the dispatcher
// needs to remember in order to transparently reopen a file after Cleanup.
type OpenMode string

const (
	ModeRead        OpenMode = "r+b"
	ModeWrite       OpenMode = "w+b"
	ModeReadOnly    OpenMode = "rb"
	ModeWriteCreate OpenMode = "w+b"
)

// Details is the subset of file metadata that spec.md's VFS contract groups
// under the "details" namespace.
type Details struct {
	Created  time.Time
	Accessed time.Time
	Modified time.Time
	Size     int64
}

// Info is the record returned by FileSystem.GetInfo. Mode carries the
// "basic" namespace as an os.FileMode; Details carries the "details"
// namespace. Giving Details a concrete struct (rather than a stringly-typed
// namespace lookup, as the Python original did) resolves the ambiguity
// spec.md §9 flags around `_info2finddataw`.
type Info struct {
	Mode    os.FileMode
	Details Details
}

// IsDir reports whether Mode describes a directory.
func (i Info) IsDir() bool { return i.Mode.IsDir() }

// DirEntry is one entry returned by FileSystem.ListDirInfo.
type DirEntry struct {
	Name string
	Info Info
}

// FileSystem is the capability set a VFS backend must implement. The
// dispatcher never touches anything below this interface: every NT
// filesystem semantic it has to emulate is built on these thirteen methods.
type FileSystem interface {
	Exists(path string) bool
	IsDir(path string) bool
	IsFile(path string) bool

	Mkdir(path string) error

	Open(path string, mode OpenMode) (Stream, error)

	ListDir(path string) ([]string, error)
	ListDirInfo(path string) ([]DirEntry, error)

	GetInfo(path string) (Info, error)
	SetTimes(path string, accessed, modified time.Time) error

	Remove(path string) error
	RemoveDir(path string) error

	Move(src, dst string, overwrite bool) error
	MoveDir(src, dst string, create bool) error
}
