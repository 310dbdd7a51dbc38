// Package dokanhost defines the contract between the operation dispatcher
// and the host kernel driver binding: the Options/Operations structs the
// driver's main entry point expects, the FileInfo context it threads
// through every callback, and the small set of primitives (RemoveMountPoint,
// ResetTimeout, IsNameInExpression, GetFileSecurity) the driver exposes
// back to us.
//
// Grounded on spec.md §6's "Driver binding" contract and on the original's
// DokanOptions/DokanOperations ctypes structures
// (_examples/original_source/dokan/__init__.py), translated from C struct
// layouts into Go function-pointer fields.
package dokanhost

import (
	"time"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/errors"
)

// Defaults from spec.md §4.H's fixed mount parameters.
const (
	DefaultTimeout            = 2000 * time.Millisecond
	DefaultSectorSize         = 512
	DefaultAllocationUnitSize = 512
)

// FileDoesNotExist is the raw numeric action code (5) ZwCreateFile returns
// as its status for the "directory open with FILE_OPEN and nothing there"
// branch, and likewise for a failed directory create, a file FILE_OPEN or
// FILE_OVERWRITE of a missing file, and a zero DesiredAccess. Per
// spec.md §9's Open Question and SPEC_FULL.md's resolution, this is kept
// as a distinct named constant and returned verbatim rather than translated
// into an NT status — preserving the original's behavior rather than
// "fixing" it.
const FileDoesNotExist = dokanfs.ActionDoesNotExist

// Options mirrors the driver's mount-time option struct: minimum
// compatible driver version, thread pool size, behavior flags, mount
// point, and the fixed timeout/sector/allocation-unit values spec.md §4.H
// names explicitly.
type Options struct {
	Version            int
	NumThreads         int
	Flags              dokanfs.MountFlags
	MountPoint         string
	Timeout            time.Duration
	SectorSize         uint32
	AllocationUnitSize uint32
}

// WithDefaults fills in spec.md §4.H's fixed values for any zero field.
func (o Options) WithDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.SectorSize == 0 {
		o.SectorSize = DefaultSectorSize
	}
	if o.AllocationUnitSize == 0 {
		o.AllocationUnitSize = DefaultAllocationUnitSize
	}
	return o
}

// FileInfo is the mutable per-call context the driver threads through every
// callback, corresponding to the original's DOKAN_FILE_INFO.
type FileInfo struct {
	IsDirectory      bool
	DeleteOnClose    bool
	WriteToEndOfFile bool
	// Context identifies the registered handles.OpenFile for this open,
	// or 0 if none has been assigned yet.
	Context uint64
}

// Function-pointer types for every callback named in spec.md §4.G. Field
// names on Operations match these exactly.
type (
	CreateFileFunc func(path string, info *FileInfo, access dokanfs.DesiredAccess, attributes uint32,
		shareMode uint32, disposition dokanfs.CreateDisposition, options dokanfs.CreateOptions) (dokanfs.CreateAction, errors.NTStatus)
	CleanupFunc          func(path string, info *FileInfo)
	CloseFileFunc        func(path string, info *FileInfo)
	ReadFileFunc         func(path string, buf []byte, offset int64, info *FileInfo) (int, errors.NTStatus)
	WriteFileFunc        func(path string, buf []byte, offset int64, info *FileInfo) (int, errors.NTStatus)
	FlushFileBuffersFunc func(path string, info *FileInfo) errors.NTStatus
	GetFileInformationFunc func(path string, info *FileInfo) (dokanfs.Info, errors.NTStatus)
	FindFilesFunc           func(path string, fill func(dokanfs.DirEntry) error, info *FileInfo) errors.NTStatus
	FindFilesWithPatternFunc func(path, pattern string, fill func(dokanfs.DirEntry) error, info *FileInfo) errors.NTStatus
	SetFileAttributesFunc    func(path string, attributes uint32, info *FileInfo) errors.NTStatus
	SetFileTimeFunc          func(path string, created, accessed, modified time.Time, info *FileInfo) errors.NTStatus
	DeleteFileFunc           func(path string, info *FileInfo) errors.NTStatus
	DeleteDirectoryFunc      func(path string, info *FileInfo) errors.NTStatus
	MoveFileFunc             func(path, newPath string, replaceExisting bool, info *FileInfo) errors.NTStatus
	SetEndOfFileFunc         func(path string, length int64, info *FileInfo) errors.NTStatus
	SetAllocationSizeFunc    func(path string, length int64, info *FileInfo) errors.NTStatus
	GetDiskFreeSpaceFunc     func(info *FileInfo) (freeBytesAvailable, totalBytes, totalFreeBytes uint64, status errors.NTStatus)
	GetVolumeInformationFunc func(info *FileInfo) (volumeName string, serialNumber uint32, maxComponentLen uint32,
		flags uint32, fsName string, status errors.NTStatus)
	LockFileFunc        func(path string, offset, length int64, info *FileInfo) errors.NTStatus
	UnlockFileFunc      func(path string, offset, length int64, info *FileInfo) errors.NTStatus
	GetFileSecurityFunc func(path string, info *FileInfo) (descriptor []byte, status errors.NTStatus)
	SetFileSecurityFunc func(path string, descriptor []byte, info *FileInfo) errors.NTStatus
	FindStreamsFunc     func(path string, fill func(name string, size int64) error, info *FileInfo) errors.NTStatus
	MountedFunc         func(mountPoint string, info *FileInfo) errors.NTStatus
	UnmountedFunc       func(info *FileInfo) errors.NTStatus
)

// Operations is the struct of function pointers the driver's main entry
// point invokes for every filesystem request, one field per spec.md §4.G
// callback.
type Operations struct {
	ZwCreateFile         CreateFileFunc
	Cleanup              CleanupFunc
	CloseFile            CloseFileFunc
	ReadFile             ReadFileFunc
	WriteFile            WriteFileFunc
	FlushFileBuffers     FlushFileBuffersFunc
	GetFileInformation   GetFileInformationFunc
	FindFiles            FindFilesFunc
	FindFilesWithPattern FindFilesWithPatternFunc
	SetFileAttributes    SetFileAttributesFunc
	SetFileTime          SetFileTimeFunc
	DeleteFile           DeleteFileFunc
	DeleteDirectory      DeleteDirectoryFunc
	MoveFile             MoveFileFunc
	SetEndOfFile         SetEndOfFileFunc
	SetAllocationSize    SetAllocationSizeFunc
	GetDiskFreeSpace     GetDiskFreeSpaceFunc
	GetVolumeInformation GetVolumeInformationFunc
	LockFile             LockFileFunc
	UnlockFile           UnlockFileFunc
	GetFileSecurity      GetFileSecurityFunc
	SetFileSecurity      SetFileSecurityFunc
	FindStreams          FindStreamsFunc
	Mounted              MountedFunc
	Unmounted            UnmountedFunc
}

// Binding is what a host kernel driver package must provide. Grounded on
// spec.md §6's "Driver binding" paragraph.
type Binding interface {
	// Main invokes the driver's entry point. It blocks until the mount is
	// torn down and returns a non-nil error on failure.
	Main(options *Options, ops *Operations) error

	// RemoveMountPoint asks the driver to unmount the given path,
	// reporting whether it succeeded.
	RemoveMountPoint(path string) bool

	// ResetTimeout extends the per-callback deadline for the in-flight
	// request identified by requestInfo.
	ResetTimeout(reset time.Duration, requestInfo any) bool

	// IsNameInExpression implements Windows wildcard matching
	// (FindFilesWithPattern's pattern argument).
	IsNameInExpression(pattern, name string, ignoreCase bool) bool

	// GetFileSecurity returns the Windows security descriptor bytes for
	// path, or an error if the driver cannot produce one.
	GetFileSecurity(path string) ([]byte, error)
}
