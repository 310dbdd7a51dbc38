package dispatch

import (
	"time"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
)

const largeFreeSpaceBytes = 100 * 1024 * 1024 * 1024

// GetFileInformation implements spec.md §4.G's GetFileInformation,
// including the post-close-written-size override described in spec.md §3
// (a write not yet observed by the VFS must still be visible to a
// concurrent stat). Grounded on FSOperations.GetFileInformation.
func (s *State) GetFileInformation(path string, info *dokanhost.FileInfo) (dokanfs.Info, errors.NTStatus) {
	path = normalize(path)

	var result dokanfs.Info
	status := s.wrap(info, func() (errors.NTStatus, error) {
		finfo, err := s.fs.GetInfo(path)
		if err != nil {
			return 0, err
		}

		if writtenSize := s.highestWrittenSize(path); writtenSize > finfo.Details.Size {
			finfo.Details.Size = writtenSize
		}
		result = finfo
		return errors.StatusSuccess, nil
	})

	return result, status
}

// highestWrittenSize returns the largest post-close written size tracked by
// any still-open handle for path. Each handle's size is read under its own
// Mutex, the same lock WriteFile holds while updating it (spec.md §5: no
// unsynchronized access to per-handle state across concurrent callbacks).
func (s *State) highestWrittenSize(path string) int64 {
	var max int64
	for _, of := range s.handles.Snapshot() {
		if of.Path != path {
			continue
		}
		of.Mutex.Lock()
		sz := of.SizeWritten()
		of.Mutex.Unlock()
		if sz > max {
			max = sz
		}
	}
	return max
}

// FindFiles implements spec.md §4.G's FindFiles: list a directory's
// entries, filtering out anything pending-delete. Grounded on
// FSOperations.FindFiles.
func (s *State) FindFiles(path string, fill func(dokanfs.DirEntry) error, info *dokanhost.FileInfo) errors.NTStatus {
	path = normalize(path)

	return s.wrap(info, func() (errors.NTStatus, error) {
		entries, err := s.fs.ListDirInfo(path)
		if err != nil {
			return 0, err
		}
		for _, entry := range entries {
			childPath := joinPath(path, entry.Name)
			if s.isPendingDelete(childPath) {
				continue
			}
			if err := fill(entry); err != nil {
				return 0, err
			}
		}
		return errors.StatusSuccess, nil
	})
}

// FindFilesWithPattern implements spec.md §4.G's FindFilesWithPattern.
// Grounded on FSOperations.FindFilesWithPattern. Per SPEC_FULL.md's
// resolution of spec.md §9's Open Question 3, it returns StatusSuccess
// unconditionally on the success path rather than propagating any
// per-entry signal, matching the original's implicit "assume 0" return.
func (s *State) FindFilesWithPattern(dirPath, pattern string,
	fill func(dokanfs.DirEntry) error, info *dokanhost.FileInfo) errors.NTStatus {

	dirPath = normalize(dirPath)

	return s.wrap(info, func() (errors.NTStatus, error) {
		names, err := s.fs.ListDir(dirPath)
		if err != nil {
			return 0, err
		}
		for _, name := range names {
			childPath := joinPath(dirPath, name)
			if !s.nameMatches(pattern, name) {
				continue
			}
			if s.isPendingDelete(childPath) {
				continue
			}
			finfo, err := s.fs.GetInfo(childPath)
			if err != nil {
				return 0, err
			}
			if err := fill(dokanfs.DirEntry{Name: name, Info: finfo}); err != nil {
				return 0, err
			}
		}
		return errors.StatusSuccess, nil
	})
}

// SetFileAttributes implements spec.md §4.G's SetFileAttributes. The
// backing VFS contract has no attribute-bits concept beyond the POSIX mode
// bits GetInfo already reports, so — matching FSOperations.SetFileAttributes
// verbatim ("TODO: decode various file attributes") — this is an
// unconditional success with no effect.
func (s *State) SetFileAttributes(path string, attributes uint32, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		return errors.StatusSuccess, nil
	})
}

// SetFileTime implements spec.md §4.G's SetFileTime. Setting creation time
// is not supported by the VFS contract; access/modified times are passed
// through, and an Unsupported error from the backend is swallowed exactly
// as FSOperations.SetFileTime does ("some programs demand this succeed;
// fake it").
func (s *State) SetFileTime(path string, created, accessed, modified time.Time, info *dokanhost.FileInfo) errors.NTStatus {
	path = normalize(path)

	return s.wrap(info, func() (errors.NTStatus, error) {
		err := s.fs.SetTimes(path, accessed, modified)
		if err != nil {
			if kind, ok := errors.KindOf(err); ok && kind == errors.Unsupported {
				return errors.StatusSuccess, nil
			}
			return 0, err
		}
		return errors.StatusSuccess, nil
	})
}

// DeleteFile implements spec.md §4.G's DeleteFile: marks path
// pending-delete; the actual removal happens in Cleanup.
// Grounded on FSOperations.DeleteFile.
func (s *State) DeleteFile(path string, info *dokanhost.FileInfo) errors.NTStatus {
	path = normalize(path)

	return s.wrap(info, func() (errors.NTStatus, error) {
		if !s.fs.IsFile(path) {
			if !s.fs.Exists(path) {
				return errors.StatusObjectNameNotFound, nil
			}
			return errors.StatusAccessDenied, nil
		}
		s.markPendingDelete(path)
		return errors.StatusSuccess, nil
	})
}

// DeleteDirectory implements spec.md §4.G's DeleteDirectory: fails unless
// every entry in the directory is itself pending-delete. Grounded on
// FSOperations.DeleteDirectory.
func (s *State) DeleteDirectory(path string, info *dokanhost.FileInfo) errors.NTStatus {
	path = normalize(path)

	return s.wrap(info, func() (errors.NTStatus, error) {
		names, err := s.fs.ListDir(path)
		if err != nil {
			return 0, err
		}
		for _, name := range names {
			if !s.isPendingDelete(joinPath(path, name)) {
				return errors.StatusDirectoryNotEmpty, nil
			}
		}
		s.markPendingDelete(path)
		return errors.StatusSuccess, nil
	})
}

// MoveFile implements spec.md §4.G's MoveFile: closes any open handle we
// own on the source first, then delegates to the VFS's move/movedir.
// Grounded on FSOperations.MoveFile.
func (s *State) MoveFile(path, newPath string, replaceExisting bool, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		if info.Context != 0 {
			of, err := s.handles.Get(info.Context)
			if err == nil {
				of.Mutex.Lock()
				closeErr := of.Stream.Close()
				of.Mutex.Unlock()
				s.handles.Unregister(info.Context)
				if closeErr != nil {
					return 0, closeErr
				}
			}
		}

		src := normalize(path)
		dst := normalize(newPath)

		var moveErr error
		if info.IsDirectory {
			moveErr = s.fs.MoveDir(src, dst, true)
		} else {
			moveErr = s.fs.Move(src, dst, true)
		}
		if moveErr != nil {
			return 0, moveErr
		}
		return errors.StatusSuccess, nil
	})
}

// GetDiskFreeSpace implements spec.md §4.G's GetDiskFreeSpace. The
// dokanfs.FileSystem contract has no free-space query, so — matching
// FSOperations.GetDiskFreeSpace's comment verbatim — this reports a large
// constant rather than failing an operation that might actually succeed.
func (s *State) GetDiskFreeSpace(info *dokanhost.FileInfo) (freeBytesAvailable, totalBytes, totalFreeBytes uint64, status errors.NTStatus) {
	status = s.wrap(info, func() (errors.NTStatus, error) {
		totalFreeBytes = largeFreeSpaceBytes
		totalBytes = 2 * largeFreeSpaceBytes
		freeBytesAvailable = totalFreeBytes
		return errors.StatusSuccess, nil
	})
	return
}

// GetVolumeInformation implements spec.md §4.G's GetVolumeInformation.
// Grounded on FSOperations.GetVolumeInformation.
func (s *State) GetVolumeInformation(info *dokanhost.FileInfo) (volumeName string, serialNumber uint32,
	maxComponentLen uint32, flags uint32, fsName string, status errors.NTStatus) {

	status = s.wrap(info, func() (errors.NTStatus, error) {
		volumeName = s.VolumeName
		serialNumber = 0
		maxComponentLen = 255
		flags = fileCaseSensitiveSearch | fileCasePreservedNames | fileSupportsRemoteStorage |
			fileUnicodeOnDisk | filePersistentACLs
		fsName = s.FileSystemName
		return errors.StatusSuccess, nil
	})
	return
}

// Windows volume-flag bits used by GetVolumeInformation, grounded on
// spec.md §6's list of FILE_CASE_SENSITIVE_SEARCH-family constants.
const (
	fileCaseSensitiveSearch   = 0x00000001
	fileCasePreservedNames    = 0x00000002
	fileUnicodeOnDisk         = 0x00000004
	filePersistentACLs        = 0x00000008
	fileSupportsRemoteStorage = 0x00000100
)

// FindStreams implements spec.md §4.G's FindStreams: unconditionally
// NOT_IMPLEMENTED, matching FSOperations.FindStreams. Alternate data
// streams have no equivalent in the dokanfs.FileSystem contract.
func (s *State) FindStreams(path string, fill func(name string, size int64) error, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		return errors.StatusNotImplemented, nil
	})
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
