package dispatch

import (
	"io"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
)

// ReadFile implements spec.md §4.G's ReadFile, including the
// handle-reopen-after-Cleanup behavior spec.md §9 explicitly preserves.
// Grounded on FSOperations.ReadFile.
func (s *State) ReadFile(path string, buf []byte, offset int64, info *dokanhost.FileInfo) (int, errors.NTStatus) {
	path = normalize(path)

	var n int
	status := s.wrap(info, func() (errors.NTStatus, error) {
		of, err := s.handles.Get(info.Context)
		if err != nil {
			return errors.StatusAccessDenied, nil
		}
		of.Mutex.Lock()
		defer of.Mutex.Unlock()

		if lockStatus := s.checkLock(path, offset, int64(len(buf)), info.Context, true); lockStatus != errors.StatusSuccess {
			return lockStatus, nil
		}

		if of.Stream.Closed() {
			// Reopening with "w+b" would truncate the file, so a handle
			// opened for writing is reopened read-write without truncation.
			reopenMode := of.Mode
			if reopenMode == dokanfs.ModeWrite {
				reopenMode = dokanfs.ModeRead
			}
			stream, err := s.fs.Open(path, reopenMode)
			if err != nil {
				return 0, err
			}
			if err := s.handles.Rebind(info.Context, stream, of.Mode); err != nil {
				return 0, err
			}
		}

		if _, err := of.Stream.Seek(offset, io.SeekStart); err != nil {
			return 0, err
		}
		read, err := io.ReadFull(of.Stream, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		n = read
		return errors.StatusSuccess, nil
	})

	return n, status
}

// WriteFile implements spec.md §4.G's WriteFile. Grounded on
// FSOperations.WriteFile.
func (s *State) WriteFile(path string, buf []byte, offset int64, info *dokanhost.FileInfo) (int, errors.NTStatus) {
	path = normalize(path)

	var n int
	status := s.wrap(info, func() (errors.NTStatus, error) {
		of, err := s.handles.Get(info.Context)
		if err != nil {
			return errors.StatusAccessDenied, nil
		}
		of.Mutex.Lock()
		defer of.Mutex.Unlock()

		if lockStatus := s.checkLock(path, offset, int64(len(buf)), info.Context, true); lockStatus != errors.StatusSuccess {
			return lockStatus, nil
		}

		if of.Stream.Closed() {
			reopenMode := of.Mode
			if reopenMode == dokanfs.ModeWrite {
				reopenMode = dokanfs.ModeRead
			}
			stream, err := s.fs.Open(path, reopenMode)
			if err != nil {
				return 0, err
			}
			if err := s.handles.Rebind(info.Context, stream, of.Mode); err != nil {
				return 0, err
			}
		}

		writeOffset := offset
		if info.WriteToEndOfFile {
			end, err := of.Stream.Seek(0, io.SeekEnd)
			if err != nil {
				return 0, err
			}
			writeOffset = end
		} else if _, err := of.Stream.Seek(offset, io.SeekStart); err != nil {
			return 0, err
		}

		written, err := of.Stream.Write(buf)
		if err != nil {
			return 0, err
		}
		n = written
		of.RecordWrite(writeOffset, int64(written))
		return errors.StatusSuccess, nil
	})

	return n, status
}

// FlushFileBuffers implements spec.md §4.G's FlushFileBuffers. Grounded on
// FSOperations.FlushFileBuffers.
func (s *State) FlushFileBuffers(path string, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		of, err := s.handles.Get(info.Context)
		if err != nil {
			return errors.StatusAccessDenied, nil
		}
		of.Mutex.Lock()
		defer of.Mutex.Unlock()
		if err := of.Stream.Flush(); err != nil {
			return 0, err
		}
		return errors.StatusSuccess, nil
	})
}

// SetEndOfFile implements spec.md §4.G's SetEndOfFile: truncate/extend the
// stream to length, preserving the read/write position the way
// FSOperations.SetEndOfFile does (seek back if the original position was
// still within bounds).
func (s *State) SetEndOfFile(path string, length int64, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		of, err := s.handles.Get(info.Context)
		if err != nil {
			return errors.StatusAccessDenied, nil
		}
		of.Mutex.Lock()
		defer of.Mutex.Unlock()

		pos, err := of.Stream.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		if length != pos {
			if _, err := of.Stream.Seek(length, io.SeekStart); err != nil {
				return 0, err
			}
		}
		if err := of.Stream.Truncate(length); err != nil {
			return 0, err
		}
		if pos < length {
			restore := pos
			if restore > length {
				restore = length
			}
			if _, err := of.Stream.Seek(restore, io.SeekStart); err != nil {
				return 0, err
			}
		}
		return errors.StatusSuccess, nil
	})
}

// SetAllocationSize implements spec.md §4.G's SetAllocationSize. The
// original notes there is no way to reserve space without moving
// end-of-file in its backend; dokanfs.FileSystem has the same limitation,
// so this is unconditionally a no-op success, matching
// FSOperations.SetAllocationSize verbatim.
func (s *State) SetAllocationSize(path string, length int64, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		return errors.StatusSuccess, nil
	})
}
