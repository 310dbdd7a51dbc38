package dispatch

import (
	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
)

// ZwCreateFile implements spec.md §4.G's create/open path. Grounded on
// FSOperations.ZwCreateFile. The returned CreateAction only carries meaning
// when status is StatusSuccess; on any other status the caller should
// treat the request as failed.
func (s *State) ZwCreateFile(path string, info *dokanhost.FileInfo, access dokanfs.DesiredAccess,
	attributes uint32, shareMode uint32, disposition dokanfs.CreateDisposition, options dokanfs.CreateOptions) (dokanfs.CreateAction, errors.NTStatus) {

	path = normalize(path)

	var action dokanfs.CreateAction
	var status errors.NTStatus

	s.wrap(info, func() (errors.NTStatus, error) {
		// Can't open files that are pending delete.
		if s.isPendingDelete(path) {
			status = errors.StatusAccessDenied
			return status, nil
		}

		if access&(dokanfs.AccessReadData|dokanfs.AccessWriteData|dokanfs.AccessAppendData|dokanfs.AccessExecute) == 0 {
			if disposition == dokanfs.FileOpen || disposition == dokanfs.FileCreate {
				info.IsDirectory = false
			}
		}

		if s.fs.IsDir(path) || info.IsDirectory {
			info.IsDirectory = true
			action, status = s.createDirectory(path, disposition)
			return status, nil
		}

		action, status = s.createFile(path, info, access, disposition, options)
		return status, nil
	})

	return action, status
}

func (s *State) createDirectory(path string, disposition dokanfs.CreateDisposition) (dokanfs.CreateAction, errors.NTStatus) {
	switch disposition {
	case dokanfs.FileOpen:
		if s.fs.Exists(path) {
			return dokanfs.ActionOpened, errors.StatusSuccess
		}
		return dokanfs.ActionDoesNotExist, errors.NTStatus(dokanhost.FileDoesNotExist)

	case dokanfs.FileCreate:
		if err := s.fs.Mkdir(path); err == nil {
			return dokanfs.ActionCreated, errors.StatusSuccess
		}
		return dokanfs.ActionDoesNotExist, errors.NTStatus(dokanhost.FileDoesNotExist)

	case dokanfs.FileOpenIf:
		if s.fs.Exists(path) {
			return dokanfs.ActionOpened, errors.StatusSuccess
		}
		if err := s.fs.Mkdir(path); err == nil {
			return dokanfs.ActionCreated, errors.StatusSuccess
		}
		return dokanfs.ActionDoesNotExist, errors.NTStatus(dokanhost.FileDoesNotExist)

	default:
		return dokanfs.ActionOpened, errors.StatusSuccess
	}
}

func (s *State) createFile(path string, info *dokanhost.FileInfo, access dokanfs.DesiredAccess,
	disposition dokanfs.CreateDisposition, options dokanfs.CreateOptions) (dokanfs.CreateAction, errors.NTStatus) {

	if access == 0 {
		// DesiredAccess should not be zero.
		return dokanfs.ActionDoesNotExist, errors.NTStatus(dokanhost.FileDoesNotExist)
	}

	var mode dokanfs.OpenMode
	action := dokanfs.ActionOpened
	status := errors.StatusSuccess

	switch disposition {
	case dokanfs.FileOpen:
		mode = dokanfs.ModeRead
		if !s.fs.Exists(path) {
			return dokanfs.ActionDoesNotExist, errors.NTStatus(dokanhost.FileDoesNotExist)
		}
	case dokanfs.FileCreate:
		mode = dokanfs.ModeWrite
		if s.fs.Exists(path) {
			return dokanfs.ActionExists, errors.ErrorAlreadyExists
		}
		action = dokanfs.ActionCreated
	case dokanfs.FileOverwrite:
		mode = dokanfs.ModeWrite
		if !s.fs.Exists(path) {
			return dokanfs.ActionDoesNotExist, errors.NTStatus(dokanhost.FileDoesNotExist)
		}
		action = dokanfs.ActionOverwritten
	case dokanfs.FileOverwriteIf:
		mode = dokanfs.ModeWrite
		action = dokanfs.ActionOverwritten
	case dokanfs.FileSupersede:
		mode = dokanfs.ModeWrite
		action = dokanfs.ActionSuperseded
	case dokanfs.FileOpenIf:
		mode = dokanfs.ModeWrite
		action = dokanfs.ActionOpened
	default:
		mode = dokanfs.ModeRead
	}

	stream, err := s.fs.Open(path, mode)
	if err != nil {
		return dokanfs.ActionDoesNotExist, translate(err)
	}

	of := s.handles.Register(path, stream, mode, false)
	info.Context = of.Handle

	if status == errors.StatusSuccess && options.Has(dokanfs.FileDeleteOnClose) {
		s.markPendingDelete(path)
	}

	return action, status
}

// Cleanup implements spec.md §4.G's Cleanup: the final reference to a
// handle being released by the OS, though the handle's context is still
// valid for any I/O that might still arrive. Grounded on
// FSOperations.Cleanup.
func (s *State) Cleanup(path string, info *dokanhost.FileInfo) {
	path = normalize(path)

	s.wrapVoid(info, func() error {
		if info.IsDirectory {
			if info.DeleteOnClose {
				if err := s.fs.RemoveDir(path); err != nil {
					return err
				}
				s.clearPendingDelete(path)
			}
			return nil
		}

		of, err := s.handles.Get(info.Context)
		if err != nil {
			return err
		}
		of.Mutex.Lock()
		defer of.Mutex.Unlock()

		if closeErr := of.Stream.Close(); closeErr != nil {
			return closeErr
		}
		if info.DeleteOnClose {
			if err := s.fs.Remove(path); err != nil {
				return err
			}
			s.clearPendingDelete(path)
			s.handles.Unregister(info.Context)
			info.Context = 0
		}
		return nil
	})
}

// CloseFile implements spec.md §4.G's CloseFile: the kernel is fully done
// with the handle. Grounded on FSOperations.CloseFile.
func (s *State) CloseFile(path string, info *dokanhost.FileInfo) {
	s.wrapVoid(info, func() error {
		if info.Context == 0 {
			return nil
		}
		of, err := s.handles.Get(info.Context)
		if err != nil {
			return err
		}
		of.Mutex.Lock()
		defer of.Mutex.Unlock()
		if !of.Stream.Closed() {
			if err := of.Stream.Close(); err != nil {
				return err
			}
		}
		s.handles.Unregister(info.Context)
		info.Context = 0
		return nil
	})
}
