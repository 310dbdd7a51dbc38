package dispatch

import (
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
)

// GetFileSecurity implements spec.md §4.G's GetFileSecurity: directories
// get their security descriptor from the provider set with
// SetSecurityProvider, called with the directory's own VFS path; any error
// from it is reported as BUFFER_OVERFLOW. Files are unconditionally
// NOT_IMPLEMENTED. Grounded on
// FSOperations.GetFileSecurity.
func (s *State) GetFileSecurity(path string, info *dokanhost.FileInfo) ([]byte, errors.NTStatus) {
	path = normalize(path)

	var descriptor []byte
	status := s.wrap(info, func() (errors.NTStatus, error) {
		if !s.fs.IsDir(path) {
			return errors.StatusNotImplemented, nil
		}
		d, err := s.securityDescriptor(path)
		if err != nil {
			return errors.StatusBufferOverflow, nil
		}
		descriptor = d
		return errors.StatusSuccess, nil
	})
	return descriptor, status
}

// SetFileSecurity implements spec.md §4.G's SetFileSecurity:
// unconditionally NOT_IMPLEMENTED. Grounded on
// FSOperations.SetFileSecurity.
func (s *State) SetFileSecurity(path string, descriptor []byte, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		return errors.StatusNotImplemented, nil
	})
}

// Mounted implements spec.md §4.G's Mounted hook: default success.
// Grounded on FSOperations.Mounted.
func (s *State) Mounted(mountPoint string, info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		s.logger.Infof("mounted at %s", mountPoint)
		return errors.StatusSuccess, nil
	})
}

// Unmounted implements spec.md §4.G's Unmounted hook: default success.
// Grounded on FSOperations.Unmounted.
func (s *State) Unmounted(info *dokanhost.FileInfo) errors.NTStatus {
	return s.wrap(info, func() (errors.NTStatus, error) {
		s.logger.Infof("unmounted")
		return errors.StatusSuccess, nil
	})
}
