package dispatch

import (
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
)

// LockFile implements spec.md §4.G's LockFile: append a new byte-range
// lock if it does not conflict with any existing lock on path. Grounded on
// FSOperations.LockFile.
func (s *State) LockFile(path string, offset, length int64, info *dokanhost.FileInfo) errors.NTStatus {
	path = normalize(path)

	return s.wrap(info, func() (errors.NTStatus, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		existing, _ := s.locks.Get(path)
		if status := s.checkLockLocked(existing, offset, length); status != errors.StatusSuccess {
			return status, nil
		}

		existing = append(existing, lockRange{owner: info.Context, start: offset, end: offset + length})
		s.locks.Set(path, existing)
		return errors.StatusSuccess, nil
	})
}

// checkLockLocked is checkLock's body for callers that already hold s.mu
// and have the candidate lock list in hand (LockFile checks against every
// existing lock, including its own handle's, exactly as
// FSOperations._check_lock does when called with DokanFileInfo=None).
func (s *State) checkLockLocked(locks []lockRange, offset, length int64) errors.NTStatus {
	end := offset + length
	for _, r := range locks {
		if r.start >= end || r.end <= offset {
			continue
		}
		return errors.StatusLockNotGranted
	}
	return errors.StatusSuccess
}

// UnlockFile implements spec.md §4.G's UnlockFile: remove a lock whose
// (owner, offset, offset+length) exactly matches. Grounded on
// FSOperations.UnlockFile.
func (s *State) UnlockFile(path string, offset, length int64, info *dokanhost.FileInfo) errors.NTStatus {
	path = normalize(path)

	return s.wrap(info, func() (errors.NTStatus, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		existing, ok := s.locks.Get(path)
		if !ok {
			return errors.StatusNotLocked, nil
		}

		end := offset + length
		idx := -1
		for i, r := range existing {
			if r.owner == info.Context && r.start == offset && r.end == end {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errors.StatusNotLocked, nil
		}

		existing = append(existing[:idx], existing[idx+1:]...)
		if len(existing) == 0 {
			s.locks.Remove(path)
		} else {
			s.locks.Set(path, existing)
		}
		return errors.StatusSuccess, nil
	})
}
