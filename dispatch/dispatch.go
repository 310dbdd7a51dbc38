// Package dispatch implements spec.md §4.G: the operation dispatcher that
// sits between the Dokan driver binding (dokanhost) and a VFS backend
// (dokanfs.FileSystem), translating every driver callback into calls
// against the backend and every backend error into an NT status code.
//
// Grounded file-for-file on
// _examples/original_source/dokan/__init__.py's FSOperations class. Where
// the original uses Python decorators (@timeout_protect, @handle_fs_errors)
// to wrap every method uniformly, this package uses a higher-order
// function, wrap, since Go has no method decorators (spec.md §9's design
// note).
package dispatch

import (
	"log"
	"os"
	"path"
	"sync"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
	"github.com/mountkit/dokanfs/handles"
	"github.com/mountkit/dokanfs/pathmap"
	"github.com/mountkit/dokanfs/timeoutwatch"
	"github.com/mountkit/dokanfs/vfspath"
)

// Logger is the minimal logging surface dispatch needs. Matching the
// teacher's practice of not pulling a logging framework into library code,
// the default implementation wraps the standard library's log.Logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type stdLogger struct {
	*log.Logger
}

func (l stdLogger) Debugf(format string, args ...any) { l.Printf("DEBUG "+format, args...) }
func (l stdLogger) Infof(format string, args ...any)  { l.Printf("INFO "+format, args...) }
func (l stdLogger) Errorf(format string, args ...any) { l.Printf("ERROR "+format, args...) }

// DefaultLogger returns the stdlib-backed Logger used when State is
// constructed without one.
func DefaultLogger() Logger {
	return stdLogger{log.New(os.Stderr, "dokanfs: ", log.LstdFlags)}
}

// lockRange is one entry of the byte-range lock table: a lock held by
// owner over [start, end).
type lockRange struct {
	owner uint64
	start int64
	end   int64
}

// State is the dispatcher's per-mount state: the VFS backend, the handle
// registry, the pending-delete set, the byte-range lock table, and the
// timeout watcher every callback registers with. One State is created per
// mount session.
//
// Grounded on FSOperations.__init__'s fields:
// _files_by_handle/_files_lock → handles.Registry;
// _pending_delete → pendingDelete; _active_locks → locks;
// _files_size_written → tracked per-handle inside handles.OpenFile.
type State struct {
	fs      dokanfs.FileSystem
	handles *handles.Registry
	watcher *timeoutwatch.Watcher
	logger  Logger

	// mu is the single "registry mutex" spec.md §5 describes protecting
	// the pending-delete set and the lock table; never held across I/O.
	mu            sync.Mutex
	pendingDelete *pathmap.Map[struct{}]
	locks         *pathmap.Map[[]lockRange]

	VolumeName     string
	FileSystemName string

	// nameMatches implements Windows wildcard matching for
	// FindFilesWithPattern, normally bound to the driver binding's
	// IsNameInExpression (spec.md §6).
	nameMatches func(pattern, name string) bool

	// securityDescriptor fetches a directory's Windows security
	// descriptor bytes, normally bound to the driver binding's
	// GetFileSecurity (spec.md §6). It is called with the VFS path of the
	// directory being queried; no separate security template folder is
	// configured.
	securityDescriptor func(path string) ([]byte, error)
}

// SetNameMatcher overrides the wildcard matcher FindFilesWithPattern uses,
// normally the host driver binding's IsNameInExpression.
func (s *State) SetNameMatcher(matcher func(pattern, name string) bool) {
	s.nameMatches = matcher
}

// SetSecurityProvider overrides the descriptor lookup GetFileSecurity uses,
// normally the host driver binding's GetFileSecurity.
func (s *State) SetSecurityProvider(provider func(path string) ([]byte, error)) {
	s.securityDescriptor = provider
}

// NewState constructs dispatcher state bound to fs and watcher. watcher is
// typically started and stopped by the mount.Controller that owns this
// State.
func NewState(fs dokanfs.FileSystem, watcher *timeoutwatch.Watcher, logger Logger, volumeName, fileSystemName string) *State {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &State{
		fs:             fs,
		handles:        handles.New(),
		watcher:        watcher,
		logger:         logger,
		pendingDelete:  pathmap.New[struct{}](),
		locks:          pathmap.New[[]lockRange](),
		VolumeName:     volumeName,
		FileSystemName: fileSystemName,
		nameMatches:    defaultNameMatcher,
		securityDescriptor: func(path string) ([]byte, error) {
			return nil, errors.Unsupported.WithMessage("no security provider configured")
		},
	}
}

// Handles exposes the registry for diagnostics (cmd/dokanfsctl's handle
// dump) and for mount.Controller.Unmount to close outstanding handles.
func (s *State) Handles() *handles.Registry { return s.handles }

// isPendingDelete reports whether path or any of its ancestors is marked
// pending-delete. Grounded on _is_pending_delete's recursepath walk,
// implemented here as pathmap.Map.HasAncestorOrSelf (spec.md §8 property
// 3).
func (s *State) isPendingDelete(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDelete.HasAncestorOrSelf(path)
}

func (s *State) markPendingDelete(path string) {
	s.mu.Lock()
	s.pendingDelete.Set(path, struct{}{})
	s.mu.Unlock()
}

func (s *State) clearPendingDelete(path string) {
	s.mu.Lock()
	s.pendingDelete.Remove(path)
	s.mu.Unlock()
}

// checkLock implements _check_lock: any lock on path that overlaps
// [offset, offset+length) and is not owned by excludeHandle blocks the
// request.
func (s *State) checkLock(path string, offset, length int64, excludeHandle uint64, hasExclude bool) errors.NTStatus {
	s.mu.Lock()
	ranges, _ := s.locks.Get(path)
	s.mu.Unlock()

	end := offset + length
	for _, r := range ranges {
		if hasExclude && r.owner == excludeHandle {
			continue
		}
		if r.start >= end || r.end <= offset {
			continue
		}
		return errors.StatusLockNotGranted
	}
	return errors.StatusSuccess
}

// normalize applies spec.md §4.A to every path argument a callback
// receives, per spec.md §4.G: "The path argument, where present, is
// immediately normalized via 4.A."
func normalize(path string) string {
	return vfspath.Normalize(path)
}

// translate maps any error returned from VFS backend code into an NT
// status, recovering the original errors.Kind from the error chain when
// present (spec.md §4.D). Errors that carry no recognizable Kind map to
// EFAULT's status, the same catch-all behavior as the original's bare
// `except FSError`.
func translate(err error) errors.NTStatus {
	if err == nil {
		return errors.StatusSuccess
	}
	if kind, ok := errors.KindOf(err); ok {
		return errors.KindToNTStatus(kind)
	}
	return errors.ErrnoToNTStatus(errors.EFAULT)
}

// wrap is the higher-order combinator spec.md §9 calls for in place of the
// original's @timeout_protect/@handle_fs_errors decorators: it registers
// the call with the timeout watcher for its duration, runs fn, and
// translates any returned error into an NT status. A nil error (with fn
// reporting no explicit status) normalizes to success, matching the
// original's "a None result means success" rule.
func (s *State) wrap(requestInfo any, fn func() (errors.NTStatus, error)) errors.NTStatus {
	h := s.watcher.Register(requestInfo)
	defer h.Finish()

	status, err := fn()
	if err != nil {
		return translate(err)
	}
	return status
}

// wrapVoid is wrap's shape for callbacks with no status return at all
// (Cleanup, CloseFile): the driver boundary has nowhere to report a
// failure, so errors are only logged, matching the original's behavior of
// letting exceptions from these two methods propagate to the thread pool's
// own handler rather than returning a code.
func (s *State) wrapVoid(requestInfo any, fn func() error) {
	h := s.watcher.Register(requestInfo)
	defer h.Finish()

	if err := fn(); err != nil {
		s.logger.Errorf("unhandled error: %v", err)
	}
}

// defaultNameMatcher is a placeholder wildcard matcher used until
// mount.Controller binds the real one (the driver binding's
// IsNameInExpression, which implements full DOS/Windows wildcard
// semantics including the "~" DOS-device-name quirks dokanhost.Binding
// is expected to handle). It supports the common case of "*"/"?" globs via
// path.Match.
func defaultNameMatcher(pattern, name string) bool {
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}
