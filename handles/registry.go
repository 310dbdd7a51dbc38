// Package handles implements spec.md §4.E: the table mapping opaque
// per-open integer handles to open-file state, and the per-handle
// serialization that protects that state from concurrent driver callbacks.
//
// Grounded on _examples/original_source/dokan/__init__.py's
// _reg_file/_rereg_file/_get_file/_del_file (registry shape, monotonic
// handle counter starting at MinimumFileHandler=100) and on the teacher's
// driver/file.go, which wraps a VFS stream in a struct alongside
// bookkeeping fields the same way OpenFile does here.
package handles

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/mountkit/dokanfs"
)

// minimumHandle mirrors the original's MinimumFileHandler: handles below
// this value are reserved to mean "no handle" at the driver boundary.
const minimumHandle = 100

// OpenFile is the per-open record the registry owns. Every field is
// guarded by Mutex except Handle and Path, which are immutable after
// Register.
type OpenFile struct {
	Handle uint64
	Path   string

	// Mutex serializes every read, write, flush, truncate, and close on
	// this handle (spec.md §4.E: "every ... must be performed while
	// holding the handle's own op_mutex").
	Mutex sync.Mutex

	Stream   dokanfs.Stream
	Mode     dokanfs.OpenMode
	IsDir    bool

	// sizeWritten is the highest byte offset this handle has written plus
	// its length, used to override a not-yet-flushed VFS size report
	// (spec.md §3's "post-close written sizes").
	sizeWritten int64
}

// SizeWritten returns the highest offset+length this handle has written.
func (f *OpenFile) SizeWritten() int64 {
	return f.sizeWritten
}

// RecordWrite updates the post-close size if offset+length extends past
// what was previously recorded (spec.md §8 property 5: "non-decreasing").
func (f *OpenFile) RecordWrite(offset, length int64) {
	if end := offset + length; end > f.sizeWritten {
		f.sizeWritten = end
	}
}

// Registry is the thread-safe handle table. The zero value is not usable;
// construct one with New.
type Registry struct {
	mu      sync.Mutex
	byHandle map[uint64]*OpenFile
	next    uint64
}

// New creates an empty Registry whose first allocated handle is 100.
func New() *Registry {
	return &Registry{
		byHandle: make(map[uint64]*OpenFile),
		next:     minimumHandle,
	}
}

// Register atomically allocates the next handle integer and stores the
// (stream, path) tuple. The handle integer is never reused within the
// Registry's lifetime (spec.md §3's uniqueness invariant).
func (r *Registry) Register(path string, stream dokanfs.Stream, mode dokanfs.OpenMode, isDir bool) *OpenFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.next
	r.next++

	of := &OpenFile{
		Handle: h,
		Path:   path,
		Stream: stream,
		Mode:   mode,
		IsDir:  isDir,
	}
	r.byHandle[h] = of
	return of
}

// Rebind replaces the stream for a handle whose previous stream was closed,
// the situation spec.md §4.E documents as "handle-reopen after Cleanup": a
// read or write arrives after the logical close, and the dispatcher
// silently reopens the underlying file and rebinds it to the same handle.
//
// The caller must already hold of.Mutex (as ReadFile/WriteFile do for the
// whole of their critical section) before calling Rebind; it does not
// acquire the lock itself, since sync.Mutex is non-reentrant and the
// caller's own lock is held across this call.
func (r *Registry) Rebind(handle uint64, stream dokanfs.Stream, mode dokanfs.OpenMode) error {
	r.mu.Lock()
	of, ok := r.byHandle[handle]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("handles: rebind of invalid handle %d", handle)
	}
	of.Stream = stream
	of.Mode = mode
	return nil
}

// Get looks up a handle, returning an error ("invalid handle") if it is not
// present. Per spec.md §4.E, the registry's own mutex is released before
// the caller acquires the returned record's Mutex, so the two locks are
// never held simultaneously.
func (r *Registry) Get(handle uint64) (*OpenFile, error) {
	r.mu.Lock()
	of, ok := r.byHandle[handle]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("handles: invalid handle %d", handle)
	}
	return of, nil
}

// Unregister removes a handle from the table, along with its post-close
// size entry. It does not close the underlying stream; callers close it
// (under the handle's own Mutex) before unregistering.
func (r *Registry) Unregister(handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHandle, handle)
}

// Len reports the number of handles currently registered, used by the
// diagnostics CLI's handle-table dump.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHandle)
}

// Snapshot returns a copy of every currently registered handle, in no
// particular order, for diagnostics (cmd/dokanfsctl's CSV dump) and tests.
func (r *Registry) Snapshot() []*OpenFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*OpenFile, 0, len(r.byHandle))
	for _, of := range r.byHandle {
		out = append(out, of)
	}
	return out
}

// CloseAll closes every still-open handle's stream, aggregating failures
// with go-multierror the way the teacher's driver layer collects
// independent per-object errors, and empties the table. Used when a mount
// session is torn down with handles still outstanding.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	handles := make([]*OpenFile, 0, len(r.byHandle))
	for _, of := range r.byHandle {
		handles = append(handles, of)
	}
	r.byHandle = make(map[uint64]*OpenFile)
	r.mu.Unlock()

	var result *multierror.Error
	for _, of := range handles {
		of.Mutex.Lock()
		if of.Stream != nil && !of.Stream.Closed() {
			if err := of.Stream.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("handle %d (%s): %w", of.Handle, of.Path, err))
			}
		}
		of.Mutex.Unlock()
	}
	return result.ErrorOrNil()
}
