// Package memvfs is a reference dokanfs.FileSystem backend that keeps its
// entire tree in memory. It exists to exercise the dispatcher end-to-end
// (spec.md §8's scenarios) without needing a real storage backend, and is
// used throughout this module's test suite.
//
// Grounded on the teacher's testing/images.go, which wraps an in-memory
// byte slice as a seekable stream via
// github.com/xaionaro-go/bytesextra.NewReadWriteSeeker for disk-image
// tests. memvfs reuses that same library for the read/seek side of its
// file streams and adds github.com/noxer/bytewriter for the grow-on-write
// side bytesextra's fixed-size buffer cannot provide — the teacher's own
// go.mod lists bytewriter for exactly this role in its block-cache layer
// (blockcache.go), even though that file itself isn't a fit for this
// spec's domain (see DESIGN.md).
package memvfs

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/errors"
	"github.com/mountkit/dokanfs/pathmap"
	"github.com/mountkit/dokanfs/vfspath"
	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"
)

type memFile struct {
	mu     sync.Mutex
	writer *bytewriter.Writer
}

func (f *memFile) bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writer.Bytes()
}

type node struct {
	isDir    bool
	mode     os.FileMode
	created  time.Time
	accessed time.Time
	modified time.Time
	file     *memFile
}

// FileSystem is an in-memory dokanfs.FileSystem. The zero value is not
// usable; construct one with New.
type FileSystem struct {
	mu   sync.RWMutex
	tree *pathmap.Map[*node]
}

// New creates an empty FileSystem with just the root directory.
func New() *FileSystem {
	fs := &FileSystem{tree: pathmap.New[*node]()}
	now := time.Now()
	fs.tree.Set("/", &node{isDir: true, mode: os.ModeDir | 0o755, created: now, accessed: now, modified: now})
	return fs
}

func parentOf(path string) string {
	idx := len(path) - 1
	for idx > 0 && path[idx] != '/' {
		idx--
	}
	if idx == 0 {
		return "/"
	}
	return path[:idx]
}

func baseName(path string) string {
	idx := len(path) - 1
	for idx >= 0 && path[idx] != '/' {
		idx--
	}
	return path[idx+1:]
}

func (fs *FileSystem) Exists(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.tree.Get(vfspath.Normalize(path))
	return ok
}

func (fs *FileSystem) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n, ok := fs.tree.Get(vfspath.Normalize(path))
	return ok && n.isDir
}

func (fs *FileSystem) IsFile(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n, ok := fs.tree.Get(vfspath.Normalize(path))
	return ok && !n.isDir
}

func (fs *FileSystem) Mkdir(path string) error {
	path = vfspath.Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.tree.Get(path); ok {
		return errors.AlreadyExists.WithMessage(path)
	}
	parent := parentOf(path)
	if pn, ok := fs.tree.Get(parent); !ok || !pn.isDir {
		return errors.NotFound.WithMessage(parent)
	}

	now := time.Now()
	fs.tree.Set(path, &node{isDir: true, mode: os.ModeDir | 0o755, created: now, accessed: now, modified: now})
	return nil
}

func (fs *FileSystem) Open(path string, mode dokanfs.OpenMode) (dokanfs.Stream, error) {
	path = vfspath.Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.tree.Get(path)

	if mode == dokanfs.ModeWrite {
		if ok && n.isDir {
			return nil, errors.Invalid.WithMessage(path)
		}
		if !ok {
			parent := parentOf(path)
			if pn, pok := fs.tree.Get(parent); !pok || !pn.isDir {
				return nil, errors.NotFound.WithMessage(parent)
			}
			now := time.Now()
			n = &node{mode: 0o644, created: now, accessed: now, modified: now, file: &memFile{writer: bytewriter.New(nil)}}
			fs.tree.Set(path, n)
		} else {
			n.file.mu.Lock()
			n.file.writer = bytewriter.New(nil)
			n.file.mu.Unlock()
			n.modified = time.Now()
		}
		return &memStream{file: n.file, mode: mode}, nil
	}

	if !ok || n.isDir {
		return nil, errors.NotFound.WithMessage(path)
	}
	n.accessed = time.Now()
	return &memStream{file: n.file, mode: mode}, nil
}

func (fs *FileSystem) ListDir(path string) ([]string, error) {
	path = vfspath.Normalize(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.tree.Get(path)
	if !ok || !n.isDir {
		return nil, errors.NotFound.WithMessage(path)
	}
	return fs.tree.ImmediateChildren(path), nil
}

func (fs *FileSystem) ListDirInfo(path string) ([]dokanfs.DirEntry, error) {
	names, err := fs.ListDir(path)
	if err != nil {
		return nil, err
	}
	path = vfspath.Normalize(path)

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]dokanfs.DirEntry, 0, len(names))
	for _, name := range names {
		childPath := joinPath(path, name)
		n, ok := fs.tree.Get(childPath)
		if !ok {
			continue
		}
		out = append(out, dokanfs.DirEntry{Name: name, Info: infoFromNode(n)})
	}
	return out, nil
}

func infoFromNode(n *node) dokanfs.Info {
	var size int64
	if !n.isDir && n.file != nil {
		size = int64(len(n.file.bytes()))
	}
	return dokanfs.Info{
		Mode: n.mode,
		Details: dokanfs.Details{
			Created:  n.created,
			Accessed: n.accessed,
			Modified: n.modified,
			Size:     size,
		},
	}
}

func (fs *FileSystem) GetInfo(path string) (dokanfs.Info, error) {
	path = vfspath.Normalize(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.tree.Get(path)
	if !ok {
		return dokanfs.Info{}, errors.NotFound.WithMessage(path)
	}
	return infoFromNode(n), nil
}

func (fs *FileSystem) SetTimes(path string, accessed, modified time.Time) error {
	path = vfspath.Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.tree.Get(path)
	if !ok {
		return errors.NotFound.WithMessage(path)
	}
	if !accessed.IsZero() {
		n.accessed = accessed
	}
	if !modified.IsZero() {
		n.modified = modified
	}
	return nil
}

func (fs *FileSystem) Remove(path string) error {
	path = vfspath.Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.tree.Get(path)
	if !ok {
		return errors.NotFound.WithMessage(path)
	}
	if n.isDir {
		return errors.Invalid.WithMessage(path + " is a directory")
	}
	fs.tree.Remove(path)
	return nil
}

func (fs *FileSystem) RemoveDir(path string) error {
	path = vfspath.Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.tree.Get(path)
	if !ok {
		return errors.NotFound.WithMessage(path)
	}
	if !n.isDir {
		return errors.Invalid.WithMessage(path + " is not a directory")
	}
	if len(fs.tree.ImmediateChildren(path)) > 0 {
		return errors.NotEmpty.WithMessage(path)
	}
	fs.tree.Remove(path)
	return nil
}

func (fs *FileSystem) Move(src, dst string, overwrite bool) error {
	src = vfspath.Normalize(src)
	dst = vfspath.Normalize(dst)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.tree.Get(src)
	if !ok || n.isDir {
		return errors.NotFound.WithMessage(src)
	}
	if _, exists := fs.tree.Get(dst); exists && !overwrite {
		return errors.AlreadyExists.WithMessage(dst)
	}
	fs.tree.Remove(src)
	fs.tree.Set(dst, n)
	return nil
}

func (fs *FileSystem) MoveDir(src, dst string, create bool) error {
	src = vfspath.Normalize(src)
	dst = vfspath.Normalize(dst)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.tree.Get(src)
	if !ok || !n.isDir {
		return errors.NotFound.WithMessage(src)
	}
	if _, exists := fs.tree.Get(dst); exists {
		return errors.AlreadyExists.WithMessage(dst)
	}
	if !create {
		if pn, pok := fs.tree.Get(parentOf(dst)); !pok || !pn.isDir {
			return errors.NotFound.WithMessage(parentOf(dst))
		}
	}

	items := fs.tree.Items(src)
	for _, item := range items {
		rel := item.Key[len(src):]
		fs.tree.Remove(item.Key)
		fs.tree.Set(dst+rel, item.Value)
	}
	return nil
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// memStream is the dokanfs.Stream returned by FileSystem.Open. Reads and
// seeks are served by wrapping the file's current contents in a
// bytesextra.ReadWriteSeeker; writes go through the file's bytewriter.Writer,
// which grows the backing slice as needed.
type memStream struct {
	file   *memFile
	pos    int64
	mode   dokanfs.OpenMode
	closed bool
}

func (s *memStream) Read(p []byte) (int, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	rws := bytesextra.NewReadWriteSeeker(s.file.writer.Bytes())
	if _, err := rws.Seek(s.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := rws.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *memStream) Write(p []byte) (int, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	n, err := s.file.writer.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *memStream) Seek(offset int64, whence int) (int64, error) {
	s.file.mu.Lock()
	size := int64(len(s.file.writer.Bytes()))
	s.file.mu.Unlock()

	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = size + offset
	}
	if newPos < 0 {
		return 0, errors.Invalid.WithMessage("negative seek")
	}
	s.pos = newPos
	return s.pos, nil
}

func (s *memStream) Close() error {
	s.closed = true
	return nil
}

func (s *memStream) Truncate(size int64) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.file.writer.Bytes()
	switch {
	case size < int64(len(data)):
		s.file.writer = bytewriter.New(append([]byte(nil), data[:size]...))
	case size > int64(len(data)):
		pad := make([]byte, size-int64(len(data)))
		if _, err := s.file.writer.WriteAt(pad, int64(len(data))); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStream) Flush() error { return nil }

func (s *memStream) Mode() dokanfs.OpenMode { return s.mode }

func (s *memStream) Closed() bool { return s.closed }
