// Package safetyfs implements the optional safety wrapper described in
// spec.md §6: a dokanfs.FileSystem decorator that hides alternate-data-stream
// colons from a backing store that cannot hold them, and hides autorun
// files from casual browsing.
//
// Grounded on the original's Win32SafetyFS
// (_examples/original_source/dokan/__init__.py), which wraps a pyfilesystem
// FS object the same way: every incoming path is "encoded" before reaching
// the wrapped filesystem, and every outgoing directory entry name is
// "decoded" before being shown to the caller. Supplemented per SPEC_FULL.md
// to apply the same colon round-trip to Move/MoveDir's destination path, not
// just its source, since the original's _encode/_decode apply uniformly to
// any path the wrapper sees.
package safetyfs

import (
	"strings"
	"time"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/vfspath"
)

const colonEscape = "__colon__"
const autorunPrefix = "autorun."
const hiddenAutorunPrefix = "_autorun."

// FileSystem wraps another dokanfs.FileSystem, rewriting paths on the way in
// and directory entry names on the way out.
type FileSystem struct {
	wrapped      dokanfs.FileSystem
	allowAutorun bool
}

// New wraps fs. Any caller-supplied colon is always escaped before reaching
// fs. When allowAutorun is false (the default a real mount would use),
// autorun.* files in fs are also exposed to callers as _autorun.*.
func New(fs dokanfs.FileSystem, allowAutorun bool) *FileSystem {
	return &FileSystem{wrapped: fs, allowAutorun: allowAutorun}
}

// encode maps a path as seen by this wrapper's caller into the path used
// against the wrapped filesystem: unescape a "_autorun." caller-visible final
// component back to the real "autorun." name, then escape any colon.
func (fs *FileSystem) encode(path string) string {
	rel := strings.TrimPrefix(vfspath.Normalize(path), "/")
	if !fs.allowAutorun {
		dir, base := "", rel
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			dir, base = rel[:i+1], rel[i+1:]
		}
		if strings.HasPrefix(strings.ToLower(base), hiddenAutorunPrefix) {
			rel = dir + base[1:]
		}
	}
	rel = strings.ReplaceAll(rel, ":", colonEscape)
	return "/" + rel
}

// decode maps a name as reported by the wrapped filesystem into what the
// caller should see: unescape the colon escape sequence, then hide a real
// "autorun." name behind a "_autorun." prefix.
func (fs *FileSystem) decode(name string) string {
	name = strings.ReplaceAll(name, colonEscape, ":")
	if !fs.allowAutorun && strings.HasPrefix(strings.ToLower(name), autorunPrefix) {
		name = "_" + name
	}
	return name
}

func (fs *FileSystem) Exists(path string) bool { return fs.wrapped.Exists(fs.encode(path)) }
func (fs *FileSystem) IsDir(path string) bool   { return fs.wrapped.IsDir(fs.encode(path)) }
func (fs *FileSystem) IsFile(path string) bool  { return fs.wrapped.IsFile(fs.encode(path)) }

func (fs *FileSystem) Mkdir(path string) error { return fs.wrapped.Mkdir(fs.encode(path)) }

func (fs *FileSystem) Open(path string, mode dokanfs.OpenMode) (dokanfs.Stream, error) {
	return fs.wrapped.Open(fs.encode(path), mode)
}

func (fs *FileSystem) ListDir(path string) ([]string, error) {
	names, err := fs.wrapped.ListDir(fs.encode(path))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = fs.decode(name)
	}
	return out, nil
}

func (fs *FileSystem) ListDirInfo(path string) ([]dokanfs.DirEntry, error) {
	entries, err := fs.wrapped.ListDirInfo(fs.encode(path))
	if err != nil {
		return nil, err
	}
	out := make([]dokanfs.DirEntry, len(entries))
	for i, entry := range entries {
		out[i] = dokanfs.DirEntry{Name: fs.decode(entry.Name), Info: entry.Info}
	}
	return out, nil
}

func (fs *FileSystem) GetInfo(path string) (dokanfs.Info, error) {
	return fs.wrapped.GetInfo(fs.encode(path))
}

func (fs *FileSystem) SetTimes(path string, accessed, modified time.Time) error {
	return fs.wrapped.SetTimes(fs.encode(path), accessed, modified)
}

func (fs *FileSystem) Remove(path string) error { return fs.wrapped.Remove(fs.encode(path)) }

func (fs *FileSystem) RemoveDir(path string) error { return fs.wrapped.RemoveDir(fs.encode(path)) }

func (fs *FileSystem) Move(src, dst string, overwrite bool) error {
	return fs.wrapped.Move(fs.encode(src), fs.encode(dst), overwrite)
}

func (fs *FileSystem) MoveDir(src, dst string, create bool) error {
	return fs.wrapped.MoveDir(fs.encode(src), fs.encode(dst), create)
}
