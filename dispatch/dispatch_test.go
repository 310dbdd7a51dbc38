package dispatch_test

import (
	"testing"
	"time"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/dispatch"
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/errors"
	"github.com/mountkit/dokanfs/memvfs"
	"github.com/mountkit/dokanfs/timeoutwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) (*dispatch.State, *timeoutwatch.Watcher) {
	t.Helper()
	w := timeoutwatch.New(func(reset time.Duration, info any) bool { return true }, time.Hour, time.Minute)
	w.Start()
	t.Cleanup(w.Stop)

	fs := memvfs.New()
	return dispatch.NewState(fs, w, nil, "Test Volume", "TESTFS"), w
}

// Create-and-read is one of spec.md §8's end-to-end scenarios.
func TestCreateAndRead(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}

	action, status := s.ZwCreateFile("/hello.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)
	assert.Equal(t, dokanfs.ActionCreated, action)
	require.NotZero(t, info.Context)

	n, status := s.WriteFile("/hello.txt", []byte("hello"), 0, info)
	require.Equal(t, errors.StatusSuccess, status)
	assert.Equal(t, 5, n)

	s.CloseFile("/hello.txt", info)

	readInfo := &dokanhost.FileInfo{}
	_, status = s.ZwCreateFile("/hello.txt", readInfo, dokanfs.AccessReadData, 0, 0, dokanfs.FileOpen, 0)
	require.Equal(t, errors.StatusSuccess, status)

	buf := make([]byte, 5)
	n, status = s.ReadFile("/hello.txt", buf, 0, readInfo)
	require.Equal(t, errors.StatusSuccess, status)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

// Create-with-existing-collision is one of spec.md §8's end-to-end
// scenarios.
func TestCreateWithExistingCollision(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)
	s.CloseFile("/a.txt", info)

	collide := &dokanhost.FileInfo{}
	action, status := s.ZwCreateFile("/a.txt", collide, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	assert.Equal(t, errors.ErrorAlreadyExists, status)
	assert.Equal(t, dokanfs.ActionExists, action)
}

// Post-mount-creation-visible: a file created through the dispatcher must
// immediately show up in a directory listing (spec.md §8).
func TestPostCreationVisibleInListing(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)
	s.CloseFile("/a.txt", info)

	var names []string
	status = s.FindFiles("/", func(e dokanfs.DirEntry) error {
		names = append(names, e.Name)
		return nil
	}, &dokanhost.FileInfo{})
	require.Equal(t, errors.StatusSuccess, status)
	assert.Contains(t, names, "a.txt")
}

// Delete-on-close is one of spec.md §8's end-to-end scenarios.
func TestDeleteOnClose(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, dokanfs.FileDeleteOnClose)
	require.Equal(t, errors.StatusSuccess, status)

	info.DeleteOnClose = true
	s.Cleanup("/a.txt", info)
	s.CloseFile("/a.txt", info)

	existsInfo := &dokanhost.FileInfo{}
	action, status := s.ZwCreateFile("/a.txt", existsInfo, dokanfs.AccessReadData, 0, 0, dokanfs.FileOpen, 0)
	assert.NotEqual(t, errors.StatusSuccess, status)
	assert.Equal(t, dokanfs.ActionDoesNotExist, action)
}

// Nonempty-directory is one of spec.md §8's end-to-end scenarios.
func TestDeleteNonemptyDirectoryFails(t *testing.T) {
	s, _ := newTestState(t)
	dirInfo := &dokanhost.FileInfo{IsDirectory: true}
	_, status := s.ZwCreateFile("/dir", dirInfo, dokanfs.AccessReadData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)

	fileInfo := &dokanhost.FileInfo{}
	_, status = s.ZwCreateFile("/dir/child.txt", fileInfo, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)
	s.CloseFile("/dir/child.txt", fileInfo)

	status = s.DeleteDirectory("/dir", &dokanhost.FileInfo{})
	assert.Equal(t, errors.StatusDirectoryNotEmpty, status)
}

// Move-with-open-handle is one of spec.md §8's end-to-end scenarios: moving
// a file closes and unregisters its open handle first.
func TestMoveWithOpenHandle(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)

	status = s.MoveFile("/a.txt", "/b.txt", false, info)
	require.Equal(t, errors.StatusSuccess, status)

	_, err := s.Handles().Get(info.Context)
	assert.Error(t, err, "handle must be unregistered after move")
}

func TestPendingDeleteHidesFromCreate(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, dokanfs.FileDeleteOnClose)
	require.Equal(t, errors.StatusSuccess, status)

	blocked := &dokanhost.FileInfo{}
	_, status = s.ZwCreateFile("/a.txt", blocked, dokanfs.AccessReadData, 0, 0, dokanfs.FileOpen, 0)
	assert.Equal(t, errors.StatusAccessDenied, status)
}

func TestLockConflictBlocksWrite(t *testing.T) {
	s, _ := newTestState(t)
	owner := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", owner, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)

	status = s.LockFile("/a.txt", 0, 10, owner)
	require.Equal(t, errors.StatusSuccess, status)

	other := &dokanhost.FileInfo{}
	_, status = s.ZwCreateFile("/a.txt", other, dokanfs.AccessWriteData, 0, 0, dokanfs.FileOpen, 0)
	require.Equal(t, errors.StatusSuccess, status)

	_, status = s.WriteFile("/a.txt", []byte("x"), 5, other)
	assert.Equal(t, errors.StatusLockNotGranted, status)

	_, status = s.WriteFile("/a.txt", []byte("x"), 5, owner)
	assert.Equal(t, errors.StatusSuccess, status)
}

func TestUnlockRequiresExactRange(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)

	require.Equal(t, errors.StatusSuccess, s.LockFile("/a.txt", 0, 10, info))
	assert.Equal(t, errors.StatusNotLocked, s.UnlockFile("/a.txt", 0, 5, info))
	assert.Equal(t, errors.StatusSuccess, s.UnlockFile("/a.txt", 0, 10, info))
}

// A read or write arriving after Cleanup has closed the stream, but before
// CloseFile unregisters the handle, must silently reopen the backing file
// and rebind it to the same handle rather than deadlock (spec.md §4.E).
func TestReadAfterCleanupReopensHandle(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessReadData|dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)

	_, status = s.WriteFile("/a.txt", []byte("hello"), 0, info)
	require.Equal(t, errors.StatusSuccess, status)

	s.Cleanup("/a.txt", info)

	buf := make([]byte, 5)
	n, status := s.ReadFile("/a.txt", buf, 0, info)
	require.Equal(t, errors.StatusSuccess, status)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	_, status = s.WriteFile("/a.txt", []byte("world"), 0, info)
	assert.Equal(t, errors.StatusSuccess, status)
}

func TestSizeOverrideFromUnflushedWrite(t *testing.T) {
	s, _ := newTestState(t)
	info := &dokanhost.FileInfo{}
	_, status := s.ZwCreateFile("/a.txt", info, dokanfs.AccessWriteData, 0, 0, dokanfs.FileCreate, 0)
	require.Equal(t, errors.StatusSuccess, status)

	_, status = s.WriteFile("/a.txt", []byte("0123456789"), 0, info)
	require.Equal(t, errors.StatusSuccess, status)

	finfo, status := s.GetFileInformation("/a.txt", info)
	require.Equal(t, errors.StatusSuccess, status)
	assert.EqualValues(t, 10, finfo.Details.Size)
}
