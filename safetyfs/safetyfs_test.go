package safetyfs_test

import (
	"testing"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/memvfs"
	"github.com/mountkit/dokanfs/safetyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealAutorunIsHiddenBehindUnderscore(t *testing.T) {
	backing := memvfs.New()
	w, err := backing.Open("/autorun.inf", dokanfs.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fs := safetyfs.New(backing, false)
	names, err := fs.ListDir("/")
	require.NoError(t, err)
	assert.Contains(t, names, "_autorun.inf")
	assert.NotContains(t, names, "autorun.inf")
}

func TestHiddenAutorunNameOpensTheRealFile(t *testing.T) {
	backing := memvfs.New()
	w, err := backing.Open("/autorun.inf", dokanfs.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fs := safetyfs.New(backing, false)
	r, err := fs.Open("/_autorun.inf", dokanfs.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, len("payload"))
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf))
}

func TestAllowAutorunDisablesHiding(t *testing.T) {
	backing := memvfs.New()
	w, err := backing.Open("/autorun.inf", dokanfs.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fs := safetyfs.New(backing, true)
	names, err := fs.ListDir("/")
	require.NoError(t, err)
	assert.Contains(t, names, "autorun.inf")
}

func TestColonIsEscapedToAndFromBackingStore(t *testing.T) {
	backing := memvfs.New()
	fs := safetyfs.New(backing, false)

	w, err := fs.Open("/file:stream", dokanfs.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, backing.Exists("/file__colon__stream"))

	names, err := fs.ListDir("/")
	require.NoError(t, err)
	assert.Contains(t, names, "file:stream")
}

func TestMoveEncodesBothSourceAndDestination(t *testing.T) {
	backing := memvfs.New()
	fs := safetyfs.New(backing, false)

	w, err := fs.Open("/a:b", dokanfs.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, fs.Move("/a:b", "/c:d", false))
	assert.True(t, backing.Exists("/c__colon__d"))
	assert.True(t, fs.Exists("/c:d"))
}
