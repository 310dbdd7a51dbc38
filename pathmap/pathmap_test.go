package pathmap_test

import (
	"sort"
	"testing"

	"github.com/mountkit/dokanfs/pathmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/foo/bar", 42)

	v, ok := m.Get("/foo/bar")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = m.Get("/foo/baz")
	assert.False(t, ok)
}

func TestSetNormalizesBackslashes(t *testing.T) {
	m := pathmap.New[int]()
	m.Set(`\foo\bar`, 1)

	v, ok := m.Get("/foo/bar")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestContains(t *testing.T) {
	m := pathmap.New[struct{}]()
	assert.False(t, m.Contains("/a"))
	m.Set("/a", struct{}{})
	assert.True(t, m.Contains("/a"))
}

func TestSetDefault(t *testing.T) {
	m := pathmap.New[int]()
	got := m.SetDefault("/a", 5)
	assert.Equal(t, 5, got)

	got = m.SetDefault("/a", 99)
	assert.Equal(t, 5, got, "SetDefault must not overwrite an existing value")
}

func TestRemovePrunesEmptyAncestors(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a/b/c", 1)
	m.Remove("/a/b/c")

	assert.Empty(t, m.Keys("/"))
	// Re-adding under the same prefix must work after pruning.
	m.Set("/a/b/c", 2)
	v, ok := m.Get("/a/b/c")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRemoveKeepsSiblingValue(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a/b", 1)
	m.Set("/a/c", 2)
	m.Remove("/a/b")

	_, ok := m.Get("/a/b")
	assert.False(t, ok)
	v, ok := m.Get("/a/c")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRemoveKeepsAncestorValue(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a", 1)
	m.Set("/a/b", 2)
	m.Remove("/a/b")

	v, ok := m.Get("/a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestPop(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a", 7)

	got := m.Pop("/a", -1)
	assert.Equal(t, 7, got)

	got = m.Pop("/a", -1)
	assert.Equal(t, -1, got)
}

func TestKeysValuesItemsScopedToPrefix(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a", 1)
	m.Set("/a/b", 2)
	m.Set("/a/b/c", 3)
	m.Set("/other", 4)

	keys := m.Keys("/a")
	sort.Strings(keys)
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c"}, keys)

	values := m.Values("/a")
	sort.Ints(values)
	assert.Equal(t, []int{1, 2, 3}, values)

	items := m.Items("/a")
	assert.Len(t, items, 3)
}

func TestImmediateChildren(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a/b", 1)
	m.Set("/a/c/d", 2)

	children := m.ImmediateChildren("/a")
	sort.Strings(children)
	assert.Equal(t, []string{"b", "c"}, children)
}

func TestClear(t *testing.T) {
	m := pathmap.New[int]()
	m.Set("/a", 1)
	m.Set("/a/b", 2)
	m.Set("/other", 3)

	m.Clear("/a")

	assert.Empty(t, m.Keys("/a"))
	assert.True(t, m.Contains("/other"))
}

// HasAncestorOrSelf backs spec.md §8 property 3: "If any ancestor of p is
// pending-delete, every query for p returns pending-delete = true."
func TestHasAncestorOrSelf(t *testing.T) {
	m := pathmap.New[struct{}]()
	m.Set("/a/b", struct{}{})

	assert.True(t, m.HasAncestorOrSelf("/a/b"))
	assert.True(t, m.HasAncestorOrSelf("/a/b/c/d"))
	assert.False(t, m.HasAncestorOrSelf("/a/other"))
	assert.False(t, m.HasAncestorOrSelf("/unrelated"))
}

func TestHasAncestorOrSelfRoot(t *testing.T) {
	m := pathmap.New[struct{}]()
	m.Set("/", struct{}{})
	assert.True(t, m.HasAncestorOrSelf("/anything/deep"))
}
