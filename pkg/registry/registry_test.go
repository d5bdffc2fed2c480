package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFn func() int

func TestRegisterAndLookup(t *testing.T) {
	r := New[stubFn](DuplicateError)
	err := r.Register("foo", func() int { return 1 }, Context{})
	require.NoError(t, err)

	e, ok := r.Lookup("FOO") // case-insensitive
	require.True(t, ok)
	assert.Equal(t, "foo", e.Name)
	assert.Equal(t, 1, e.Fn())
}

func TestDuplicateErrorPolicy(t *testing.T) {
	r := New[stubFn](DuplicateError)
	require.NoError(t, r.Register("foo", func() int { return 1 }, Context{}))
	err := r.Register("foo", func() int { return 2 }, Context{})
	assert.Error(t, err)
}

func TestDuplicateReplacePolicy(t *testing.T) {
	r := New[stubFn](DuplicateReplace)
	require.NoError(t, r.Register("foo", func() int { return 1 }, Context{}))
	require.NoError(t, r.Register("foo", func() int { return 2 }, Context{}))

	e, _ := r.Lookup("foo")
	assert.Equal(t, 2, e.Fn())
	assert.Equal(t, 1, r.Len())
}

func TestUnregisterAndOrderPreserved(t *testing.T) {
	r := New[stubFn](DuplicateError)
	require.NoError(t, r.Register("a", func() int { return 1 }, Context{}))
	require.NoError(t, r.Register("b", func() int { return 2 }, Context{}))
	require.NoError(t, r.Register("c", func() int { return 3 }, Context{}))

	require.True(t, r.Unregister("b"))
	names := []string{}
	for _, e := range r.Snapshot() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "c"}, names)
}
