// Package vfstest runs a module through the VFS engine and checks the
// extended attribute semantics every backend has to provide.
package vfstest

import (
	"bytes"
	"testing"

	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Harness issues requests on a single thread and drains it after each one.
type Harness struct {
	VFS    *vfs.VFS
	Thread *vfs.Thread
	module vfs.Module
}

func NewHarness(t *testing.T, module vfs.Module) *Harness {
	t.Helper()

	pool := worker.New(4)

	t.Cleanup(func() {
		pool.Close()
	})

	v, err := vfs.New(vfs.Options{}, nil, pool, module)
	require.NoError(t, err)

	return &Harness{
		VFS:    v,
		Thread: v.NewThread(),
		module: module,
	}
}

// Open opens key and releases the handle when the test ends.
func (h *Harness) Open(t *testing.T, key []byte) *vfs.OpenHandle {
	t.Helper()

	fh, err := h.VFS.FH(h.module.Name(), key)
	require.NoError(t, err)

	var (
		handle *vfs.OpenHandle
		status = vfs.ErrIO
	)

	h.Thread.Open(fh, vfs.OpenPath, func(s vfs.Error, oh *vfs.OpenHandle) {
		status, handle = s, oh
	})

	h.Thread.Drain()

	require.Equal(t, vfs.OK, status)

	t.Cleanup(func() {
		h.Thread.Release(handle)
		h.Thread.Drain()
	})

	return handle
}

func (h *Harness) Set(oh *vfs.OpenHandle, name, value string, flags vfs.SetxattrFlags) vfs.Error {
	status := vfs.ErrIO

	h.Thread.Setxattr(oh, []byte(name), [][]byte{[]byte(value)}, uint32(len(value)), flags, 0, 0, func(s vfs.Error, _, _ *vfs.Attrs) {
		status = s
	})

	h.Thread.Drain()

	return status
}

// SetAttrs is Set returning the attributes requested by mask before and after the change.
func (h *Harness) SetAttrs(oh *vfs.OpenHandle, name, value string, mask vfs.AttrMask) (vfs.Error, vfs.Attrs, vfs.Attrs) {
	var (
		status    = vfs.ErrIO
		pre, post vfs.Attrs
	)

	h.Thread.Setxattr(oh, []byte(name), [][]byte{[]byte(value)}, uint32(len(value)), vfs.SetxattrEither, mask, mask, func(s vfs.Error, preAttr, postAttr *vfs.Attrs) {
		status = s

		if s == vfs.OK {
			pre, post = *preAttr, *postAttr
		}
	})

	h.Thread.Drain()

	return status, pre, post
}

func (h *Harness) Get(oh *vfs.OpenHandle, name string) (vfs.Error, []byte) {
	var (
		status = vfs.ErrIO
		value  []byte
	)

	h.Thread.Getxattr(oh, []byte(name), make([][]byte, 64), 0, func(s vfs.Error, _ uint32, iov [][]byte, _ *vfs.Attrs) {
		status = s
		value = bytes.Join(iov, nil)
	})

	h.Thread.Drain()

	return status, value
}

func (h *Harness) Remove(oh *vfs.OpenHandle, name string) vfs.Error {
	status := vfs.ErrIO

	h.Thread.Removexattr(oh, []byte(name), 0, 0, func(s vfs.Error, _, _ *vfs.Attrs) {
		status = s
	})

	h.Thread.Drain()

	return status
}

type Listing struct {
	Status vfs.Error
	Names  []string
	Cookie uint64
	EOF    bool
}

// List accepts at most limit names following cookie. A negative limit accepts all.
func (h *Harness) List(oh *vfs.OpenHandle, cookie uint64, limit int) Listing {
	l := Listing{Status: vfs.ErrIO}

	h.Thread.Listxattr(oh, 0, cookie, func(name []byte, _ uint64) vfs.ScanAction {
		if limit >= 0 && len(l.Names) == limit {
			return vfs.ScanStop
		}

		l.Names = append(l.Names, string(name))

		return vfs.ScanContinue
	}, func(s vfs.Error, _ *vfs.OpenHandle, c uint64, eof bool, _ *vfs.Attrs) {
		l.Status, l.Cookie, l.EOF = s, c, eof
	})

	h.Thread.Drain()

	return l
}

type Options struct {
	// ChangeIncreases asserts that every modification yields a larger change id.
	ChangeIncreases bool
}

// TestModule checks module against the common semantics. newKey must return
// the key of a fresh object without extended attributes.
func TestModule(t *testing.T, module vfs.Module, newKey func(t *testing.T) []byte, opts Options) {
	h := NewHarness(t, module)

	t.Run("Missing", func(t *testing.T) {
		oh := h.Open(t, newKey(t))

		status, _ := h.Get(oh, "missing")
		assert.Equal(t, vfs.ErrNoData, status)
		assert.Equal(t, vfs.ErrNoData, h.Remove(oh, "missing"))
		assert.Equal(t, vfs.ErrNoData, h.Set(oh, "missing", "v", vfs.SetxattrReplace))

		l := h.List(oh, 0, -1)
		assert.Equal(t, vfs.OK, l.Status)
		assert.Empty(t, l.Names)
		assert.True(t, l.EOF)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		oh := h.Open(t, newKey(t))

		require.Equal(t, vfs.OK, h.Set(oh, "color", "blue", vfs.SetxattrCreate))
		assert.Equal(t, vfs.ErrExist, h.Set(oh, "color", "red", vfs.SetxattrCreate))

		status, value := h.Get(oh, "color")
		assert.Equal(t, vfs.OK, status)
		assert.Equal(t, "blue", string(value))

		require.Equal(t, vfs.OK, h.Set(oh, "color", "green", vfs.SetxattrReplace))

		_, value = h.Get(oh, "color")
		assert.Equal(t, "green", string(value))

		require.Equal(t, vfs.OK, h.Set(oh, "color", "yellow", vfs.SetxattrEither))

		_, value = h.Get(oh, "color")
		assert.Equal(t, "yellow", string(value))

		require.Equal(t, vfs.OK, h.Remove(oh, "color"))

		status, _ = h.Get(oh, "color")
		assert.Equal(t, vfs.ErrNoData, status)
	})

	t.Run("LargeValue", func(t *testing.T) {
		oh := h.Open(t, newKey(t))
		value := bytes.Repeat([]byte("xattr"), 400)

		require.Equal(t, vfs.OK, h.Set(oh, "large", string(value), vfs.SetxattrEither))

		status, got := h.Get(oh, "large")
		assert.Equal(t, vfs.OK, status)
		assert.Equal(t, value, got)
	})

	t.Run("List", func(t *testing.T) {
		oh := h.Open(t, newKey(t))

		for _, name := range []string{"alpha", "bravo", "charlie"} {
			require.Equal(t, vfs.OK, h.Set(oh, name, "v", vfs.SetxattrEither))
		}

		l := h.List(oh, 0, -1)
		assert.Equal(t, vfs.OK, l.Status)
		assert.ElementsMatch(t, []string{"alpha", "bravo", "charlie"}, l.Names)
		assert.True(t, l.EOF)

		all := l.Names

		l = h.List(oh, 0, 1)
		assert.Equal(t, all[:1], l.Names)
		assert.False(t, l.EOF)
		assert.NotZero(t, l.Cookie)

		l = h.List(oh, l.Cookie, -1)
		assert.Equal(t, all[1:], l.Names)
		assert.True(t, l.EOF)

		l = h.List(oh, 0, 0)
		assert.Empty(t, l.Names)
		assert.False(t, l.EOF)
		assert.Zero(t, l.Cookie)
	})

	t.Run("ResumeAfterRemove", func(t *testing.T) {
		oh := h.Open(t, newKey(t))

		for _, name := range []string{"alpha", "bravo", "charlie", "delta"} {
			require.Equal(t, vfs.OK, h.Set(oh, name, "v", vfs.SetxattrEither))
		}

		first := h.List(oh, 0, 2)
		require.Len(t, first.Names, 2)

		// Names that were already returned go away before the next page.
		for _, name := range first.Names {
			require.Equal(t, vfs.OK, h.Remove(oh, name))
		}

		rest := h.List(oh, first.Cookie, -1)
		assert.Equal(t, vfs.OK, rest.Status)
		assert.True(t, rest.EOF)
		assert.ElementsMatch(t, []string{"alpha", "bravo", "charlie", "delta"}, append(first.Names, rest.Names...))
	})

	t.Run("Change", func(t *testing.T) {
		oh := h.Open(t, newKey(t))
		mask := vfs.AttrMtime | vfs.AttrChange

		status, pre, post := h.SetAttrs(oh, "a", "1", mask)
		require.Equal(t, vfs.OK, status)

		assert.True(t, pre.Has(vfs.AttrChange))
		assert.True(t, post.Has(vfs.AttrChange|vfs.AttrMaskCacheable))

		if opts.ChangeIncreases {
			assert.Greater(t, post.ChangeID(), pre.ChangeID())
		} else {
			assert.GreaterOrEqual(t, post.ChangeID(), pre.ChangeID())
		}
	})
}
