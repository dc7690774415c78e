package memfs_test

import (
	"testing"
	"time"

	"github.com/kuleuven/nfs4xattr/clock"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/memfs"
	"github.com/kuleuven/nfs4xattr/vfs/vfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule(t *testing.T) {
	for _, blocking := range []bool{false, true} {
		fs := memfs.New("mem", memfs.Options{Blocking: blocking})

		t.Run(map[bool]string{false: "Inline", true: "Blocking"}[blocking], func(t *testing.T) {
			vfstest.TestModule(t, fs, func(*testing.T) []byte {
				return fs.Create()
			}, vfstest.Options{ChangeIncreases: true})
		})
	}
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, vfs.CapXattr, memfs.New("a", memfs.Options{}).Capabilities())
	assert.Equal(t, vfs.CapXattr|vfs.CapBlocking, memfs.New("a", memfs.Options{Blocking: true}).Capabilities())
	assert.Equal(t, vfs.Capabilities(0), memfs.New("a", memfs.Options{NoXattr: true}).Capabilities())
}

func TestNameLimits(t *testing.T) {
	fs := memfs.New("mem", memfs.Options{})
	h := vfstest.NewHarness(t, fs)
	oh := h.Open(t, fs.Create())

	assert.Equal(t, vfs.ErrInval, h.Set(oh, "", "v", vfs.SetxattrEither))
	assert.Equal(t, vfs.ErrNameTooLong, h.Set(oh, string(make([]byte, memfs.MaxNameLen+1)), "v", vfs.SetxattrEither))
	assert.Equal(t, vfs.ErrRange, h.Set(oh, "big", string(make([]byte, memfs.MaxValueSize+1)), vfs.SetxattrEither))
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fs := memfs.New("mem", memfs.Options{Clock: clock.NewManual(start)})
	h := vfstest.NewHarness(t, fs)
	oh := h.Open(t, fs.Create())

	status, pre, post := h.SetAttrs(oh, "a", "1", vfs.AttrMtime|vfs.AttrChange)
	require.Equal(t, vfs.OK, status)

	// The clock did not move, the mtime still has to.
	assert.Equal(t, start, pre.Mtime)
	assert.True(t, post.Mtime.After(start))
	assert.Equal(t, pre.Change+1, post.Change)
}

func TestRemoveKeepsCookies(t *testing.T) {
	fs := memfs.New("mem", memfs.Options{})
	h := vfstest.NewHarness(t, fs)
	oh := h.Open(t, fs.Create())

	for _, name := range []string{"a", "b", "c"} {
		require.Equal(t, vfs.OK, h.Set(oh, name, "v", vfs.SetxattrEither))
	}

	l := h.List(oh, 0, 2)
	require.Equal(t, []string{"a", "b"}, l.Names)

	require.Equal(t, vfs.OK, h.Remove(oh, "b"))
	require.Equal(t, vfs.OK, h.Set(oh, "d", "v", vfs.SetxattrEither))

	l = h.List(oh, l.Cookie, -1)
	assert.Equal(t, []string{"c", "d"}, l.Names)
	assert.True(t, l.EOF)
}
