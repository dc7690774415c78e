package attrcache

import (
	"testing"
	"time"

	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertOnlyCacheable(t *testing.T) {
	c := New(64, time.Minute)

	fh := []byte{0, 'a'}
	hash := vfs.HashFH(fh)

	c.Insert(hash, fh, &vfs.Attrs{SetMask: vfs.AttrMtime, Mtime: time.Unix(1, 0)})

	_, ok := c.Lookup(hash, fh)
	assert.False(t, ok)

	c.Insert(hash, fh, &vfs.Attrs{SetMask: vfs.AttrMtime | vfs.AttrMaskCacheable, Mtime: time.Unix(2, 0)})

	attr, ok := c.Lookup(hash, fh)
	require.True(t, ok)
	assert.Equal(t, time.Unix(2, 0), attr.Mtime)
	assert.Equal(t, 1, c.Len())

	c.Invalidate(hash, fh)

	_, ok = c.Lookup(hash, fh)
	assert.False(t, ok)
}

func TestInsertNil(t *testing.T) {
	c := New(0, 0)

	c.Insert(1, []byte{1}, nil)

	assert.Equal(t, 0, c.Len())
}

func TestExpiry(t *testing.T) {
	c := New(64, 50*time.Millisecond)

	fh := []byte{0, 'b'}
	hash := vfs.HashFH(fh)

	c.Insert(hash, fh, &vfs.Attrs{SetMask: vfs.AttrMtime | vfs.AttrMaskCacheable})

	assert.Eventually(t, func() bool {
		_, ok := c.Lookup(hash, fh)

		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInsertMerges(t *testing.T) {
	c := New(64, time.Minute)

	fh := []byte{0, 'c'}
	hash := vfs.HashFH(fh)

	c.Insert(hash, fh, &vfs.Attrs{
		SetMask: vfs.AttrMtime | vfs.AttrChange | vfs.AttrMaskCacheable,
		Mtime:   time.Unix(1, 0),
		Change:  7,
	})

	// A snapshot without attribute values leaves the entry alone.
	c.Insert(hash, fh, &vfs.Attrs{SetMask: vfs.AttrMaskCacheable})

	attr, ok := c.Lookup(hash, fh)
	require.True(t, ok)
	assert.Equal(t, uint64(7), attr.Change)
	assert.True(t, attr.Has(vfs.AttrMtime|vfs.AttrChange))

	// A partial snapshot only replaces what it carries.
	c.Insert(hash, fh, &vfs.Attrs{
		SetMask: vfs.AttrMtime | vfs.AttrMaskCacheable,
		Mtime:   time.Unix(2, 0),
	})

	attr, ok = c.Lookup(hash, fh)
	require.True(t, ok)
	assert.Equal(t, time.Unix(2, 0), attr.Mtime)
	assert.Equal(t, uint64(7), attr.Change)
	assert.True(t, attr.Has(vfs.AttrMtime|vfs.AttrChange|vfs.AttrMaskCacheable))
	assert.Equal(t, 1, c.Len())
}
