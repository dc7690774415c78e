package xdr

import (
	"bytes"
	"testing"

	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPad(t *testing.T) {
	for n, want := range []int{0, 3, 2, 1, 0, 3} {
		assert.Equal(t, want, Pad(n), "pad(%d)", n)
	}

	assert.Equal(t, 8, RoundUp(5))
	assert.Equal(t, 4, RoundUp(4))
}

func TestOpaqueBorrowsFromBuffer(t *testing.T) {
	raw, err := Marshal([]byte("abcde"), uint32(7))
	require.NoError(t, err)
	assert.Len(t, raw, 4+8+4)

	buf := bufpool.New(raw)
	d := NewDecoder(buf)

	v, err := d.Opaque()
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(v))

	// The value aliases the message buffer.
	raw[4] = 'X'
	assert.Equal(t, "Xbcde", string(v))

	n, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), n)
	assert.Equal(t, len(raw), d.Count())
}

func TestOpaqueCopiesFromReader(t *testing.T) {
	raw, err := Marshal("key")
	require.NoError(t, err)

	v, err := NewDecoder(bytes.NewReader(raw)).Opaque()
	require.NoError(t, err)

	raw[4] = 'X'
	assert.Equal(t, "key", string(v))
}

func TestSegments(t *testing.T) {
	var out bytes.Buffer

	err := NewEncoder(&out).Segments(5, [][]byte{[]byte("ab"), []byte("cde"), []byte("ignored")})
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 5, 'a', 'b', 'c', 'd', 'e', 0, 0, 0}, out.Bytes())

	err = NewEncoder(&out).Segments(10, [][]byte{[]byte("ab")})
	assert.Error(t, err)
}

func TestTooLong(t *testing.T) {
	raw, err := Marshal(uint32(MaxOpaque + 1))
	require.NoError(t, err)

	_, err = NewDecoder(bytes.NewReader(raw)).Bytes()
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestUnmarshalRemainder(t *testing.T) {
	raw, err := Marshal(uint64(1), "x", uint32(9))
	require.NoError(t, err)

	var (
		a uint64
		b string
	)

	rest, err := Unmarshal(raw, &a, &b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a)
	assert.Equal(t, "x", b)
	assert.Equal(t, []byte{0, 0, 0, 9}, rest)
}
