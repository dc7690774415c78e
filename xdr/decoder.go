package xdr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTooLong is returned when a length prefix exceeds MaxOpaque.
var ErrTooLong = errors.New("xdr: opaque data too long")

// MaxOpaque bounds the length of variable sized data accepted by the decoder.
const MaxOpaque = 1 << 24

func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{r: r}

	if n, ok := r.(nexter); ok {
		d.next = n
	}

	return d
}

// nexter is implemented by in-memory readers that can lend out
// their contents without a copy, such as bufpool.Bytes.
type nexter interface {
	Next(n int) ([]byte, error)
}

type Decoder struct {
	r    io.Reader
	next nexter
	n    int

	buf [8]byte
}

// Count returns the number of bytes consumed so far.
func (d *Decoder) Count() int {
	return d.n
}

func (d *Decoder) readFull(p []byte) error {
	n, err := io.ReadFull(d.r, p)

	d.n += n

	return err
}

func (d *Decoder) skip(n int) error {
	if n == 0 {
		return nil
	}

	return d.readFull(d.buf[:n])
}

func (d *Decoder) length() (int, error) {
	size, err := d.Uint32()
	if err != nil {
		return 0, err
	}

	if size > MaxOpaque {
		return 0, fmt.Errorf("%w: %d", ErrTooLong, size)
	}

	return int(size), nil
}

func (d *Decoder) String() (string, error) {
	data, err := d.Opaque()
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Bytes decodes variable length opaque data into a newly allocated slice.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}

	b := make([]byte, n)

	if err = d.readFull(b); err != nil {
		return nil, err
	}

	return b, d.skip(Pad(n))
}

// Opaque decodes variable length opaque data. If the underlying reader
// supports it, the returned slice aliases the message buffer and is only
// valid as long as that buffer is.
func (d *Decoder) Opaque() ([]byte, error) {
	if d.next == nil {
		return d.Bytes()
	}

	n, err := d.length()
	if err != nil {
		return nil, err
	}

	b, err := d.next.Next(n + Pad(n))
	if err != nil {
		return nil, err
	}

	d.n += len(b)

	return b[:n:n], nil
}

func (d *Decoder) ByteArray(buf []byte) error {
	if err := d.readFull(buf); err != nil {
		return err
	}

	return d.skip(Pad(len(buf)))
}

func (d *Decoder) Uint32() (uint32, error) {
	b := d.buf[:4]

	if err := d.readFull(b); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) Uint64() (uint64, error) {
	b := d.buf[:8]

	if err := d.readFull(b); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) Bool() (bool, error) {
	b, err := d.Uint32()
	if err != nil {
		return false, err
	}

	return b != 0, nil
}

func (d *Decoder) Uint32s() ([]uint32, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}

	b := make([]uint32, n)

	for i := range n {
		b[i], err = d.Uint32()
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (d *Decoder) Strings() ([]string, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}

	b := make([]string, n)

	for i := range n {
		b[i], err = d.String()
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Decodable is a type that can be decoded from an xdr.Decoder.
type Decodable interface {
	Decode(decoder *Decoder) error
}

func (d *Decoder) Decode(target interface{}) error {
	var err error

	switch v := target.(type) {
	case *int:
		var i uint32

		i, err = d.Uint32()

		*v = int(i)
	case *uint32:
		*v, err = d.Uint32()
	case *uint64:
		*v, err = d.Uint64()
	case *string:
		*v, err = d.String()
	case *bool:
		*v, err = d.Bool()
	case *[]byte:
		*v, err = d.Bytes()
	case *[16]byte:
		err = d.ByteArray((*v)[:])
	case *[]uint32:
		*v, err = d.Uint32s()
	case *[]string:
		*v, err = d.Strings()
	case Decodable:
		err = v.Decode(d)
	default:
		return fmt.Errorf("xdr: cannot decode into %T", target)
	}

	return err
}

func (d *Decoder) DecodeAll(target ...interface{}) error {
	for _, t := range target {
		if err := d.Decode(t); err != nil {
			return err
		}
	}

	return nil
}

func (d *Decoder) Union(mode *uint32, args ...interface{}) error {
	var err error

	*mode, err = d.Uint32()
	if err != nil {
		return err
	}

	if int(*mode) >= len(args) {
		return fmt.Errorf("invalid union mode: %d", *mode)
	}

	return d.Decode(args[int(*mode)])
}
