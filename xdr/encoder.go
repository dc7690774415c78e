package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

type Encoder struct {
	w io.Writer

	buf [8]byte
}

var zero [4]byte

func (e *Encoder) write(p []byte) error {
	_, err := e.w.Write(p)

	return err
}

func (e *Encoder) String(v string) error {
	return e.Bytes([]byte(v))
}

func (e *Encoder) Uint32(v uint32) error {
	binary.BigEndian.PutUint32(e.buf[:4], v)

	return e.write(e.buf[:4])
}

func (e *Encoder) Uint64(v uint64) error {
	binary.BigEndian.PutUint64(e.buf[:8], v)

	return e.write(e.buf[:8])
}

func (e *Encoder) Bool(v bool) error {
	value := uint32(0)

	if v {
		value = 1
	}

	return e.Uint32(value)
}

func (e *Encoder) Bytes(v []byte) error {
	if err := e.Uint32(uint32(len(v))); err != nil {
		return err
	}

	return e.ByteArray(v)
}

func (e *Encoder) ByteArray(v []byte) error {
	if err := e.write(v); err != nil {
		return err
	}

	if padding := Pad(len(v)); padding > 0 {
		return e.write(zero[:padding])
	}

	return nil
}

// Segments encodes variable length opaque data that is scattered over
// several buffers. The segments are written as is; nothing is gathered first.
func (e *Encoder) Segments(length uint32, segments [][]byte) error {
	if err := e.Uint32(length); err != nil {
		return err
	}

	remaining := int(length)

	for _, seg := range segments {
		if remaining == 0 {
			break
		}

		if len(seg) > remaining {
			seg = seg[:remaining]
		}

		if err := e.write(seg); err != nil {
			return err
		}

		remaining -= len(seg)
	}

	if remaining > 0 {
		return fmt.Errorf("xdr: segments hold %d bytes less than announced", remaining)
	}

	if padding := Pad(int(length)); padding > 0 {
		return e.write(zero[:padding])
	}

	return nil
}

func (e *Encoder) Uint32s(v []uint32) error {
	if err := e.Uint32(uint32(len(v))); err != nil {
		return err
	}

	for _, v := range v {
		if err := e.Uint32(v); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) Strings(v []string) error {
	if err := e.Uint32(uint32(len(v))); err != nil {
		return err
	}

	for _, v := range v {
		if err := e.String(v); err != nil {
			return err
		}
	}

	return nil
}

// Encodable is a type that can be encoded with an xdr.Encoder.
type Encodable interface {
	Encode(encoder *Encoder) error
}

func (e *Encoder) Encode(obj interface{}) error {
	switch v := obj.(type) {
	case int:
		return e.Uint32(uint32(v))
	case uint32:
		return e.Uint32(v)
	case uint64:
		return e.Uint64(v)
	case string:
		return e.String(v)
	case bool:
		return e.Bool(v)
	case []byte:
		return e.Bytes(v)
	case [16]byte:
		return e.ByteArray(v[:])
	case [0]byte:
		return nil
	case []uint32:
		return e.Uint32s(v)
	case []string:
		return e.Strings(v)
	case Encodable:
		return v.Encode(e)
	default:
		return fmt.Errorf("xdr: cannot encode %T", obj)
	}
}

func (e *Encoder) EncodeAll(src ...interface{}) error {
	for _, v := range src {
		if err := e.Encode(v); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) Union(mode uint32, args ...interface{}) error {
	if err := e.Uint32(mode); err != nil {
		return err
	}

	if int(mode) >= len(args) {
		return fmt.Errorf("invalid union mode: %d", mode)
	}

	return e.Encode(args[int(mode)])
}
