package xdr

import (
	"bytes"
)

func Marshal(src ...interface{}) ([]byte, error) {
	buf := bytes.NewBuffer(nil)

	if err := NewEncoder(buf).EncodeAll(src...); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes data into dst and returns the bytes that were not consumed.
func Unmarshal(data []byte, dst ...interface{}) ([]byte, error) {
	decoder := NewDecoder(bytes.NewReader(data))

	err := decoder.DecodeAll(dst...)

	return data[decoder.Count():], err
}
