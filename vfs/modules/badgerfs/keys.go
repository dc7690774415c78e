package badgerfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key layout:
//
//	m:root                  uuid of the root object
//	m:inum                  inode number sequence
//	f:<uuid>                objectData (JSON)
//	x:<uuid>:<name>         xattrData (JSON)
//	s:<uuid>:<seq as hex>   name, indexes the attributes by cookie
const (
	prefixMeta   = "m:"
	prefixObject = "f:"
	prefixXattr  = "x:"
	prefixSeq    = "s:"
)

func keyRoot() []byte {
	return []byte(prefixMeta + "root")
}

func keyInum() []byte {
	return []byte(prefixMeta + "inum")
}

func keyObject(id uuid.UUID) []byte {
	return []byte(prefixObject + id.String())
}

func keyXattr(id uuid.UUID, name []byte) []byte {
	return []byte(prefixXattr + id.String() + ":" + string(name))
}

func keySeqPrefix(id uuid.UUID) []byte {
	return []byte(prefixSeq + id.String() + ":")
}

func keySeq(id uuid.UUID, seq uint64) []byte {
	return fmt.Appendf(keySeqPrefix(id), "%016x", seq)
}

func parseSeq(key []byte) (uint64, error) {
	i := strings.LastIndexByte(string(key), ':')
	if i < 0 {
		return 0, fmt.Errorf("badgerfs: malformed key %q", key)
	}

	return strconv.ParseUint(string(key[i+1:]), 16, 64)
}
