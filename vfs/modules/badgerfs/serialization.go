package badgerfs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kuleuven/nfs4xattr/vfs"
)

type objectData struct {
	Inum   uint64    `json:"inum"`
	Mode   uint32    `json:"mode"`
	Atime  time.Time `json:"atime"`
	Mtime  time.Time `json:"mtime"`
	Ctime  time.Time `json:"ctime"`
	Change uint64    `json:"change"`
	Seq    uint64    `json:"seq"`
}

type xattrData struct {
	Seq   uint64 `json:"seq"`
	Value []byte `json:"value"`
}

func (o *objectData) attrs() vfs.Attrs {
	return vfs.Attrs{
		SetMask: vfs.AttrInum | vfs.AttrMode | vfs.AttrNlink | vfs.AttrSize |
			vfs.AttrAtime | vfs.AttrMtime | vfs.AttrCtime | vfs.AttrChange | vfs.AttrMaskCacheable,
		Inum:   o.Inum,
		Mode:   o.Mode,
		Nlink:  1,
		Atime:  o.Atime,
		Mtime:  o.Mtime,
		Ctime:  o.Ctime,
		Change: o.Change,
	}
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}

	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}

	return nil
}
