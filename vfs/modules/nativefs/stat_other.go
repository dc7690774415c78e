//go:build !linux

package nativefs

import (
	"os"

	"github.com/kuleuven/nfs4xattr/vfs"
)

func lstat(p string) (vfs.Attrs, error) {
	fi, err := os.Lstat(p)
	if err != nil {
		return vfs.Attrs{}, err
	}

	mtime := fi.ModTime()

	return vfs.Attrs{
		SetMask: vfs.AttrMode | vfs.AttrSize | vfs.AttrMtime | vfs.AttrChange,
		Mode:    uint32(fi.Mode().Perm()),
		Size:    uint64(fi.Size()),
		Mtime:   mtime,
		Change:  uint64(mtime.UnixNano()),
	}, nil
}
