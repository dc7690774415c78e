//go:build linux

package nativefs

import (
	"time"

	"github.com/kuleuven/nfs4xattr/vfs"
	"golang.org/x/sys/unix"
)

func lstat(p string) (vfs.Attrs, error) {
	var st unix.Stat_t

	if err := unix.Lstat(p, &st); err != nil {
		return vfs.Attrs{}, err
	}

	ctime := time.Unix(st.Ctim.Unix())

	return vfs.Attrs{
		SetMask:   vfs.AttrMaskStat | vfs.AttrMaskCacheable,
		Dev:       uint64(st.Dev),
		Inum:      st.Ino,
		Mode:      st.Mode,
		Nlink:     uint64(st.Nlink),
		UID:       st.Uid,
		GID:       st.Gid,
		Size:      uint64(st.Size),
		SpaceUsed: uint64(st.Blocks) * 512,
		Atime:     time.Unix(st.Atim.Unix()),
		Mtime:     time.Unix(st.Mtim.Unix()),
		Ctime:     ctime,
		// Attribute changes only move ctime on the host.
		Change: uint64(ctime.UnixNano()),
	}, nil
}
