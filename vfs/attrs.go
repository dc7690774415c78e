package vfs

import "time"

type AttrMask uint64

const (
	AttrDev AttrMask = 1 << iota
	AttrInum
	AttrMode
	AttrNlink
	AttrUID
	AttrGID
	AttrSize
	AttrSpaceUsed
	AttrAtime
	AttrMtime
	AttrCtime
	AttrChange
)

const (
	AttrMaskStat = AttrDev | AttrInum | AttrMode | AttrNlink | AttrUID | AttrGID |
		AttrSize | AttrSpaceUsed | AttrAtime | AttrMtime | AttrCtime | AttrChange

	// AttrMaskCacheable is requested implicitly by the engine. A module sets
	// it in SetMask when the returned values may be kept in the attribute cache.
	AttrMaskCacheable AttrMask = 1 << 63
)

// Attrs is an attribute snapshot. ReqMask is what the caller asked for,
// SetMask is what the module filled in.
type Attrs struct {
	ReqMask AttrMask
	SetMask AttrMask

	Dev       uint64
	Inum      uint64
	Mode      uint32
	Nlink     uint64
	UID       uint32
	GID       uint32
	Size      uint64
	SpaceUsed uint64
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Change    uint64
}

// Wants reports whether any of the bits in m were requested.
func (a *Attrs) Wants(m AttrMask) bool {
	return a.ReqMask&m != 0
}

// Has reports whether all bits in m were filled in.
func (a *Attrs) Has(m AttrMask) bool {
	return a.SetMask&m == m
}

// Fill copies the requested values that are present in src.
func (a *Attrs) Fill(src *Attrs) {
	m := a.ReqMask & src.SetMask

	if m&AttrDev != 0 {
		a.Dev = src.Dev
	}

	if m&AttrInum != 0 {
		a.Inum = src.Inum
	}

	if m&AttrMode != 0 {
		a.Mode = src.Mode
	}

	if m&AttrNlink != 0 {
		a.Nlink = src.Nlink
	}

	if m&AttrUID != 0 {
		a.UID = src.UID
	}

	if m&AttrGID != 0 {
		a.GID = src.GID
	}

	if m&AttrSize != 0 {
		a.Size = src.Size
	}

	if m&AttrSpaceUsed != 0 {
		a.SpaceUsed = src.SpaceUsed
	}

	if m&AttrAtime != 0 {
		a.Atime = src.Atime
	}

	if m&AttrMtime != 0 {
		a.Mtime = src.Mtime
	}

	if m&AttrCtime != 0 {
		a.Ctime = src.Ctime
	}

	if m&AttrChange != 0 {
		a.Change = src.Change
	}

	a.SetMask |= m
}

// ChangeID returns the change attribute if present, else the mtime in nanoseconds.
func (a *Attrs) ChangeID() uint64 {
	if a.Has(AttrChange) {
		return a.Change
	}

	if a.Has(AttrMtime) {
		return uint64(a.Mtime.UnixNano())
	}

	return 0
}
