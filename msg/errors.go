//nolint:staticcheck
package msg

import (
	"errors"
	"fmt"

	"github.com/kuleuven/nfs4xattr/vfs"
)

const (
	NFS4_OK                     = uint32(0)     /* everything is okay       */
	NFS4ERR_PERM                = uint32(1)     /* caller not privileged    */
	NFS4ERR_NOENT               = uint32(2)     /* no such file/directory   */
	NFS4ERR_IO                  = uint32(5)     /* hard I/O error           */
	NFS4ERR_ACCESS              = uint32(13)    /* access denied            */
	NFS4ERR_EXIST               = uint32(17)    /* file already exists      */
	NFS4ERR_NOTDIR              = uint32(20)    /* should be a directory    */
	NFS4ERR_ISDIR               = uint32(21)    /* should not be directory  */
	NFS4ERR_INVAL               = uint32(22)    /* invalid argument         */
	NFS4ERR_NOSPC               = uint32(28)    /* no space on file system  */
	NFS4ERR_ROFS                = uint32(30)    /* read-only file system    */
	NFS4ERR_NAMETOOLONG         = uint32(63)    /* name exceeds server max  */
	NFS4ERR_STALE               = uint32(70)    /* file no longer exists    */
	NFS4ERR_BADHANDLE           = uint32(10001) /* Illegal filehandle       */
	NFS4ERR_NOTSUPP             = uint32(10004) /* operation not supported  */
	NFS4ERR_TOOSMALL            = uint32(10005) /* response limit exceeded  */
	NFS4ERR_SERVERFAULT         = uint32(10006) /* undefined server error   */
	NFS4ERR_NOFILEHANDLE        = uint32(10020) /* current FH is not set    */
	NFS4ERR_MINOR_VERS_MISMATCH = uint32(10021) /* minor vers not supp      */
	NFS4ERR_RESTOREFH           = uint32(10030) /* no saved filehandle      */
	NFS4ERR_BADXDR              = uint32(10036) /* XDR decode failed        */
	NFS4ERR_OP_ILLEGAL          = uint32(10044) /* undefined operation      */
	NFS4ERR_NOXATTR             = uint32(10095) /* no extended attributes   */
	NFS4ERR_XATTR2BIG           = uint32(10096) /* extended attributes too big */
)

// Error is an NFSv4 status carried as a Go error.
type Error uint32

func (e Error) Error() string {
	switch uint32(e) {
	case NFS4ERR_SERVERFAULT:
		return "server fault"
	case NFS4ERR_BADXDR:
		return "malformed arguments"
	default:
		return fmt.Sprintf("NFS4ERR %d", uint32(e))
	}
}

// BadXDR marks err as a failure to decode operation arguments.
func BadXDR(err error) error {
	return fmt.Errorf("%w: %w", Error(NFS4ERR_BADXDR), err)
}

var statusTable = map[vfs.Error]uint32{
	vfs.OK:             NFS4_OK,
	vfs.ErrPerm:        NFS4ERR_PERM,
	vfs.ErrNoEnt:       NFS4ERR_NOENT,
	vfs.ErrIO:          NFS4ERR_IO,
	vfs.ErrBadF:        NFS4ERR_BADHANDLE,
	vfs.ErrAccess:      NFS4ERR_ACCESS,
	vfs.ErrExist:       NFS4ERR_EXIST,
	vfs.ErrNotDir:      NFS4ERR_NOTDIR,
	vfs.ErrIsDir:       NFS4ERR_ISDIR,
	vfs.ErrInval:       NFS4ERR_INVAL,
	vfs.ErrNoSpc:       NFS4ERR_NOSPC,
	vfs.ErrROFS:        NFS4ERR_ROFS,
	vfs.ErrNameTooLong: NFS4ERR_NAMETOOLONG,
	vfs.ErrNotSup:      NFS4ERR_NOTSUPP,
	vfs.ErrNoData:      NFS4ERR_NOXATTR,
	vfs.ErrRange:       NFS4ERR_XATTR2BIG,
	vfs.ErrTooSmall:    NFS4ERR_TOOSMALL,
	vfs.ErrStale:       NFS4ERR_STALE,
	vfs.ErrFault:       NFS4ERR_SERVERFAULT,
}

// Status translates a VFS outcome into an NFSv4 status code.
func Status(err vfs.Error) uint32 {
	if status, ok := statusTable[err]; ok {
		return status
	}

	return NFS4ERR_SERVERFAULT
}

// Err2Status translates a Go error into an NFSv4 status code. Errors that
// carry an Error keep its status, all others are mapped through the VFS
// vocabulary.
func Err2Status(err error) uint32 {
	var nfsErr Error

	if errors.As(err, &nfsErr) {
		return uint32(nfsErr)
	}

	return Status(vfs.FromError(err))
}
