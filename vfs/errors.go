package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// Error is the outcome of a VFS request. It crosses execution contexts
// by value, so it is a closed set of codes instead of an error chain.
type Error int

const (
	OK Error = iota
	ErrPerm
	ErrNoEnt
	ErrIO
	ErrBadF
	ErrAccess
	ErrExist
	ErrNotDir
	ErrIsDir
	ErrInval
	ErrNoSpc
	ErrROFS
	ErrNameTooLong
	ErrNotSup
	ErrNoData
	ErrRange
	ErrTooSmall
	ErrStale
	ErrFault
)

var errorNames = [...]string{
	OK:             "ok",
	ErrPerm:        "operation not permitted",
	ErrNoEnt:       "no such file or directory",
	ErrIO:          "input/output error",
	ErrBadF:        "bad file handle",
	ErrAccess:      "permission denied",
	ErrExist:       "attribute exists",
	ErrNotDir:      "not a directory",
	ErrIsDir:       "is a directory",
	ErrInval:       "invalid argument",
	ErrNoSpc:       "no space left on device",
	ErrROFS:        "read-only file system",
	ErrNameTooLong: "name too long",
	ErrNotSup:      "operation not supported",
	ErrNoData:      "no such attribute",
	ErrRange:       "value does not fit",
	ErrTooSmall:    "buffer too small",
	ErrStale:       "stale file handle",
	ErrFault:       "internal error",
}

func (e Error) Error() string {
	if e >= 0 && int(e) < len(errorNames) {
		return errorNames[e]
	}

	return fmt.Sprintf("vfs error %d", int(e))
}

// FromError translates errors returned by the operating system or a
// storage library into an Error. Unknown errors become ErrIO.
func FromError(err error) Error {
	var vfsErr Error

	switch {
	case err == nil:
		return OK
	case errors.As(err, &vfsErr):
		return vfsErr
	case errors.Is(err, syscall.ENODATA):
		return ErrNoData
	case errors.Is(err, syscall.ERANGE), errors.Is(err, syscall.E2BIG):
		return ErrRange
	case errors.Is(err, syscall.ENOTSUP), errors.Is(err, syscall.EOPNOTSUPP):
		return ErrNotSup
	case errors.Is(err, syscall.ESTALE):
		return ErrStale
	case errors.Is(err, syscall.EBADF):
		return ErrBadF
	case errors.Is(err, syscall.EISDIR):
		return ErrIsDir
	case errors.Is(err, syscall.ENOTDIR):
		return ErrNotDir
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return ErrNoSpc
	case errors.Is(err, syscall.EROFS):
		return ErrROFS
	case errors.Is(err, syscall.ENAMETOOLONG):
		return ErrNameTooLong
	case errors.Is(err, syscall.EACCES):
		return ErrAccess
	case errors.Is(err, os.ErrNotExist):
		return ErrNoEnt
	case errors.Is(err, os.ErrExist):
		return ErrExist
	case errors.Is(err, os.ErrPermission):
		return ErrPerm
	case errors.Is(err, os.ErrInvalid):
		return ErrInval
	case errors.Is(err, io.EOF):
		return ErrIO
	default:
		return ErrIO
	}
}
