//nolint:staticcheck
package msg

import (
	"fmt"
)

const (
	PROC4_VOID     = uint32(0)
	PROC4_COMPOUND = uint32(1)
)

const (
	OP4_ACCESS    = uint32(3)
	OP4_GETFH     = uint32(10)
	OP4_PUTFH     = uint32(22)
	OP4_PUTPUBFH  = uint32(23)
	OP4_PUTROOTFH = uint32(24)
	OP4_RESTOREFH = uint32(31)
	OP4_SAVEFH    = uint32(32)
	OP4_SEQUENCE  = uint32(53)

	OP4_GETXATTR    = uint32(72)
	OP4_SETXATTR    = uint32(73)
	OP4_LISTXATTRS  = uint32(74)
	OP4_REMOVEXATTR = uint32(75)

	OP4_ILLEGAL = uint32(10044)
)

// KnownOp reports whether op is defined by NFSv4.0 through v4.2.
func KnownOp(op uint32) bool {
	return op >= OP4_ACCESS && op <= OP4_REMOVEXATTR
}

func Proc4Name(proc uint32) string {
	switch proc {
	case OP4_GETFH:
		return "getfh"
	case OP4_PUTFH:
		return "putfh"
	case OP4_PUTPUBFH:
		return "putpubfh"
	case OP4_PUTROOTFH:
		return "putrootfh"
	case OP4_RESTOREFH:
		return "restorefh"
	case OP4_SAVEFH:
		return "savefh"
	case OP4_SEQUENCE:
		return "sequence"
	case OP4_GETXATTR:
		return "getxattr"
	case OP4_SETXATTR:
		return "setxattr"
	case OP4_LISTXATTRS:
		return "listxattrs"
	case OP4_REMOVEXATTR:
		return "removexattr"
	case OP4_ILLEGAL:
		return "illegal"
	default:
		return fmt.Sprintf("op%d", proc)
	}
}
