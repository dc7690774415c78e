package vfs

// Module is a storage backend.
//
// Dispatch must eventually call req.Complete exactly once. Modules without
// CapBlocking are called on the issuing thread and must complete there, either
// inline or from a closure passed to req.Thread.Post. Modules with CapBlocking
// are called on the delegation pool and may complete from any goroutine.
type Module interface {
	Name() string
	Capabilities() Capabilities

	// Root returns the key of the module's root object.
	Root() []byte

	Dispatch(req *Request)
}

type Opcode uint8

const (
	OpOpen Opcode = iota + 1
	OpClose
	OpGetxattr
	OpSetxattr
	OpRemovexattr
	OpListxattr
)

func (op Opcode) String() string {
	switch op {
	case OpOpen:
		return "open"
	case OpClose:
		return "close"
	case OpGetxattr:
		return "getxattr"
	case OpSetxattr:
		return "setxattr"
	case OpRemovexattr:
		return "removexattr"
	case OpListxattr:
		return "listxattr"
	default:
		return "unknown"
	}
}

// Delegator runs blocking module calls off the issuing thread.
type Delegator interface {
	Submit(fn func()) error
}

// AttrCache receives attribute snapshots of successful requests.
type AttrCache interface {
	Insert(fhHash uint64, fh []byte, attr *Attrs)
}

type nopCache struct{}

func (nopCache) Insert(uint64, []byte, *Attrs) {}
