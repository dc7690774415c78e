package vfs

// Capabilities is the set of features a module advertises.
type Capabilities uint32

const (
	// CapXattr marks a module that stores extended attributes.
	CapXattr Capabilities = 1 << iota
	// CapBlocking marks a module whose calls may block. Its requests
	// are executed on the delegation pool instead of the calling thread.
	CapBlocking
)

// Has reports whether all capabilities in c are present.
func (caps Capabilities) Has(c Capabilities) bool {
	return caps&c == c
}
