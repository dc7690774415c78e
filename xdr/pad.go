package xdr

// Pad returns the number of zero bytes that follow n bytes of opaque data.
func Pad(n int) int {
	return (4 - n&3) & 3
}

// RoundUp returns n rounded up to the XDR unit of four bytes.
func RoundUp(n int) int {
	return (n + 3) &^ 3
}
