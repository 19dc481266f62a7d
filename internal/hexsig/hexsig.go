// Package hexsig hex-encodes a raw signature for inclusion in a
// transaction's signature list, matching the wire format spec.md §6's
// broadcast endpoint expects.
package hexsig

import "encoding/hex"

// Encode returns the lowercase hex encoding of sig.
func Encode(sig []byte) string {
	return hex.EncodeToString(sig)
}
