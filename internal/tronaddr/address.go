// Package tronaddr validates TRON base58check addresses and converts them
// to the 20-byte EVM-style payload used by ABI-encoded TVM contract calls.
package tronaddr

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
)

// addressPrefix is TRON's fixed address-version byte (spec.md glossary:
// accounts are 21-byte payloads, 0x41 + 20-byte hash).
const addressPrefix = 0x41

// Validate checks that s is a well-formed, 34-char, base58check TRON
// address (spec.md §3's Address invariant: "validated by checksum on every
// public-facing input").
func Validate(s string) error {
	if len(s) != 34 || s[0] != 'T' {
		return fmt.Errorf("tronaddr: %q is not a 34-char base58check address", s)
	}
	if _, err := address.Base58ToAddress(s); err != nil {
		return fmt.Errorf("tronaddr: invalid checksum for %q: %w", s, err)
	}
	return nil
}

// ToEVM strips TRON's 0x41 version byte and returns the remaining 20 bytes
// as a go-ethereum common.Address, suitable for ABI-encoding a TRON address
// parameter the same way an EVM address would be packed.
func ToEVM(s string) (common.Address, error) {
	addr, err := address.Base58ToAddress(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("tronaddr: %w", err)
	}
	raw := addr.Bytes()
	if len(raw) != 21 || raw[0] != addressPrefix {
		return common.Address{}, fmt.Errorf("tronaddr: unexpected address payload length %d", len(raw))
	}
	return common.BytesToAddress(raw[1:]), nil
}

// FromEVM reattaches the 0x41 version byte to a 20-byte EVM-style address
// and renders it as a TRON base58check string.
func FromEVM(evm common.Address) string {
	raw := append([]byte{addressPrefix}, evm.Bytes()...)
	return address.Address(raw).String()
}
