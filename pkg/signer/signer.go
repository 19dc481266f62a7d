// Package signer holds the control private key, stamps transactions with
// the configured active-permission id, signs, and optionally falls back to
// the owner key for specific operations (spec.md §4.5).
package signer

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Mode is the sum type spec.md §9 Design Notes calls for in place of
// "maybe owner / maybe control" boolean flags.
type Mode int

const (
	// ControlOnly signs only operations in the control key's allowed set;
	// anything else fails fast (spec.md §4.5 strict mode).
	ControlOnly Mode = iota
	// ControlWithOwnerFallback signs allowed ops with the control key and
	// falls back to the owner key for everything else (permissive mode).
	ControlWithOwnerFallback
	// OwnerOnly signs every operation with the unrestricted owner key. Not
	// recommended (spec.md §4.5); used only when no control key is
	// configured at all.
	OwnerOnly
)

// Key is the minimal private-key material the Signer needs: it signs. It
// does not derive the TRON address the key corresponds to.
type Key struct {
	priv *secp256k1.PrivateKey
}

// NewKey wraps a raw 32-byte secp256k1 private key.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("signer: private key must be 32 bytes, got %d", len(raw))
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &Key{priv: priv}, nil
}

// Sign produces a 65-byte (r‖s‖v) signature over the SHA-256 digest of
// rawData, per spec.md §4.5 step 2.
func (k *Key) Sign(rawData []byte) ([]byte, error) {
	digest := sha256.Sum256(rawData)

	sig := ecdsa.SignCompact(k.priv, digest[:], false)
	// SignCompact returns [recoveryID+27, r(32), s(32)]; rearrange into the
	// r‖s‖v layout spec.md §4.5 asks for (v = recovery id, 0 or 1).
	recID := sig[0] - 27
	out := make([]byte, 65)
	copy(out[0:32], sig[1:33])
	copy(out[32:64], sig[33:65])
	out[64] = recID
	return out, nil
}

// Signer dispatches signing requests across the control/owner key pair
// according to Mode, enforcing the permission allow-set (spec.md §4.5,
// §7's "permission" error).
type Signer struct {
	mode            Mode
	control         *Key
	owner           *Key
	permissionID    uint8
	controlAllowed  map[string]bool
}

// Config configures a Signer.
type Config struct {
	Mode           Mode
	Control        *Key
	Owner          *Key
	PermissionID   uint8
	ControlAllowed map[string]bool // operation name -> allowed
}

// New validates the configuration and builds a Signer.
func New(cfg Config) (*Signer, error) {
	switch cfg.Mode {
	case ControlOnly, ControlWithOwnerFallback:
		if cfg.Control == nil {
			return nil, fmt.Errorf("signer: control key required for mode %v", cfg.Mode)
		}
		if cfg.Mode == ControlWithOwnerFallback && cfg.Owner == nil {
			return nil, fmt.Errorf("signer: owner key required for ControlWithOwnerFallback")
		}
	case OwnerOnly:
		if cfg.Owner == nil {
			return nil, fmt.Errorf("signer: owner key required for OwnerOnly")
		}
	default:
		return nil, fmt.Errorf("signer: unknown mode %v", cfg.Mode)
	}
	return &Signer{
		mode:           cfg.Mode,
		control:        cfg.Control,
		owner:          cfg.Owner,
		permissionID:   cfg.PermissionID,
		controlAllowed: cfg.ControlAllowed,
	}, nil
}

// ErrPermissionDenied is returned when op is outside the control allow-set
// and no owner fallback is configured (spec.md §7 "permission" error).
type ErrPermissionDenied struct{ Op string }

func (e *ErrPermissionDenied) Error() string {
	return fmt.Sprintf("signer: operation %q not in control allow-set and no owner fallback configured", e.Op)
}

// SignedTx is the output of Sign: the raw signature bytes and the
// permission id (if any) that should be stamped onto the transaction
// before broadcast.
type SignedTx struct {
	Signature    []byte
	PermissionID int32 // 0 means "do not stamp"; TRON's default permission has id 0
	UsedOwnerKey bool
}

// Sign signs rawData for operation op, following spec.md §4.5's policy:
// stamp the control permission id when op is control-allowed, otherwise
// fail fast (ControlOnly) or fall back to the owner key
// (ControlWithOwnerFallback).
func (s *Signer) Sign(op string, rawData []byte) (*SignedTx, error) {
	if s.mode == OwnerOnly {
		sig, err := s.owner.Sign(rawData)
		if err != nil {
			return nil, err
		}
		return &SignedTx{Signature: sig, UsedOwnerKey: true}, nil
	}

	if s.controlAllowed[op] {
		sig, err := s.control.Sign(rawData)
		if err != nil {
			return nil, err
		}
		return &SignedTx{Signature: sig, PermissionID: int32(s.permissionID)}, nil
	}

	if s.mode == ControlWithOwnerFallback {
		sig, err := s.owner.Sign(rawData)
		if err != nil {
			return nil, err
		}
		return &SignedTx{Signature: sig, UsedOwnerKey: true}, nil
	}

	return nil, &ErrPermissionDenied{Op: op}
}

// AllowedOps returns the control-allowed operation names, in no particular
// order, for Station.Status (spec.md §6).
func (s *Signer) AllowedOps() []string {
	ops := make([]string, 0, len(s.controlAllowed))
	for op, allowed := range s.controlAllowed {
		if allowed {
			ops = append(ops, op)
		}
	}
	return ops
}

// PermissionID reports the configured control permission id.
func (s *Signer) PermissionID() uint8 { return s.permissionID }

// FallbackToOwner reports whether this Signer is configured in permissive
// mode (spec.md §6's fallback_to_owner status field).
func (s *Signer) FallbackToOwner() bool { return s.mode == ControlWithOwnerFallback }
