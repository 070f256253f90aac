package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program ids.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// Expected decoded lengths.
const (
	pubkeyLen    = 32
	signatureLen = 64
)

// ValidateAddress checks that addr is a base58-encoded 32-byte public key.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is empty")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != pubkeyLen {
		return fmt.Errorf("address must decode to %d bytes, got %d", pubkeyLen, len(decoded))
	}
	return nil
}

// ValidateSignature checks that sig is a base58-encoded 64-byte signature.
func ValidateSignature(sig string) error {
	if sig == "" {
		return fmt.Errorf("signature is empty")
	}
	decoded, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(decoded) != signatureLen {
		return fmt.Errorf("signature must decode to %d bytes, got %d", signatureLen, len(decoded))
	}
	return nil
}

// IsOnCurve reports whether the address decodes to a point on the ed25519
// curve. Program-derived addresses are intentionally off-curve, so this
// distinguishes wallet keys from PDAs.
func IsOnCurve(addr string) (bool, error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return false, fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != pubkeyLen {
		return false, fmt.Errorf("address must decode to %d bytes, got %d", pubkeyLen, len(decoded))
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil, nil
}
