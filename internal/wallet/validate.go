// Package wallet validates chain addresses before they enter the ledger.
package wallet

import (
	"regexp"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var evmAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidSolana reports whether addr is a well-formed Solana address:
// base58, 32 bytes. Wallet addresses are ed25519 public keys and must lie
// on the curve; program-derived addresses do not.
func IsValidSolana(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsOnCurve reports whether a decoded 32-byte Solana address is an
// ed25519 curve point, i.e. a regular wallet rather than a PDA.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}

// IsValidEVM reports whether addr is a well-formed EVM address.
func IsValidEVM(addr string) bool {
	return evmAddressRe.MatchString(addr)
}

// IsValid reports whether addr is acceptable on any supported chain.
func IsValid(addr string) bool {
	if strings.HasPrefix(addr, "0x") {
		return IsValidEVM(addr)
	}
	return IsValidSolana(addr)
}
