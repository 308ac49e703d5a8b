package keystore

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrNoKey is returned when no signing key is available locally
var ErrNoKey = errors.New("no signing key available")

// Keystore provides the user's primary signing keypair. The key is used
// only as an input to stealth derivation and note decryption; it never
// signs claim transactions and never leaves the process.
type Keystore interface {
	// GetLocalSigningKeypair returns the full 64-byte signing key.
	// Caller must zero the returned slice after use.
	GetLocalSigningKeypair() (solana.PrivateKey, error)

	// Address returns the wallet's public address without decrypting
	Address() (string, error)
}
