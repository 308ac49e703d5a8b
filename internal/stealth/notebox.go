package stealth

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// noteNonceLen is the NaCl box nonce prefixed to every encrypted payload
const noteNonceLen = 24

// BoxOpener is the production NoteOpener. The ciphertext is a 24-byte nonce
// followed by a NaCl box sealed against the ephemeral public key and the
// recipient's key. Every failure mode (short input, wrong keys, corrupted
// box, malformed plaintext) returns (nil, false) - decryption failure is
// never fatal to scanning.
type BoxOpener struct{}

func (BoxOpener) Open(ciphertext []byte, ephemeralPub solana.PublicKey, recipientPriv solana.PrivateKey) (*model.NotePayload, bool) {
	if len(ciphertext) <= noteNonceLen || len(recipientPriv) < 32 {
		return nil, false
	}

	var nonce [noteNonceLen]byte
	copy(nonce[:], ciphertext[:noteNonceLen])

	var peer, priv [32]byte
	copy(peer[:], ephemeralPub[:])
	copy(priv[:], recipientPriv[:32])
	defer clear(priv[:])

	plaintext, ok := box.Open(nil, ciphertext[noteNonceLen:], &nonce, &peer, &priv)
	if !ok {
		return nil, false
	}
	defer clear(plaintext)

	var payload model.NotePayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

// NoteEncryptionPublicKey returns the curve25519 public key a sender seals
// notes against, derived from the recipient's signing key. Published as part
// of the recipient's payment handle.
func NoteEncryptionPublicKey(recipientPriv solana.PrivateKey) ([32]byte, error) {
	var out [32]byte
	if len(recipientPriv) < 32 {
		return out, fmt.Errorf("private key too short: %d bytes", len(recipientPriv))
	}
	pub, err := curve25519.X25519(recipientPriv[:32], curve25519.Basepoint)
	if err != nil {
		return out, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	copy(out[:], pub)
	return out, nil
}

// SealNote encrypts a payload for a recipient using the sender's ephemeral
// private key. The service itself never seals notes (note creation happens
// upstream); this is the sender-side counterpart used by tests and seeding
// tooling, kept here so the two sides cannot drift.
func SealNote(payload *model.NotePayload, ephemeralPriv *[32]byte, recipientBoxPub *[32]byte) ([]byte, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	defer clear(plaintext)

	var nonce [noteNonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, noteNonceLen, noteNonceLen+len(plaintext)+box.Overhead)
	copy(out, nonce[:])
	return box.Seal(out, plaintext, &nonce, recipientBoxPub, ephemeralPriv), nil
}

// GenerateEphemeralKeypair returns a fresh single-use keypair for note
// creation. The private half is discarded after sealing.
func GenerateEphemeralKeypair() (pub, priv *[32]byte, err error) {
	pub, priv, err = box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral keypair: %w", err)
	}
	return pub, priv, nil
}
