package stealth

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// KeyDeriver derives the one-time keypair controlling a stealth address.
// Implementations must be bit-for-bit deterministic: the same inputs always
// yield the same keypair. Selected once at process composition time.
type KeyDeriver interface {
	DeriveStealthKeypair(ephemeralPub solana.PublicKey, recipientPriv solana.PrivateKey) solana.PrivateKey
}

// NoteOpener opens an encrypted note payload. A false result means the note
// did not decrypt with our key, which is expected for notes that share our
// hash bucket but belong to another recipient.
type NoteOpener interface {
	Open(ciphertext []byte, ephemeralPub solana.PublicKey, recipientPriv solana.PrivateKey) (*model.NotePayload, bool)
}

// ComputeRecipientHash maps a wallet address to the opaque lookup key used
// by the note store index. Must match the note-writing side exactly or
// notes will never be found.
func ComputeRecipientHash(address string) string {
	sum := sha256.Sum256([]byte(address))
	return base58.Encode(sum[:])
}

// Sha256Deriver is the production KeyDeriver. The shared secret is
// sha256(recipientPriv[:32] || ephemeralPub[:32]), hashed once more to get
// the ed25519 seed. This is a raw-bytes construction, not ECDH; it is kept
// byte-compatible with the notes already written by the sender side and
// must not be changed to scalar multiplication without migrating the
// address space.
type Sha256Deriver struct{}

func (Sha256Deriver) DeriveStealthKeypair(ephemeralPub solana.PublicKey, recipientPriv solana.PrivateKey) solana.PrivateKey {
	secret := make([]byte, 0, 64)
	secret = append(secret, recipientPriv[:32]...)
	secret = append(secret, ephemeralPub[:32]...)
	defer clear(secret)

	shared := sha256.Sum256(secret)
	seed := sha256.Sum256(shared[:])
	defer clear(shared[:])

	key := ed25519.NewKeyFromSeed(seed[:])
	clear(seed[:])
	return solana.PrivateKey(key)
}
