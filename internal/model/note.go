package model

import "time"

// NoteStatus is the lifecycle state of a private transfer note
type NoteStatus string

const (
	NoteStatusUnclaimed NoteStatus = "UNCLAIMED"
	NoteStatusClaimed   NoteStatus = "CLAIMED"
)

// PrivateTransferNote is the encrypted record of a private transfer as served
// by the note store. StealthAddress, EphemeralPublicKey and EncryptedPayload
// are immutable after creation; Status moves UNCLAIMED -> CLAIMED exactly once.
type PrivateTransferNote struct {
	ID                 string     `json:"id"`
	StealthAddress     string     `json:"stealthAddress"`     // base58 public key, one-time destination
	EphemeralPublicKey string     `json:"ephemeralPublicKey"` // base58, sender's single-use public key
	EncryptedPayload   []byte     `json:"encryptedPayload"`   // 24-byte nonce prefix + sealed box
	RecipientHash      string     `json:"recipientHash"`
	CreatedAt          time.Time  `json:"createdAt"`
	Status             NoteStatus `json:"status"`
	ClaimSignature     string     `json:"claimTransactionSignature,omitempty"`
}

// NotePayload is the plaintext carried inside EncryptedPayload.
// Amount is in raw base units of the token (lamports for SOL).
type NotePayload struct {
	Amount  uint64 `json:"amount"`
	TokenID string `json:"tokenId"`
	Memo    string `json:"memo,omitempty"`
}
