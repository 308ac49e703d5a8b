package model

import "time"

// ClaimableTransfer is the decrypted projection of a note for display and
// claim initiation. It has no identity beyond its source note and is
// recomputed from scratch on every note-store snapshot.
type ClaimableTransfer struct {
	NoteID         string     `json:"noteId"`
	StealthAddress string     `json:"stealthAddress"`
	Amount         string     `json:"amount"` // decimal string in token units
	TokenID        string     `json:"tokenId"`
	TokenSymbol    string     `json:"tokenSymbol"`
	Memo           string     `json:"memo,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	Status         NoteStatus `json:"status"`
	// Readable is false when the payload did not decrypt with our key.
	// Such notes share our hash bucket but belong to someone else.
	Readable bool `json:"readable"`
}
