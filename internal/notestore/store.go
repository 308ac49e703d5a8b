package notestore

import (
	"context"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"
)

// Store is the managed note store, an external collaborator consumed only
// through this query/mutation surface. Notes are indexed by recipient hash;
// the plaintext recipient address is never used as a search term.
type Store interface {
	// NotesForRecipient returns all notes whose recipientHash matches,
	// in the store's own ordering
	NotesForRecipient(ctx context.Context, recipientHash string) ([]model.PrivateTransferNote, error)

	// ClaimableCount returns the number of unclaimed notes for the hash
	ClaimableCount(ctx context.Context, recipientHash string) (int, error)

	// MarkNoteClaimed records the claim transaction signature and moves
	// the note to CLAIMED. Called exactly once per successful sweep.
	MarkNoteClaimed(ctx context.Context, noteID, claimSignature string) error

	// Subscribe returns a channel of full snapshots for the recipient
	// hash and a cancel function. Delivery is at-least-once: duplicate or
	// out-of-order snapshots are harmless because each one fully replaces
	// the subscriber's derived state.
	Subscribe(recipientHash string) (<-chan []model.PrivateTransferNote, func())
}
