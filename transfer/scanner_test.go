package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"
	"github.com/DisCard-Technologies/discard-sub000/internal/notestore"
	"github.com/DisCard-Technologies/discard-sub000/internal/stealth"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T, recipient solana.PrivateKey, store notestore.Store, ledger Ledger) *Scanner {
	t.Helper()
	keys := &fakeKeystore{key: recipient}
	executor := newTestExecutor(keys, store, ledger)
	scanner, err := NewScanner(store, keys, stealth.BoxOpener{}, executor, ledger, zerolog.Nop())
	require.NoError(t, err)
	return scanner
}

func waitForSnapshot(t *testing.T, scanner *Scanner) {
	t.Helper()
	require.Eventually(t, func() bool { return !scanner.Loading() },
		2*time.Second, 10*time.Millisecond, "scanner never received a snapshot")
}

func TestScannerProjectsSnapshot(t *testing.T) {
	recipient := solana.NewWallet()
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	first := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 50_000_000, TokenID: "SOL", Memo: "rent"})
	second := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_250_000, TokenID: usdcMint})
	second.Status = model.NoteStatusClaimed
	second.ClaimSignature = "sig"
	store.Put(first)
	store.Put(second)

	scanner := newTestScanner(t, recipient.PrivateKey, store, ledger)
	scanner.Start()
	defer scanner.Stop()
	waitForSnapshot(t, scanner)

	transfers := scanner.Transfers()
	require.Len(t, transfers, 2)

	// Store ordering preserved
	assert.Equal(t, first.ID, transfers[0].NoteID)
	assert.Equal(t, second.ID, transfers[1].NoteID)

	assert.True(t, transfers[0].Readable)
	assert.Equal(t, "0.050000000", transfers[0].Amount)
	assert.Equal(t, "SOL", transfers[0].TokenSymbol)
	assert.Equal(t, "rent", transfers[0].Memo)

	assert.True(t, transfers[1].Readable)
	assert.Equal(t, "1.250000", transfers[1].Amount)
	assert.Equal(t, "USDC", transfers[1].TokenSymbol)
	assert.Equal(t, model.NoteStatusClaimed, transfers[1].Status)

	assert.Equal(t, 1, scanner.UnclaimedCount())
}

func TestScannerForeignNoteUnreadable(t *testing.T) {
	recipient := solana.NewWallet()
	stranger := solana.NewWallet()
	store := notestore.NewMemoryStore()

	// Sealed for someone else but landed in our hash bucket
	foreign := makeNote(t, stranger.PrivateKey, model.NotePayload{Amount: 7, TokenID: "SOL"})
	foreign.RecipientHash = stealth.ComputeRecipientHash(recipient.PublicKey().String())
	store.Put(foreign)

	scanner := newTestScanner(t, recipient.PrivateKey, store, newMockLedger())
	scanner.Start()
	defer scanner.Stop()
	waitForSnapshot(t, scanner)

	transfers := scanner.Transfers()
	require.Len(t, transfers, 1)
	assert.False(t, transfers[0].Readable)
	assert.Empty(t, transfers[0].Amount)
}

func TestScannerDuplicateSnapshotIdempotent(t *testing.T) {
	recipient := solana.NewWallet()
	store := notestore.NewMemoryStore()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 123, TokenID: "SOL"})
	store.Put(note)

	scanner := newTestScanner(t, recipient.PrivateKey, store, newMockLedger())
	scanner.Start()
	defer scanner.Stop()
	waitForSnapshot(t, scanner)

	before := scanner.Transfers()

	// Redelivery of identical state
	store.Put(note)
	time.Sleep(50 * time.Millisecond)

	after := scanner.Transfers()
	assert.Equal(t, before, after)
	assert.Equal(t, 1, scanner.UnclaimedCount())
}

func TestScannerClaimUnknownNote(t *testing.T) {
	recipient := solana.NewWallet()
	scanner := newTestScanner(t, recipient.PrivateKey, notestore.NewMemoryStore(), newMockLedger())

	result := scanner.ClaimTransfer(context.Background(), "missing")
	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrUnknown, result.Error.Code)
}

func TestScannerClaimEndToEnd(t *testing.T) {
	recipient := solana.NewWallet()
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_000_000, TokenID: "SOL"})
	store.Put(note)
	ledger.balances[stealthPubOf(t, recipient.PrivateKey, note)] = 1_000_000

	scanner := newTestScanner(t, recipient.PrivateKey, store, ledger)
	scanner.Start()
	defer scanner.Stop()
	waitForSnapshot(t, scanner)

	result := scanner.ClaimTransfer(context.Background(), note.ID)
	require.Nil(t, result.Error)
	require.True(t, result.Success)

	// The store push moves the note to claimed in the derived list
	require.Eventually(t, func() bool {
		transfers := scanner.Transfers()
		return len(transfers) == 1 && transfers[0].Status == model.NoteStatusClaimed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, scanner.UnclaimedCount())
}

func TestScannerRecipientHash(t *testing.T) {
	recipient := solana.NewWallet()
	scanner := newTestScanner(t, recipient.PrivateKey, notestore.NewMemoryStore(), newMockLedger())

	assert.Equal(t, stealth.ComputeRecipientHash(recipient.PublicKey().String()), scanner.RecipientHash())
	assert.Equal(t, recipient.PublicKey().String(), scanner.Address())
}
