package transfer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/client"
	"github.com/DisCard-Technologies/discard-sub000/internal/keystore"
	"github.com/DisCard-Technologies/discard-sub000/internal/model"
	"github.com/DisCard-Technologies/discard-sub000/internal/notestore"
	"github.com/DisCard-Technologies/discard-sub000/internal/stealth"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// fakeKeystore serves a fixed signing key from memory
type fakeKeystore struct {
	key solana.PrivateKey
	err error
}

func (f *fakeKeystore) GetLocalSigningKeypair() (solana.PrivateKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(solana.PrivateKey, len(f.key))
	copy(out, f.key)
	return out, nil
}

func (f *fakeKeystore) Address() (string, error) {
	return f.key.PublicKey().String(), nil
}

// mockLedger is an in-memory chain: native balances, token balances and a
// record of what was broadcast
type mockLedger struct {
	balances      map[solana.PublicKey]uint64
	tokenBalances map[solana.PublicKey]uint64

	balanceCalls int
	sentTx       *solana.Transaction
	sendErr      error
	confirmErr   error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:      make(map[solana.PublicKey]uint64),
		tokenBalances: make(map[solana.PublicKey]uint64),
	}
}

func (m *mockLedger) GetBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	m.balanceCalls++
	return m.balances[account], nil
}

func (m *mockLedger) GetTokenAccountBalance(_ context.Context, tokenAccount solana.PublicKey) (uint64, bool, error) {
	amount, exists := m.tokenBalances[tokenAccount]
	return amount, exists, nil
}

func (m *mockLedger) GetLatestBlockhash(_ context.Context) (solana.Hash, uint64, error) {
	var hash solana.Hash
	hash[0] = 0x42
	return hash, 250_000_000, nil
}

func (m *mockLedger) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	m.sentTx = tx
	var sig solana.Signature
	sig[0] = 0x99
	return sig, nil
}

func (m *mockLedger) ConfirmTransaction(_ context.Context, _ solana.Signature, _ uint64) error {
	return m.confirmErr
}

// failingStore wraps the memory store and refuses mark-claimed calls
type failingStore struct {
	*notestore.MemoryStore
}

func (s *failingStore) MarkNoteClaimed(_ context.Context, _, _ string) error {
	return errors.New("store unavailable")
}

// makeNote seals a payload for the recipient and records the honestly
// derived stealth address
func makeNote(t *testing.T, recipient solana.PrivateKey, payload model.NotePayload) model.PrivateTransferNote {
	t.Helper()

	ephPub, ephPriv, err := stealth.GenerateEphemeralKeypair()
	require.NoError(t, err)

	ephPubKey := solana.PublicKeyFromBytes(ephPub[:])
	stealthKey := stealth.Sha256Deriver{}.DeriveStealthKeypair(ephPubKey, recipient)

	boxPub, err := stealth.NoteEncryptionPublicKey(recipient)
	require.NoError(t, err)
	ciphertext, err := stealth.SealNote(&payload, ephPriv, &boxPub)
	require.NoError(t, err)

	return model.PrivateTransferNote{
		ID:                 fmt.Sprintf("note-%d", time.Now().UnixNano()),
		StealthAddress:     stealthKey.PublicKey().String(),
		EphemeralPublicKey: ephPubKey.String(),
		EncryptedPayload:   ciphertext,
		RecipientHash:      stealth.ComputeRecipientHash(recipient.PublicKey().String()),
		CreatedAt:          time.Now(),
		Status:             model.NoteStatusUnclaimed,
	}
}

func stealthPubOf(t *testing.T, recipient solana.PrivateKey, note model.PrivateTransferNote) solana.PublicKey {
	t.Helper()
	ephPubKey, err := solana.PublicKeyFromBase58(note.EphemeralPublicKey)
	require.NoError(t, err)
	return stealth.Sha256Deriver{}.DeriveStealthKeypair(ephPubKey, recipient).PublicKey()
}

func newTestExecutor(keys keystore.Keystore, store notestore.Store, ledger Ledger) *Executor {
	return NewExecutor(keys, store, ledger, stealth.Sha256Deriver{}, stealth.BoxOpener{}, zerolog.Nop())
}

func TestClaimNativeSweep(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_000_000, TokenID: "SOL"})
	store.Put(note)

	stealthPub := stealthPubOf(t, recipient.PrivateKey, note)
	ledger.balances[stealthPub] = 1_000_000

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.Nil(t, result.Error)
	require.True(t, result.Success)
	assert.Equal(t, model.StateConfirmed, result.State)
	assert.NotEmpty(t, result.Signature)

	// Exactly one instruction sweeping balance minus the fee reserve
	require.NotNil(t, ledger.sentTx)
	require.Len(t, ledger.sentTx.Message.Instructions, 1)

	data := []byte(ledger.sentTx.Message.Instructions[0].Data)
	require.Len(t, data, 12) // u32 discriminator + u64 lamports
	assert.Equal(t, uint64(995_000), binary.LittleEndian.Uint64(data[4:12]))

	// Stealth keypair is the fee payer
	assert.Equal(t, stealthPub, ledger.sentTx.Message.AccountKeys[0])

	// Store bookkeeping happened
	notes, err := store.NotesForRecipient(context.Background(), note.RecipientHash)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NoteStatusClaimed, notes[0].Status)
	assert.Equal(t, result.Signature, notes[0].ClaimSignature)
}

func TestClaimNativeInsufficientBalance(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 4000, TokenID: "SOL"})
	ledger.balances[stealthPubOf(t, recipient.PrivateKey, note)] = 4000

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.False(t, result.Success)
	assert.Equal(t, model.ErrInsufficientBalance, result.Error.Code)
	assert.Nil(t, ledger.sentTx, "no transaction may be built below the fee reserve")
}

func TestClaimTokenSweepOrdering(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 250, TokenID: usdcMint})
	store.Put(note)
	stealthPub := stealthPubOf(t, recipient.PrivateKey, note)

	mint := solana.MustPublicKeyFromBase58(usdcMint)
	stealthATA, _, err := solana.FindAssociatedTokenAddress(stealthPub, mint)
	require.NoError(t, err)

	ledger.tokenBalances[stealthATA] = 250
	ledger.balances[stealthPub] = 12_000 // rent above the fee reserve

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.Nil(t, result.Error)
	require.True(t, result.Success)
	require.NotNil(t, ledger.sentTx)

	msg := ledger.sentTx.Message
	require.Len(t, msg.Instructions, 3)

	programID := func(i int) solana.PublicKey {
		return msg.AccountKeys[msg.Instructions[i].ProgramIDIndex]
	}

	// Token transfer strictly before close, native remainder last
	assert.Equal(t, solana.TokenProgramID, programID(0))
	assert.Equal(t, byte(3), []byte(msg.Instructions[0].Data)[0]) // Transfer
	assert.Equal(t, solana.TokenProgramID, programID(1))
	assert.Equal(t, byte(9), []byte(msg.Instructions[1].Data)[0]) // CloseAccount
	assert.Equal(t, solana.SystemProgramID, programID(2))

	nativeData := []byte(msg.Instructions[2].Data)
	assert.Equal(t, uint64(7_000), binary.LittleEndian.Uint64(nativeData[4:12]))
}

func TestClaimTokenZeroBalance(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 250, TokenID: usdcMint})
	stealthPub := stealthPubOf(t, recipient.PrivateKey, note)

	mint := solana.MustPublicKeyFromBase58(usdcMint)
	stealthATA, _, err := solana.FindAssociatedTokenAddress(stealthPub, mint)
	require.NoError(t, err)
	ledger.tokenBalances[stealthATA] = 0 // account exists, empty

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrZeroBalance, result.Error.Code)
	assert.Nil(t, ledger.sentTx)
}

func TestClaimTokenNoAccount(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 250, TokenID: usdcMint})

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrNoTokenAccount, result.Error.Code)
	assert.Nil(t, ledger.sentTx)
}

func TestClaimAddressMismatchHardStop(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_000_000, TokenID: "SOL"})
	// Note recorded for someone else's derivation
	note.StealthAddress = solana.NewWallet().PublicKey().String()

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrAddressMismatch, result.Error.Code)
	assert.False(t, result.Error.Retryable())

	// Hard stop before any chain traffic
	assert.Zero(t, ledger.balanceCalls)
	assert.Nil(t, ledger.sentTx)
}

func TestClaimNoSigningKey(t *testing.T) {
	keys := &fakeKeystore{err: keystore.ErrNoKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	recipient := solana.NewWallet()
	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1, TokenID: "SOL"})

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrNoSigningKey, result.Error.Code)
}

func TestClaimIdempotentReclaim(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_000_000, TokenID: "SOL"})
	store.Put(note)
	stealthPub := stealthPubOf(t, recipient.PrivateKey, note)
	ledger.balances[stealthPub] = 1_000_000

	executor := newTestExecutor(keys, store, ledger)

	first := executor.Claim(context.Background(), &note)
	require.True(t, first.Success)

	// The sweep drained the stealth account
	ledger.balances[stealthPub] = 0
	ledger.sentTx = nil

	second := executor.Claim(context.Background(), &note)
	require.NotNil(t, second.Error)
	assert.Equal(t, model.ErrInsufficientBalance, second.Error.Code)
	assert.Nil(t, ledger.sentTx, "a drained note must never produce a second transfer")
}

func TestClaimConfirmationTimeout(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := notestore.NewMemoryStore()
	ledger := newMockLedger()
	ledger.confirmErr = client.ErrBlockhashExpired

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_000_000, TokenID: "SOL"})
	ledger.balances[stealthPubOf(t, recipient.PrivateKey, note)] = 1_000_000

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrConfirmationTimeout, result.Error.Code)
	assert.True(t, result.Error.Retryable())
}

func TestClaimBookkeepingDivergence(t *testing.T) {
	recipient := solana.NewWallet()
	keys := &fakeKeystore{key: recipient.PrivateKey}
	store := &failingStore{MemoryStore: notestore.NewMemoryStore()}
	ledger := newMockLedger()

	note := makeNote(t, recipient.PrivateKey, model.NotePayload{Amount: 1_000_000, TokenID: "SOL"})
	ledger.balances[stealthPubOf(t, recipient.PrivateKey, note)] = 1_000_000

	result := newTestExecutor(keys, store, ledger).Claim(context.Background(), &note)

	require.NotNil(t, result.Error)
	assert.False(t, result.Success)
	assert.Equal(t, model.ErrBookkeepingDivergence, result.Error.Code)
	// Funds moved: the result still reports the on-chain signature
	assert.NotEmpty(t, result.Signature)
}
