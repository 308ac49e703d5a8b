package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/DisCard-Technologies/discard-sub000/internal/common"
	"github.com/DisCard-Technologies/discard-sub000/internal/keystore"
	"github.com/DisCard-Technologies/discard-sub000/internal/model"
	"github.com/DisCard-Technologies/discard-sub000/internal/notestore"
	"github.com/DisCard-Technologies/discard-sub000/internal/stealth"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// Scanner watches the note store for the user's recipient hash and keeps a
// derived list of claimable transfers. Each store snapshot fully replaces
// the derived state, so duplicate or out-of-order delivery is harmless.
// The scanner holds no key material between snapshots; the signing key is
// fetched, used for display decryption and wiped on every update.
type Scanner struct {
	store    notestore.Store
	keys     keystore.Keystore
	opener   stealth.NoteOpener
	executor *Executor
	ledger   Ledger
	locks    *LockRegistry
	log      zerolog.Logger

	mainAddress   string
	recipientHash string

	mu        sync.RWMutex
	notes     []model.PrivateTransferNote
	transfers []model.ClaimableTransfer
	unclaimed int
	loading   bool
	cancel    func()
}

// NewScanner creates a scanner for the wallet held by keys
func NewScanner(store notestore.Store, keys keystore.Keystore, opener stealth.NoteOpener, executor *Executor, ledger Ledger, log zerolog.Logger) (*Scanner, error) {
	address, err := keys.Address()
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet address: %w", err)
	}

	return &Scanner{
		store:         store,
		keys:          keys,
		opener:        opener,
		executor:      executor,
		ledger:        ledger,
		locks:         NewLockRegistry(),
		log:           log,
		mainAddress:   address,
		recipientHash: stealth.ComputeRecipientHash(address),
		loading:       true,
	}, nil
}

// Start subscribes to the note store and applies snapshots until Stop is
// called or the store closes the stream
func (s *Scanner) Start() {
	ch, cancel := s.store.Subscribe(s.recipientHash)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		for snapshot := range ch {
			s.apply(snapshot)
		}
	}()
}

// Stop cancels the note store subscription
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// apply rebuilds the derived transfer list from a full snapshot
func (s *Scanner) apply(notes []model.PrivateTransferNote) {
	transfers := make([]model.ClaimableTransfer, 0, len(notes))
	unclaimed := 0

	recipientKey, err := s.keys.GetLocalSigningKeypair()
	if err != nil {
		// Without a key nothing decrypts; keep the raw rows so counts
		// stay truthful
		s.log.Warn().Err(err).Msg("signing key unavailable during scan")
	}
	defer clear(recipientKey)

	for i := range notes {
		note := &notes[i]
		if note.Status == model.NoteStatusUnclaimed {
			unclaimed++
		}
		transfers = append(transfers, s.project(note, recipientKey))
	}

	s.mu.Lock()
	s.notes = notes
	s.transfers = transfers
	s.unclaimed = unclaimed
	s.loading = false
	s.mu.Unlock()

	s.log.Debug().Int("notes", len(notes)).Int("unclaimed", unclaimed).Msg("note snapshot applied")
}

// project maps one note into its display row. Notes that do not decrypt
// with our key stay in the list unreadable; they may belong to another
// recipient sharing our hash bucket.
func (s *Scanner) project(note *model.PrivateTransferNote, recipientKey solana.PrivateKey) model.ClaimableTransfer {
	transfer := model.ClaimableTransfer{
		NoteID:         note.ID,
		StealthAddress: note.StealthAddress,
		CreatedAt:      note.CreatedAt,
		Status:         note.Status,
	}

	if len(recipientKey) == 0 {
		return transfer
	}

	ephemeralPub, err := solana.PublicKeyFromBase58(note.EphemeralPublicKey)
	if err != nil {
		return transfer
	}

	payload, ok := s.opener.Open(note.EncryptedPayload, ephemeralPub, recipientKey)
	if !ok {
		return transfer
	}

	transfer.Readable = true
	transfer.Amount = common.FormatTokenAmount(payload.Amount, payload.TokenID)
	transfer.TokenID = payload.TokenID
	transfer.TokenSymbol = common.TokenSymbol(payload.TokenID)
	transfer.Memo = payload.Memo
	return transfer
}

// Transfers returns a copy of the current claimable transfer list in the
// store's ordering
func (s *Scanner) Transfers() []model.ClaimableTransfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ClaimableTransfer, len(s.transfers))
	copy(out, s.transfers)
	return out
}

// UnclaimedCount returns the number of unclaimed notes in the last snapshot
func (s *Scanner) UnclaimedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unclaimed
}

// Loading reports whether the first snapshot has arrived yet
func (s *Scanner) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// RecipientHash returns the opaque lookup key for this wallet
func (s *Scanner) RecipientHash() string {
	return s.recipientHash
}

// Address returns the wallet's public address
func (s *Scanner) Address() string {
	return s.mainAddress
}

// ClaimTransfer runs the claim state machine for a note in the current
// snapshot
func (s *Scanner) ClaimTransfer(ctx context.Context, noteID string) *model.ClaimResult {
	s.mu.RLock()
	var note *model.PrivateTransferNote
	for i := range s.notes {
		if s.notes[i].ID == noteID {
			n := s.notes[i]
			note = &n
			break
		}
	}
	s.mu.RUnlock()

	if note == nil {
		return &model.ClaimResult{
			State: model.StateFailed,
			Error: &model.ClaimError{Code: model.ErrUnknown, Message: fmt.Sprintf("note not found: %s", noteID)},
		}
	}

	return s.executor.Claim(ctx, note)
}

// RefreshBalance reads the main wallet's native balance, de-duplicated per
// address so concurrent refreshes collapse into one
func (s *Scanner) RefreshBalance(ctx context.Context) (uint64, error) {
	if !s.locks.Acquire(s.mainAddress) {
		return 0, fmt.Errorf("balance refresh already in progress for %s", s.mainAddress)
	}
	defer s.locks.Release(s.mainAddress)

	pub, err := solana.PublicKeyFromBase58(s.mainAddress)
	if err != nil {
		return 0, fmt.Errorf("invalid wallet address: %w", err)
	}

	return s.ledger.GetBalance(ctx, pub)
}
