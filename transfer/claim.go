package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/DisCard-Technologies/discard-sub000/internal/client"
	"github.com/DisCard-Technologies/discard-sub000/internal/common"
	"github.com/DisCard-Technologies/discard-sub000/internal/keystore"
	"github.com/DisCard-Technologies/discard-sub000/internal/model"
	"github.com/DisCard-Technologies/discard-sub000/internal/notestore"
	"github.com/DisCard-Technologies/discard-sub000/internal/stealth"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"
)

const (
	// feeReserveLamports is left at the stealth address to cover the
	// sweep transaction fee (0.000005 SOL)
	feeReserveLamports = 5000
)

// Ledger is the chain surface the executor needs. client.SolanaClient is
// the production implementation.
type Ledger interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetTokenAccountBalance(ctx context.Context, tokenAccount solana.PublicKey) (amount uint64, exists bool, err error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error
}

// Executor runs the claim state machine: derive and verify the stealth
// keypair, inspect balances, build and submit the sweep transaction, wait
// for confirmation and mark the note claimed. Every expected failure comes
// back as a structured ClaimResult; a failed claim is always retried from
// the start. The ledger's own double-spend protection is the concurrency
// control: if two claims race, the loser sees a drained stealth account.
type Executor struct {
	keys    keystore.Keystore
	store   notestore.Store
	ledger  Ledger
	deriver stealth.KeyDeriver
	opener  stealth.NoteOpener
	log     zerolog.Logger
}

// NewExecutor creates a claim executor. Deriver and opener are fixed at
// composition time.
func NewExecutor(keys keystore.Keystore, store notestore.Store, ledger Ledger, deriver stealth.KeyDeriver, opener stealth.NoteOpener, log zerolog.Logger) *Executor {
	return &Executor{
		keys:    keys,
		store:   store,
		ledger:  ledger,
		deriver: deriver,
		opener:  opener,
		log:     log,
	}
}

// Claim sweeps the funds behind a note to the user's main wallet
func (e *Executor) Claim(ctx context.Context, note *model.PrivateTransferNote) *model.ClaimResult {
	logger := e.log.With().Str("noteId", note.ID).Logger()

	// Key availability
	recipientKey, err := e.keys.GetLocalSigningKeypair()
	if err != nil {
		if errors.Is(err, keystore.ErrNoKey) {
			return fail(model.ErrNoSigningKey, "no local signing key available")
		}
		return fail(model.ErrNoSigningKey, err.Error())
	}
	defer clear(recipientKey)

	// Derivation and verification
	ephemeralPub, err := solana.PublicKeyFromBase58(note.EphemeralPublicKey)
	if err != nil {
		return fail(model.ErrUnknown, fmt.Sprintf("invalid ephemeral public key: %v", err))
	}
	stealthAddr, err := solana.PublicKeyFromBase58(note.StealthAddress)
	if err != nil {
		return fail(model.ErrUnknown, fmt.Sprintf("invalid stealth address: %v", err))
	}

	stealthKey := e.deriver.DeriveStealthKeypair(ephemeralPub, recipientKey)
	defer clear(stealthKey)

	stealthPub := stealthKey.PublicKey()
	if !stealthPub.Equals(stealthAddr) {
		// Hard stop: this note does not belong to our keys. Never move
		// funds on a mismatch.
		logger.Warn().Str("derived", stealthPub.String()).Str("expected", note.StealthAddress).Msg("stealth address mismatch")
		return fail(model.ErrAddressMismatch,
			"derived stealth address does not match note")
	}

	payload, ok := e.opener.Open(note.EncryptedPayload, ephemeralPub, recipientKey)
	if !ok {
		return fail(model.ErrUnknown, "note payload did not decrypt")
	}

	mainAddress, err := e.keys.Address()
	if err != nil {
		return fail(model.ErrUnknown, fmt.Sprintf("failed to read wallet address: %v", err))
	}
	mainPub, err := solana.PublicKeyFromBase58(mainAddress)
	if err != nil {
		return fail(model.ErrUnknown, fmt.Sprintf("invalid wallet address: %v", err))
	}

	// Path selection and instruction building
	var instructions []solana.Instruction
	var claimErr *model.ClaimError
	if common.IsNativeToken(payload.TokenID) {
		instructions, claimErr = e.buildNativeSweep(ctx, stealthPub, mainPub)
	} else {
		instructions, claimErr = e.buildTokenSweep(ctx, stealthPub, mainPub, payload.TokenID)
	}
	if claimErr != nil {
		return &model.ClaimResult{State: model.StateFailed, Error: claimErr}
	}

	// Assembly and signing. The stealth keypair pays the fee and is the
	// only signer; the main wallet key never touches this transaction.
	blockhash, lastValidBlockHeight, err := e.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return fail(model.ErrNetworkFailure, fmt.Sprintf("failed to get blockhash: %v", err))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(stealthPub))
	if err != nil {
		return fail(model.ErrUnknown, fmt.Sprintf("failed to build transaction: %v", err))
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if stealthPub.Equals(key) {
			return &stealthKey
		}
		return nil
	})
	if err != nil {
		return fail(model.ErrUnknown, fmt.Sprintf("failed to sign transaction: %v", err))
	}

	// Submission and confirmation
	sig, err := e.ledger.SendTransaction(ctx, tx)
	if err != nil {
		return fail(model.ErrNetworkFailure, fmt.Sprintf("failed to send transaction: %v", err))
	}

	logger.Info().Str("signature", sig.String()).Msg("sweep submitted")

	if err := e.ledger.ConfirmTransaction(ctx, sig, lastValidBlockHeight); err != nil {
		if errors.Is(err, client.ErrBlockhashExpired) {
			return fail(model.ErrConfirmationTimeout,
				"transaction not confirmed before blockhash expiry, retry with a fresh claim")
		}
		return fail(model.ErrNetworkFailure, fmt.Sprintf("confirmation failed: %v", err))
	}

	// Bookkeeping. If this fails the funds have still moved; the note
	// stays UNCLAIMED in the store and a later attempt fails harmlessly
	// on the drained stealth account.
	if err := e.store.MarkNoteClaimed(ctx, note.ID, sig.String()); err != nil {
		logger.Error().Err(err).Str("signature", sig.String()).Msg("sweep confirmed but mark-claimed failed")
		return &model.ClaimResult{
			Signature: sig.String(),
			State:     model.StateFailed,
			Error: &model.ClaimError{
				Code:    model.ErrBookkeepingDivergence,
				Message: fmt.Sprintf("sweep confirmed but note store update failed: %v", err),
			},
		}
	}

	logger.Info().Str("signature", sig.String()).Msg("claim confirmed")
	return &model.ClaimResult{
		Success:   true,
		Signature: sig.String(),
		State:     model.StateConfirmed,
	}
}

// buildNativeSweep builds the single-instruction native sweep
func (e *Executor) buildNativeSweep(ctx context.Context, stealthPub, mainPub solana.PublicKey) ([]solana.Instruction, *model.ClaimError) {
	balance, err := e.ledger.GetBalance(ctx, stealthPub)
	if err != nil {
		return nil, &model.ClaimError{Code: model.ErrNetworkFailure, Message: fmt.Sprintf("failed to read balance: %v", err)}
	}

	if balance <= feeReserveLamports {
		return nil, &model.ClaimError{
			Code: model.ErrInsufficientBalance,
			Message: fmt.Sprintf("balance %s SOL does not cover the %s SOL fee reserve",
				common.LamportsToSOL(balance), common.LamportsToSOL(feeReserveLamports)),
		}
	}

	sweep := balance - feeReserveLamports
	return []solana.Instruction{
		system.NewTransferInstruction(sweep, stealthPub, mainPub).Build(),
	}, nil
}

// buildTokenSweep builds the token-path sweep: full token balance to the
// main wallet's ATA, close the stealth ATA, then any native remainder.
// Transfer must precede close; closing a non-empty token account is invalid.
func (e *Executor) buildTokenSweep(ctx context.Context, stealthPub, mainPub solana.PublicKey, tokenID string) ([]solana.Instruction, *model.ClaimError) {
	mint, err := solana.PublicKeyFromBase58(tokenID)
	if err != nil {
		return nil, &model.ClaimError{Code: model.ErrUnknown, Message: fmt.Sprintf("invalid token mint: %v", err)}
	}

	stealthATA, _, err := solana.FindAssociatedTokenAddress(stealthPub, mint)
	if err != nil {
		return nil, &model.ClaimError{Code: model.ErrUnknown, Message: fmt.Sprintf("failed to derive stealth token account: %v", err)}
	}
	mainATA, _, err := solana.FindAssociatedTokenAddress(mainPub, mint)
	if err != nil {
		return nil, &model.ClaimError{Code: model.ErrUnknown, Message: fmt.Sprintf("failed to derive wallet token account: %v", err)}
	}

	tokenBalance, exists, err := e.ledger.GetTokenAccountBalance(ctx, stealthATA)
	if err != nil {
		return nil, &model.ClaimError{Code: model.ErrNetworkFailure, Message: fmt.Sprintf("failed to read token balance: %v", err)}
	}
	if !exists {
		return nil, &model.ClaimError{Code: model.ErrNoTokenAccount, Message: "stealth token account does not exist"}
	}
	if tokenBalance == 0 {
		return nil, &model.ClaimError{Code: model.ErrZeroBalance, Message: "stealth token account is empty"}
	}

	instructions := []solana.Instruction{
		token.NewTransferInstruction(
			tokenBalance,
			stealthATA,
			mainATA,
			stealthPub,
			[]solana.PublicKey{},
		).Build(),
		token.NewCloseAccountInstruction(
			stealthATA,
			stealthPub, // rent reclaim destination
			stealthPub, // close authority
			[]solana.PublicKey{},
		).Build(),
	}

	// Balance is read before the close executes on-chain, so the rent the
	// close refunds inside this same transaction is not part of the sweep.
	// TODO: sweep the refunded rent with a follow-up native claim once the
	// close has confirmed.
	lamports, err := e.ledger.GetBalance(ctx, stealthPub)
	if err != nil {
		return nil, &model.ClaimError{Code: model.ErrNetworkFailure, Message: fmt.Sprintf("failed to read native balance: %v", err)}
	}
	if lamports > feeReserveLamports {
		instructions = append(instructions,
			system.NewTransferInstruction(lamports-feeReserveLamports, stealthPub, mainPub).Build())
	}

	return instructions, nil
}

func fail(code model.ClaimErrorCode, msg string) *model.ClaimResult {
	return &model.ClaimResult{
		State: model.StateFailed,
		Error: &model.ClaimError{Code: code, Message: msg},
	}
}
