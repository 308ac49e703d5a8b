package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/config"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrBlockhashExpired is returned by ConfirmTransaction when the chain
// moves past the blockhash's last valid height without the transaction
// confirming. The caller must rebuild with a fresh blockhash to retry.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

const confirmPollInterval = 2 * time.Second

// SolanaClient is a client for working with Solana RPC
type SolanaClient struct {
	rpcClient *rpc.Client
	rpcURL    string
}

// NewSolanaClient creates a new Solana client using the configured RPC URL
func NewSolanaClient() *SolanaClient {
	rpcURL := config.GetSolanaRPCURL()
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		rpcURL:    rpcURL,
	}
}

// GetBalance gets the native balance of an account in lamports
func (c *SolanaClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	balance, err := c.rpcClient.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// GetTokenAccountBalance gets a token account's balance in raw base units.
// A missing account is reported through exists=false, not an error.
func (c *SolanaClient) GetTokenAccountBalance(ctx context.Context, tokenAccount solana.PublicKey) (amount uint64, exists bool, err error) {
	balance, err := c.rpcClient.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentConfirmed)
	if err != nil {
		if isAccountNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get token account balance: %w", err)
	}

	if balance.Value == nil {
		return 0, true, nil
	}

	amount, err = strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("failed to parse token balance amount: %w", err)
	}
	return amount, true, nil
}

// GetLatestBlockhash returns a fresh blockhash and the last block height at
// which a transaction using it remains valid
func (c *SolanaClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return recent.Value.Blockhash, recent.Value.LastValidBlockHeight, nil
}

// SendTransaction broadcasts a signed transaction
func (c *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false, // transaction validation before node
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// ConfirmTransaction polls until the signature reaches confirmed commitment
// or the chain passes lastValidBlockHeight, whichever comes first
func (c *SolanaClient) ConfirmTransaction(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpcClient.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return fmt.Errorf("failed to get signature status: %w", err)
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction failed on-chain: %v", status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		height, err := c.rpcClient.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return fmt.Errorf("failed to get block height: %w", err)
		}
		if height > lastValidBlockHeight {
			return ErrBlockhashExpired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// isAccountNotFoundError checks if error indicates that the account doesn't exist
func isAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "could not find account") ||
		strings.Contains(errStr, "not found")
}
