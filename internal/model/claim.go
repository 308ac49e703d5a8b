package model

// ClaimState tracks where a claim attempt is in its lifecycle.
// A failed claim is always retried from StateUnclaimed.
type ClaimState string

const (
	StateUnclaimed ClaimState = "UNCLAIMED"
	StateVerifying ClaimState = "VERIFYING"
	StateBuilding  ClaimState = "BUILDING"
	StateSigned    ClaimState = "SIGNED"
	StateSubmitted ClaimState = "SUBMITTED"
	StateConfirmed ClaimState = "CONFIRMED"
	StateFailed    ClaimState = "FAILED"
)

// ClaimErrorCode classifies claim failures
type ClaimErrorCode string

const (
	ErrNoSigningKey          ClaimErrorCode = "NO_SIGNING_KEY"
	ErrAddressMismatch       ClaimErrorCode = "ADDRESS_MISMATCH"
	ErrInsufficientBalance   ClaimErrorCode = "INSUFFICIENT_BALANCE"
	ErrNoTokenAccount        ClaimErrorCode = "NO_TOKEN_ACCOUNT"
	ErrZeroBalance           ClaimErrorCode = "ZERO_BALANCE"
	ErrNetworkFailure        ClaimErrorCode = "NETWORK_FAILURE"
	ErrConfirmationTimeout   ClaimErrorCode = "CONFIRMATION_TIMEOUT"
	ErrBookkeepingDivergence ClaimErrorCode = "BOOKKEEPING_DIVERGENCE"
	ErrUnknown               ClaimErrorCode = "UNKNOWN"
)

// ClaimError is a structured claim failure. Expected failure paths are
// reported through this type, never as a raw error.
type ClaimError struct {
	Code    ClaimErrorCode `json:"code"`
	Message string         `json:"message"`
}

func (e *ClaimError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Retryable reports whether re-invoking the claim can succeed.
// AddressMismatch always fails identically with the same keys.
func (e *ClaimError) Retryable() bool {
	return e.Code != ErrAddressMismatch
}

// ClaimResult is the outcome of a claim attempt. Signature is set on success
// and also on BookkeepingDivergence, where the sweep confirmed on-chain but
// the note store could not be updated.
type ClaimResult struct {
	Success   bool        `json:"success"`
	Signature string      `json:"signature,omitempty"`
	State     ClaimState  `json:"state"`
	Error     *ClaimError `json:"error,omitempty"`
}
