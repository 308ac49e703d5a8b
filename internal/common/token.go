package common

import "strconv"

// Token identifiers the subsystem recognizes. A note's tokenId is either
// the literal "SOL" (or empty) for the native asset, or a base58 mint
// address for an SPL token.
const (
	SOLTokenID      = "SOL"
	WrappedSOLMint  = "So11111111111111111111111111111111111111112"
	USDCMintMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" // mainnet only, does not exist on devnet/testnet
	USDCDecimals    = 6
)

// IsNativeToken reports whether a note's tokenId denotes the chain's
// native asset, selecting the native sweep path
func IsNativeToken(tokenID string) bool {
	return tokenID == "" || tokenID == SOLTokenID || tokenID == WrappedSOLMint
}

// TokenSymbol resolves a display symbol for a tokenId. Unknown mints fall
// back to a shortened mint address.
func TokenSymbol(tokenID string) string {
	switch {
	case IsNativeToken(tokenID):
		return "SOL"
	case tokenID == USDCMintMainnet:
		return "USDC"
	case len(tokenID) > 8:
		return tokenID[:4] + ".." + tokenID[len(tokenID)-4:]
	default:
		return tokenID
	}
}

// TokenDecimals returns the display decimals for a tokenId, or 0 for
// unknown mints (raw base units shown as-is)
func TokenDecimals(tokenID string) int {
	switch {
	case IsNativeToken(tokenID):
		return SOLDecimals
	case tokenID == USDCMintMainnet:
		return USDCDecimals
	default:
		return 0
	}
}

// FormatTokenAmount renders a raw base-unit amount for display using the
// token's known decimals
func FormatTokenAmount(raw uint64, tokenID string) string {
	decimals := TokenDecimals(tokenID)
	if decimals == 0 {
		return strconv.FormatUint(raw, 10)
	}
	return FormatWithDecimals(raw, decimals)
}
