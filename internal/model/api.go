package model

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// TransferListResponse represents response for GET /transfers
type TransferListResponse struct {
	RecipientHash string              `json:"recipientHash"`
	Unclaimed     int                 `json:"unclaimed"`
	Transfers     []ClaimableTransfer `json:"transfers"`
}

// CountResponse represents response for GET /transfers/count
type CountResponse struct {
	Unclaimed int `json:"unclaimed"`
}

// ClaimRequest represents request for POST /transfers/claim
type ClaimRequest struct {
	NoteID string `json:"noteId" binding:"required"`
}

// AddressResponse represents response for GET /wallet/address
type AddressResponse struct {
	Address       string `json:"address"`
	RecipientHash string `json:"recipientHash"`
	QR            string `json:"qr"` // base64 PNG
}
