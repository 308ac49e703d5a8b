package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/DisCard-Technologies/discard-sub000/internal/common"
	"github.com/DisCard-Technologies/discard-sub000/internal/model"
	"github.com/DisCard-Technologies/discard-sub000/transfer"

	"github.com/skip2/go-qrcode"
)

// TransferHandler exposes the private-transfer scanner and claim path
type TransferHandler struct {
	scanner *transfer.Scanner
}

// NewTransferHandler creates a new TransferHandler over a running scanner
func NewTransferHandler(scanner *transfer.Scanner) *TransferHandler {
	return &TransferHandler{scanner: scanner}
}

// List handles GET /transfers
// @Summary      List claimable transfers
// @Description  Returns the decrypted view of private transfer notes addressed to this wallet
// @Tags         transfers
// @Produce      json
// @Success      200  {object}  model.TransferListResponse
// @Router       /transfers [get]
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, model.TransferListResponse{
		RecipientHash: h.scanner.RecipientHash(),
		Unclaimed:     h.scanner.UnclaimedCount(),
		Transfers:     h.scanner.Transfers(),
	})
}

// Count handles GET /transfers/count
// @Summary      Count unclaimed transfers
// @Description  Returns the number of unclaimed private transfers for this wallet
// @Tags         transfers
// @Produce      json
// @Success      200  {object}  model.CountResponse
// @Router       /transfers/count [get]
func (h *TransferHandler) Count(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, model.CountResponse{Unclaimed: h.scanner.UnclaimedCount()})
}

// Claim handles POST /transfers/claim
// @Summary      Claim a private transfer
// @Description  Derives the stealth keypair, sweeps the funds to this wallet and marks the note claimed. Failures are returned in the result body, verbatim.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        request  body      model.ClaimRequest  true  "Note to claim"
// @Success      200      {object}  model.ClaimResult
// @Router       /transfers/claim [post]
func (h *TransferHandler) Claim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	if req.NoteID == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "noteId is required"})
		return
	}

	// Expected claim failures travel inside the result, not as HTTP errors
	result := h.scanner.ClaimTransfer(r.Context(), req.NoteID)
	writeJSON(w, http.StatusOK, result)
}

// Address handles GET /wallet/address
// @Summary      Get receive address
// @Description  Returns the wallet address, its recipient hash and a QR code for sharing
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.AddressResponse
// @Router       /wallet/address [get]
func (h *TransferHandler) Address(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	address := h.scanner.Address()
	qr, err := generateQRCode(address)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, model.AddressResponse{
		Address:       address,
		RecipientHash: h.scanner.RecipientHash(),
		QR:            qr,
	})
}

// Balance handles GET /wallet/balance
// @Summary      Get wallet balance
// @Description  Reads the main wallet's SOL balance. Concurrent refreshes for the same address are rejected.
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /wallet/balance [get]
func (h *TransferHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	lamports, err := h.scanner.RefreshBalance(r.Context())
	if err != nil {
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"address": h.scanner.Address(),
		"sol":     common.LamportsToSOL(lamports),
	})
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", err
	}
	png, err := qr.PNG(256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
