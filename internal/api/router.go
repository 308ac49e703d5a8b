package api

import (
	"net/http"

	"github.com/DisCard-Technologies/discard-sub000/internal/handler"
	"github.com/DisCard-Technologies/discard-sub000/transfer"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(scanner *transfer.Scanner) http.Handler {
	transferHandler := handler.NewTransferHandler(scanner)

	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Private transfer endpoints
	mux.HandleFunc("/transfers", transferHandler.List)
	mux.HandleFunc("/transfers/count", transferHandler.Count)
	mux.HandleFunc("/transfers/claim", transferHandler.Claim)
	mux.HandleFunc("/wallet/address", transferHandler.Address)
	mux.HandleFunc("/wallet/balance", transferHandler.Balance)

	return mux
}
