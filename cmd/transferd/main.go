package main

import (
	"net/http"
	"os"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/api"
	"github.com/DisCard-Technologies/discard-sub000/internal/client"
	"github.com/DisCard-Technologies/discard-sub000/internal/config"
	"github.com/DisCard-Technologies/discard-sub000/internal/keystore"
	"github.com/DisCard-Technologies/discard-sub000/internal/stealth"
	"github.com/DisCard-Technologies/discard-sub000/transfer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := config.PromptForPassword(); err != nil {
		log.Fatal().Err(err).Msg("failed to read password")
	}

	password, err := config.GetKeyFilePasswordBytes()
	if err != nil {
		log.Fatal().Err(err).Msg("password not available")
	}

	keys, err := keystore.NewFileKeystore(config.GetKeyFilePath(), password)
	clear(password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open keystore")
	}
	defer keys.Close()

	// Verify the key file decrypts before serving anything
	signingKey, err := keys.GetLocalSigningKeypair()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to unlock signing key")
	}
	clear(signingKey)

	ledger := client.NewSolanaClient()
	notes := client.NewNoteStoreClient()

	// Cryptographic capabilities are fixed here, once, for the process
	deriver := stealth.Sha256Deriver{}
	opener := stealth.BoxOpener{}

	executor := transfer.NewExecutor(keys, notes, ledger, deriver, opener, log.Logger)
	scanner, err := transfer.NewScanner(notes, keys, opener, executor, ledger, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scanner")
	}

	scanner.Start()
	defer scanner.Stop()

	router := api.SetupRouter(scanner)

	addr := ":" + config.GetPort()
	log.Info().
		Str("addr", addr).
		Str("address", scanner.Address()).
		Str("recipientHash", scanner.RecipientHash()).
		Msg("transferd listening")

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
