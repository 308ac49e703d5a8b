package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/config"
	"github.com/DisCard-Technologies/discard-sub000/internal/model"

	"github.com/rs/zerolog/log"
)

// NoteStoreClient talks to the managed note store over its HTTP query and
// mutation surface. Subscriptions are emulated by polling: every poll
// delivers a full snapshot, which is safe because the scanner's derived
// state is recomputed from each snapshot in full.
type NoteStoreClient struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

// NewNoteStoreClient creates a note store client from configuration
func NewNoteStoreClient() *NoteStoreClient {
	return &NoteStoreClient{
		baseURL: config.GetNoteStoreURL(),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		pollInterval: config.GetNotePollInterval(),
	}
}

// NotesForRecipient queries all notes for a recipient hash
func (c *NoteStoreClient) NotesForRecipient(ctx context.Context, recipientHash string) ([]model.PrivateTransferNote, error) {
	reqURL := fmt.Sprintf("%s/notes?recipient=%s", c.baseURL, url.QueryEscape(recipientHash))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to query notes: status %d", resp.StatusCode)
	}

	var notes []model.PrivateTransferNote
	if err := json.NewDecoder(resp.Body).Decode(&notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}

// countResponse is the note store's count envelope
type countResponse struct {
	Unclaimed int `json:"unclaimed"`
}

// ClaimableCount queries the number of unclaimed notes for a recipient hash
func (c *NoteStoreClient) ClaimableCount(ctx context.Context, recipientHash string) (int, error) {
	reqURL := fmt.Sprintf("%s/notes/count?recipient=%s", c.baseURL, url.QueryEscape(recipientHash))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to query count: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to query count: status %d", resp.StatusCode)
	}

	var count countResponse
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("failed to decode count: %w", err)
	}
	return count.Unclaimed, nil
}

// MarkNoteClaimed records the claim signature against a note
func (c *NoteStoreClient) MarkNoteClaimed(ctx context.Context, noteID, claimSignature string) error {
	reqURL := fmt.Sprintf("%s/notes/%s/claimed", c.baseURL, url.PathEscape(noteID))

	body, err := json.Marshal(map[string]string{"signature": claimSignature})
	if err != nil {
		return fmt.Errorf("failed to marshal claim body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to mark note claimed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to mark note claimed: status %d", resp.StatusCode)
	}
	return nil
}

// Subscribe polls the store and delivers a full snapshot on every
// successful poll until the cancel function is called
func (c *NoteStoreClient) Subscribe(recipientHash string) (<-chan []model.PrivateTransferNote, func()) {
	ch := make(chan []model.PrivateTransferNote, 1)
	stop := make(chan struct{})

	go func() {
		defer close(ch)
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			notes, err := c.NotesForRecipient(context.Background(), recipientHash)
			if err != nil {
				log.Warn().Err(err).Str("recipientHash", recipientHash).Msg("note store poll failed")
			} else {
				// Drop an undelivered snapshot; only the latest matters
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- notes:
				case <-stop:
					return
				}
			}

			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return ch, func() { close(stop) }
}
