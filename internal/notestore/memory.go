package notestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"
)

// MemoryStore is an in-process Store used by tests and local runs.
// It preserves insertion order per recipient hash and pushes a fresh
// snapshot to subscribers on every mutation.
type MemoryStore struct {
	mu    sync.Mutex
	notes []model.PrivateTransferNote
	subs  map[string][]chan []model.PrivateTransferNote
}

// NewMemoryStore creates an empty in-memory note store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[string][]chan []model.PrivateTransferNote),
	}
}

// Put inserts or replaces a note and notifies subscribers for its hash
func (s *MemoryStore) Put(note model.PrivateTransferNote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.notes {
		if s.notes[i].ID == note.ID {
			s.notes[i] = note
			replaced = true
			break
		}
	}
	if !replaced {
		s.notes = append(s.notes, note)
	}
	s.publishLocked(note.RecipientHash)
}

// NotesForRecipient returns matching notes in insertion order
func (s *MemoryStore) NotesForRecipient(_ context.Context, recipientHash string) ([]model.PrivateTransferNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(recipientHash), nil
}

// ClaimableCount returns the number of unclaimed notes for the hash
func (s *MemoryStore) ClaimableCount(_ context.Context, recipientHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range s.notes {
		if s.notes[i].RecipientHash == recipientHash && s.notes[i].Status == model.NoteStatusUnclaimed {
			count++
		}
	}
	return count, nil
}

// MarkNoteClaimed moves a note to CLAIMED and records the sweep signature
func (s *MemoryStore) MarkNoteClaimed(_ context.Context, noteID, claimSignature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID == noteID {
			s.notes[i].Status = model.NoteStatusClaimed
			s.notes[i].ClaimSignature = claimSignature
			s.publishLocked(s.notes[i].RecipientHash)
			return nil
		}
	}
	return fmt.Errorf("note not found: %s", noteID)
}

// Subscribe registers a snapshot channel for the hash. The current
// snapshot is delivered immediately; later mutations coalesce, so a slow
// subscriber only ever sees the latest state.
func (s *MemoryStore) Subscribe(recipientHash string) (<-chan []model.PrivateTransferNote, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan []model.PrivateTransferNote, 1)
	ch <- s.snapshotLocked(recipientHash)
	s.subs[recipientHash] = append(s.subs[recipientHash], ch)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[recipientHash]
		for i := range subs {
			if subs[i] == ch {
				s.subs[recipientHash] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// publishLocked pushes a fresh snapshot to every subscriber of the hash,
// dropping any undelivered previous snapshot. Caller holds s.mu.
func (s *MemoryStore) publishLocked(recipientHash string) {
	for _, ch := range s.subs[recipientHash] {
		select {
		case <-ch:
		default:
		}
		ch <- s.snapshotLocked(recipientHash)
	}
}

func (s *MemoryStore) snapshotLocked(recipientHash string) []model.PrivateTransferNote {
	out := make([]model.PrivateTransferNote, 0, 4)
	for i := range s.notes {
		if s.notes[i].RecipientHash == recipientHash {
			out = append(out, s.notes[i])
		}
	}
	return out
}
