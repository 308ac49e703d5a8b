package notestore

import (
	"context"
	"testing"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(id, hash string, status model.NoteStatus) model.PrivateTransferNote {
	return model.PrivateTransferNote{
		ID:            id,
		RecipientHash: hash,
		Status:        status,
		CreatedAt:     time.Now(),
	}
}

func TestMemoryStoreQueries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(note("a", "hash-1", model.NoteStatusUnclaimed))
	store.Put(note("b", "hash-1", model.NoteStatusClaimed))
	store.Put(note("c", "hash-2", model.NoteStatusUnclaimed))

	notes, err := store.NotesForRecipient(ctx, "hash-1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].ID)
	assert.Equal(t, "b", notes[1].ID)

	count, err := store.ClaimableCount(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreMarkClaimed(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(note("a", "hash-1", model.NoteStatusUnclaimed))

	require.NoError(t, store.MarkNoteClaimed(ctx, "a", "sig-123"))

	notes, err := store.NotesForRecipient(ctx, "hash-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NoteStatusClaimed, notes[0].Status)
	assert.Equal(t, "sig-123", notes[0].ClaimSignature)

	assert.Error(t, store.MarkNoteClaimed(ctx, "missing", "sig"))
}

func TestMemoryStoreSubscribe(t *testing.T) {
	store := NewMemoryStore()

	store.Put(note("a", "hash-1", model.NoteStatusUnclaimed))

	ch, cancel := store.Subscribe("hash-1")

	// Initial snapshot arrives immediately
	snapshot := <-ch
	require.Len(t, snapshot, 1)

	store.Put(note("b", "hash-1", model.NoteStatusUnclaimed))

	select {
	case snapshot = <-ch:
		require.Len(t, snapshot, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after mutation")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "channel must close on cancel")
}

func TestMemoryStoreSubscribeCoalesces(t *testing.T) {
	store := NewMemoryStore()
	ch, cancel := store.Subscribe("hash-1")
	defer cancel()

	<-ch // initial empty snapshot

	// Burst of mutations with no consumer; only the latest state matters
	for i := 0; i < 5; i++ {
		store.Put(note(string(rune('a'+i)), "hash-1", model.NoteStatusUnclaimed))
	}

	snapshot := <-ch
	assert.Len(t, snapshot, 5)
}
