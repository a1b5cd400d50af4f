package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

func TestJournalRepo_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	r, err := NewJournalRepo(filepath.Join(t.TempDir(), "db", "relay.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Record(ctx, &domain.JournalEntry{
		Source: domain.SourceTelegram, ChatID: 42, Sender: "Alice", Fragments: 2, Bytes: 12, Delivered: true,
	}))
	require.NoError(t, r.Record(ctx, &domain.JournalEntry{
		Source: domain.SourcePeer, Sender: "Peer", Fragments: 1, Bytes: 4, Error: "session unreachable",
	}))

	entries, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.SourcePeer, entries[0].Source)
	assert.False(t, entries[0].Delivered)
	assert.Equal(t, "session unreachable", entries[0].Error)
	assert.Equal(t, int64(42), entries[1].ChatID)
	assert.True(t, entries[1].Delivered)
	assert.Equal(t, 2, entries[1].Fragments)
}

func TestJournalRepo_CleanupOld(t *testing.T) {
	ctx := context.Background()
	r, err := NewJournalRepo(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	defer r.Close()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, r.Record(ctx, &domain.JournalEntry{Source: domain.SourceTelegram, CreatedAt: old}))
	require.NoError(t, r.Record(ctx, &domain.JournalEntry{Source: domain.SourceTelegram}))

	n, err := r.CleanupOld(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournalRepo_Cursor(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "relay.db")
	r, err := NewJournalRepo(path)
	require.NoError(t, err)

	cursor, err := r.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cursor)

	require.NoError(t, r.SaveCursor(ctx, 101))
	require.NoError(t, r.SaveCursor(ctx, 205))
	require.NoError(t, r.Close())

	// Survives reopen
	r, err = NewJournalRepo(path)
	require.NoError(t, err)
	defer r.Close()
	cursor, err = r.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 205, cursor)
}
