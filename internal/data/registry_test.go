package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

func TestRegistryRepo_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "chats.json")

	r, err := NewRegistryRepo(path)
	require.NoError(t, err)

	got, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Save(ctx, domain.NewChatRecord(1, "Alice", domain.ChatStateOwner)))
	require.NoError(t, r.Save(ctx, domain.NewChatRecord(2, "Bob", domain.ChatStateUnauthorized)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	r2, err := NewRegistryRepo(path)
	require.NoError(t, err)
	list, err := r2.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ChatID)
	assert.Equal(t, domain.ChatStateOwner, list[0].State)
	assert.Equal(t, "Bob", list[1].Name)
}

func TestRegistryRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistryRepo(filepath.Join(t.TempDir(), "chats.json"))
	require.NoError(t, err)

	require.NoError(t, r.Save(ctx, domain.NewChatRecord(5, "", domain.ChatStateUnauthorized)))
	rec, err := r.Get(ctx, 5)
	require.NoError(t, err)
	rec.State = domain.ChatStateOwner

	again, err := r.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStateUnauthorized, again.State)
}

func TestRegistryRepo_MigratesLegacyList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chats.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"allowed_chats": [111, 222]}`), 0600))

	r, err := NewRegistryRepo(path)
	require.NoError(t, err)

	owner, err := r.Get(ctx, 111)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, domain.ChatStateOwner, owner.State)

	allowed, err := r.Get(ctx, 222)
	require.NoError(t, err)
	require.NotNil(t, allowed)
	assert.Equal(t, domain.ChatStateAllowed, allowed.State)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "allowed_chats")
}

func TestRegistryRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := NewRegistryRepo(path)
	assert.Error(t, err)
}
