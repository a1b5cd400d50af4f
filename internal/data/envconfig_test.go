package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvConfigRepo_PersistOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_BOT_TOKEN=123:abc\nTELEGRAM_ALLOWED_CHATS=5\n"), 0600))

	r := NewEnvConfigRepo(path)
	require.NoError(t, r.PersistOwner(context.Background(), 42))
	require.NoError(t, r.PersistOwner(context.Background(), 42))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", env["TELEGRAM_BOT_TOKEN"])
	assert.Equal(t, "42", env["TELEGRAM_CHAT_ID"])
	assert.Equal(t, "5,42", env["TELEGRAM_ALLOWED_CHATS"])
}

func TestEnvConfigRepo_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ".env")

	require.NoError(t, NewEnvConfigRepo(path).PersistOwner(context.Background(), -100))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "-100", env["TELEGRAM_CHAT_ID"])
	assert.Equal(t, "-100", env["TELEGRAM_ALLOWED_CHATS"])
}

func TestAppendChatID(t *testing.T) {
	assert.Equal(t, "1", appendChatID("", "1"))
	assert.Equal(t, "1,2", appendChatID("1", "2"))
	assert.Equal(t, "1, 2", appendChatID("1, 2", "2"))
}
