package conf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RELAY_HOME", "ENV_FILE", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOWED_CHATS", "TELEGRAM_CHAT_ID",
		"TELEGRAM_FILES_DIR", "TELEGRAM_FILE_SIZE_LIMIT_MB", "TELEGRAM_API_ENDPOINT", "TMUX_TARGET",
		"TYPING_TIMEOUT", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "BRIDGE_API_KEY", "BRIDGE_PORT",
		"BRIDGE_BIND", "PEER_URL", "PEER_SENDER", "WHISPER_BASE_URL", "WHISPER_API_KEY", "WHISPER_MODEL",
		"NOTICES_CONFIG_PATH", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("RELAY_HOME", home)

	cfg := LoadFromEnv()
	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, filepath.Join(home, ".env"), cfg.EnvFile)
	assert.Equal(t, "claude:claude", cfg.Session.TmuxTarget)
	assert.Equal(t, 90*time.Second, cfg.Session.TypingTimeout)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, int64(20*1024*1024), cfg.Telegram.FileSizeLimit)
	assert.Equal(t, 8765, cfg.Bridge.Port)
	assert.Equal(t, "Systran/faster-whisper-base", cfg.Whisper.Model)
	assert.Equal(t, filepath.Join(home, "chats.json"), cfg.RegistryPath())
	assert.Equal(t, filepath.Join(home, "relay.db"), cfg.JournalPath())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_HOME", t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", " 123:abc ")
	t.Setenv("TELEGRAM_ALLOWED_CHATS", "10, 20,,-30")
	t.Setenv("TELEGRAM_CHAT_ID", "20")
	t.Setenv("RATE_LIMIT_MAX", "2")
	t.Setenv("TYPING_TIMEOUT", "15")
	t.Setenv("BRIDGE_BIND", "100.64.0.1")
	t.Setenv("BRIDGE_PORT", "9000")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{10, 20, -30}, cfg.Telegram.AllowedChats)
	assert.Equal(t, []int64{20, 10, -30}, cfg.SeedChats())
	assert.Equal(t, 2, cfg.ToRateLimitConfig().Max)
	assert.Equal(t, 15*time.Second, cfg.ToTypingConfig().Timeout)
	assert.Equal(t, "100.64.0.1:9000", cfg.BindAddress(context.Background()))
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_HOME", t.TempDir())

	cfg := LoadFromEnv()
	err := cfg.Validate()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "TELEGRAM_BOT_TOKEN", cfgErr.Field)

	t.Setenv("TELEGRAM_BOT_TOKEN", TokenPlaceholder)
	assert.Error(t, LoadFromEnv().Validate())

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ALLOWED_CHATS", "12,abc")
	err = LoadFromEnv().Validate()
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "TELEGRAM_ALLOWED_CHATS", cfgErr.Field)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("RELAY_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("TMUX_TARGET=work:1\n"), 0600))
	// godotenv.Load never overrides variables that are already set
	require.NoError(t, os.Unsetenv("TMUX_TARGET"))

	cfg := Load()
	assert.Equal(t, "work:1", cfg.Session.TmuxTarget)
	assert.Equal(t, filepath.Join(home, ".env"), cfg.EnvFile)
	os.Unsetenv("TMUX_TARGET")
}

func TestLoadNoticesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry:\n  welcome: \"Hey {sender}\"\n"), 0644))

	nc, err := LoadNoticesConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, nc.Source)

	n := nc.ToNotices()
	assert.Equal(t, "Hey {sender}", n.Welcome)
	assert.Empty(t, n.Throttled, "defaults are filled by the usecases")

	_, err = LoadNoticesConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultNoticesConfig_RoundTrip(t *testing.T) {
	assert.Equal(t, usecase.DefaultNotices, DefaultNoticesConfig().ToNotices())
}

func TestShippedNoticesFileParses(t *testing.T) {
	nc, err := LoadNoticesConfig(filepath.Join("..", "..", "configs", "notices.yaml"))
	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultNotices, nc.ToNotices())
}
