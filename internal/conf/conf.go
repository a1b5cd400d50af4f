package conf

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// TokenPlaceholder is the value shipped in the example .env
const TokenPlaceholder = "your_bot_token_here"

// Config represents application configuration
type Config struct {
	// Home is the state directory (registry, journal, logs, markers)
	Home string

	// EnvFile is the .env the config was loaded from; owner registration writes back to it
	EnvFile string

	Telegram  TelegramConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Bridge    BridgeConfig
	Peer      PeerConfig
	Whisper   WhisperConfig
	Log       LogConfig

	// Notices loaded from YAML
	Notices *NoticesConfig
}

// TelegramConfig contains Telegram configuration
type TelegramConfig struct {
	BotToken      string
	AllowedChats  []int64
	OwnerChatID   int64 // TELEGRAM_CHAT_ID, written when the owner registers
	FilesDir      string
	FileSizeLimit int64 // bytes
	APIEndpoint   string

	invalidChats []string
}

// SessionConfig contains downstream session configuration
type SessionConfig struct {
	TmuxTarget         string
	RestartContextFile string
	TypingTimeout      time.Duration
}

// RateLimitConfig contains per-chat admission limits
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// BridgeConfig contains the peer listener configuration
type BridgeConfig struct {
	APIKey string
	Port   int
	Bind   string // empty means auto-detect
}

// PeerConfig contains the outbound peer client configuration
type PeerConfig struct {
	URL    string
	Sender string
}

// WhisperConfig contains voice transcription configuration
type WhisperConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// DefaultHome returns ~/.easyclaw
func DefaultHome() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".easyclaw")
}

// Load reads the .env file (if any) into the environment, then builds the config.
// Variables already set in the environment win over the file.
func Load() *Config {
	home := expandHome(getenv("RELAY_HOME", DefaultHome()))
	envFile := expandHome(getenv("ENV_FILE", filepath.Join(home, ".env")))
	_ = godotenv.Load(envFile)

	cfg := LoadFromEnv()
	cfg.EnvFile = envFile
	return cfg
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	homeDir, _ := os.UserHomeDir()
	home := expandHome(getenv("RELAY_HOME", DefaultHome()))

	allowed, invalid := parseChatIDs(os.Getenv("TELEGRAM_ALLOWED_CHATS"))
	owner, _ := strconv.ParseInt(strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")), 10, 64)

	hostname, _ := os.Hostname()

	restartContext := filepath.Join(homeDir, ".claude", "restart-context")
	if val, ok := os.LookupEnv("RESTART_CONTEXT_FILE"); ok {
		restartContext = expandHome(val)
	}

	noticesConfig, _ := LoadNoticesConfig(os.Getenv("NOTICES_CONFIG_PATH"))

	return &Config{
		Home:    home,
		EnvFile: expandHome(getenv("ENV_FILE", filepath.Join(home, ".env"))),
		Telegram: TelegramConfig{
			BotToken:      strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
			AllowedChats:  allowed,
			OwnerChatID:   owner,
			FilesDir:      expandHome(getenv("TELEGRAM_FILES_DIR", filepath.Join(homeDir, "telegram-files"))),
			FileSizeLimit: int64(getenvInt("TELEGRAM_FILE_SIZE_LIMIT_MB", 20)) * 1024 * 1024,
			APIEndpoint:   os.Getenv("TELEGRAM_API_ENDPOINT"),
			invalidChats:  invalid,
		},
		Session: SessionConfig{
			TmuxTarget:         getenv("TMUX_TARGET", "claude:claude"),
			RestartContextFile: restartContext,
			TypingTimeout:      time.Duration(getenvInt("TYPING_TIMEOUT", 90)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Max:    getenvInt("RATE_LIMIT_MAX", 5),
			Window: time.Duration(getenvInt("RATE_LIMIT_WINDOW", 30)) * time.Second,
		},
		Bridge: BridgeConfig{
			APIKey: os.Getenv("BRIDGE_API_KEY"),
			Port:   getenvInt("BRIDGE_PORT", 8765),
			Bind:   os.Getenv("BRIDGE_BIND"),
		},
		Peer: PeerConfig{
			URL:    os.Getenv("PEER_URL"),
			Sender: getenv("PEER_SENDER", hostname),
		},
		Whisper: WhisperConfig{
			BaseURL: getenv("WHISPER_BASE_URL", "http://127.0.0.1:8000/v1"),
			APIKey:  getenv("WHISPER_API_KEY", "local"),
			Model:   getenv("WHISPER_MODEL", "Systran/faster-whisper-base"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
		},
		Notices: noticesConfig,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == TokenPlaceholder {
		return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "required (get one from @BotFather)"}
	}
	if len(c.Telegram.invalidChats) > 0 {
		return &ConfigError{Field: "TELEGRAM_ALLOWED_CHATS", Message: "invalid chat id " + strings.Join(c.Telegram.invalidChats, ", ")}
	}
	if c.Telegram.FileSizeLimit <= 0 {
		return &ConfigError{Field: "TELEGRAM_FILE_SIZE_LIMIT_MB", Message: "must be positive"}
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return &ConfigError{Field: "RATE_LIMIT_MAX/RATE_LIMIT_WINDOW", Message: "must be positive"}
	}
	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		return &ConfigError{Field: "BRIDGE_PORT", Message: "out of range"}
	}
	return nil
}

// SeedChats returns the chats to pre-authorize, owner first
func (c *Config) SeedChats() []int64 {
	if c.Telegram.OwnerChatID == 0 {
		return c.Telegram.AllowedChats
	}
	out := []int64{c.Telegram.OwnerChatID}
	for _, id := range c.Telegram.AllowedChats {
		if id != c.Telegram.OwnerChatID {
			out = append(out, id)
		}
	}
	return out
}

// RegistryPath is the chat registry file
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Home, "chats.json")
}

// JournalPath is the sqlite journal
func (c *Config) JournalPath() string {
	return filepath.Join(c.Home, "relay.db")
}

// ToLoggingConfig converts to logging configuration
func (c *Config) ToLoggingConfig(stdout bool) logging.Config {
	return logging.Config{
		LogDir: c.Home,
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Stdout: stdout,
	}
}

// ToRateLimitConfig converts to the limiter configuration
func (c *Config) ToRateLimitConfig() usecase.RateLimitConfig {
	return usecase.RateLimitConfig{
		Max:    c.RateLimit.Max,
		Window: c.RateLimit.Window,
	}
}

// ToAttachmentConfig converts to the attachment configuration
func (c *Config) ToAttachmentConfig() usecase.AttachmentConfig {
	cfg := usecase.DefaultAttachmentConfig(c.Telegram.FilesDir)
	cfg.MaxBytes = c.Telegram.FileSizeLimit
	return cfg
}

// ToTypingConfig converts to the typing configuration
func (c *Config) ToTypingConfig() usecase.TypingConfig {
	cfg := usecase.DefaultTypingConfig()
	if c.Session.TypingTimeout > 0 {
		cfg.Timeout = c.Session.TypingTimeout
	}
	return cfg
}

// ToNotices converts the YAML notices to the usecase form
func (c *Config) ToNotices() usecase.Notices {
	if c.Notices == nil {
		return usecase.DefaultNotices
	}
	return c.Notices.ToNotices()
}

// BindAddress returns host:port for the peer listener. Without BRIDGE_BIND it
// prefers the Tailscale address so the listener is reachable only over the tailnet.
func (c *Config) BindAddress(ctx context.Context) string {
	host := c.Bridge.Bind
	if host == "" {
		host = DetectTailscaleIP(ctx)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Bridge.Port))
}

// DetectTailscaleIP returns the first IPv4 from `tailscale ip -4`, or ""
func DetectTailscaleIP(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "tailscale", "ip", "-4").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if ip := net.ParseIP(strings.TrimSpace(line)); ip != nil && ip.To4() != nil {
			return ip.String()
		}
	}
	return ""
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func getenv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func parseChatIDs(s string) (ids []int64, invalid []string) {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			invalid = append(invalid, part)
			continue
		}
		ids = append(ids, id)
	}
	return ids, invalid
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
	}
	return p
}
