package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
)

// envConfigRepo writes the registered owner back into the .env file so
// restarts and sibling tools agree on who the owner is
type envConfigRepo struct {
	path string
	mu   sync.Mutex
}

// NewEnvConfigRepo creates a config repo writing to the .env file at path
func NewEnvConfigRepo(path string) repo.ConfigRepo {
	return &envConfigRepo{path: path}
}

// PersistOwner sets TELEGRAM_CHAT_ID and makes sure the owner is listed in
// TELEGRAM_ALLOWED_CHATS
func (r *envConfigRepo) PersistOwner(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	env, err := godotenv.Read(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", r.path, err)
		}
		env = make(map[string]string)
	}

	id := strconv.FormatInt(chatID, 10)
	env["TELEGRAM_CHAT_ID"] = id
	env["TELEGRAM_ALLOWED_CHATS"] = appendChatID(env["TELEGRAM_ALLOWED_CHATS"], id)

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create env dir: %w", err)
	}
	if err := godotenv.Write(env, r.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.path, err)
	}
	return os.Chmod(r.path, 0600)
}

func appendChatID(list, id string) string {
	var ids []string
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if s == id {
			return list
		}
		ids = append(ids, s)
	}
	return strings.Join(append(ids, id), ",")
}
