package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
)

// registryFile is the on-disk layout. AllowedChats is the legacy flat list,
// read once and migrated.
type registryFile struct {
	Chats        []*domain.ChatRecord `json:"chats"`
	AllowedChats []int64              `json:"allowed_chats,omitempty"`
}

// registryRepo is a JSON file backed chat registry
type registryRepo struct {
	path string

	mu    sync.Mutex
	chats map[int64]*domain.ChatRecord
}

// NewRegistryRepo loads the registry at path, creating an empty one if missing
func NewRegistryRepo(path string) (repo.RegistryRepo, error) {
	r := &registryRepo{
		path:  path,
		chats: make(map[int64]*domain.ChatRecord),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *registryRepo) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse registry %s: %w", r.path, err)
	}

	for _, c := range f.Chats {
		if c != nil {
			r.chats[c.ChatID] = c
		}
	}

	if len(f.AllowedChats) > 0 {
		hasOwner := false
		for _, c := range r.chats {
			if c.State == domain.ChatStateOwner {
				hasOwner = true
			}
		}
		for i, id := range f.AllowedChats {
			if _, ok := r.chats[id]; ok {
				continue
			}
			state := domain.ChatStateAllowed
			if i == 0 && !hasOwner {
				state = domain.ChatStateOwner
			}
			r.chats[id] = domain.NewChatRecord(id, "", state)
		}
		return r.flush()
	}
	return nil
}

// Get returns the record for chatID, nil if absent
func (r *registryRepo) Get(ctx context.Context, chatID int64) (*domain.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// Save inserts or replaces a record and writes the file
func (r *registryRepo) Save(ctx context.Context, rec *domain.ChatRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	cp.UpdatedAt = time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}
	prev, existed := r.chats[rec.ChatID]
	r.chats[rec.ChatID] = &cp
	if err := r.flush(); err != nil {
		if existed {
			r.chats[rec.ChatID] = prev
		} else {
			delete(r.chats, rec.ChatID)
		}
		return err
	}
	return nil
}

// List returns all records ordered by creation time
func (r *registryRepo) List(ctx context.Context) ([]*domain.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(), nil
}

func (r *registryRepo) sorted() []*domain.ChatRecord {
	out := make([]*domain.ChatRecord, 0, len(r.chats))
	for _, c := range r.chats {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out
}

// flush writes the registry atomically. Caller holds mu.
func (r *registryRepo) flush() error {
	data, err := json.MarshalIndent(registryFile{Chats: r.sorted()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}
