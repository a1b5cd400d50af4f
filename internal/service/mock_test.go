package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// Mock implementations

type mockTransport struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func newMockTransport() *mockTransport {
	return &mockTransport{sent: make(map[int64][]string)}
}

func (m *mockTransport) SendText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[chatID] = append(m.sent[chatID], text)
	return nil
}

func (m *mockTransport) SendTyping(ctx context.Context, chatID int64) error { return nil }

func (m *mockTransport) SendFile(ctx context.Context, chatID int64, path, caption string) error {
	return nil
}

func (m *mockTransport) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]domain.Update, error) {
	return nil, nil
}

func (m *mockTransport) FileURL(ctx context.Context, fileID string) (string, error) {
	return "", errors.New("no files")
}

func (m *mockTransport) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	return nil, errors.New("no files")
}

func (m *mockTransport) sentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent[chatID]...)
}

type mockRegistryRepo struct {
	mu      sync.Mutex
	records map[int64]*domain.ChatRecord
}

func (m *mockRegistryRepo) Get(ctx context.Context, chatID int64) (*domain.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[chatID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *mockRegistryRepo) Save(ctx context.Context, rec *domain.ChatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ChatID] = &cp
	return nil
}

func (m *mockRegistryRepo) List(ctx context.Context) ([]*domain.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ChatRecord
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

type mockSessionRepo struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *mockSessionRepo) MarkTrigger(ctx context.Context, source domain.Source) error { return nil }

func (m *mockSessionRepo) SendKeys(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, text)
	return nil
}

func (m *mockSessionRepo) Submit(ctx context.Context) error { return nil }

func (m *mockSessionRepo) injected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

type mockJournalRepo struct {
	mu       sync.Mutex
	cleanups []time.Time
}

func (m *mockJournalRepo) Record(ctx context.Context, e *domain.JournalEntry) error { return nil }

func (m *mockJournalRepo) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	return nil, nil
}

func (m *mockJournalRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, before)
	return 1, nil
}

func (m *mockJournalRepo) LoadCursor(ctx context.Context) (int, error) { return 0, nil }

func (m *mockJournalRepo) SaveCursor(ctx context.Context, cursor int) error { return nil }

func (m *mockJournalRepo) Close() error { return nil }

func (m *mockJournalRepo) cleanupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cleanups)
}
