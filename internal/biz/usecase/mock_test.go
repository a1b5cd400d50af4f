package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// Mock implementations

type sentText struct {
	ChatID int64
	Text   string
}

type mockTransport struct {
	mu       sync.Mutex
	batches  [][]domain.Update
	offsets  []int
	timeouts []time.Duration
	pollErrs []error

	sent    []sentText
	typing  map[int64]int
	files   map[string][]byte
	fetched []string
	fileErr error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		typing: make(map[int64]int),
		files:  make(map[string][]byte),
	}
}

func (m *mockTransport) SendText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentText{ChatID: chatID, Text: text})
	return nil
}

func (m *mockTransport) SendTyping(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing[chatID]++
	return nil
}

func (m *mockTransport) SendFile(ctx context.Context, chatID int64, path, caption string) error {
	return nil
}

func (m *mockTransport) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]domain.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsets = append(m.offsets, offset)
	m.timeouts = append(m.timeouts, timeout)
	if len(m.pollErrs) > 0 {
		err := m.pollErrs[0]
		m.pollErrs = m.pollErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	b := m.batches[0]
	m.batches = m.batches[1:]
	return b, nil
}

func (m *mockTransport) FileURL(ctx context.Context, fileID string) (string, error) {
	if m.fileErr != nil {
		return "", m.fileErr
	}
	if _, ok := m.files[fileID]; !ok {
		return "", errors.New("file not found")
	}
	return "https://files.example/" + fileID + ".ogg", nil
}

func (m *mockTransport) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, url)
	m.mu.Unlock()
	id := strings.TrimSuffix(strings.TrimPrefix(url, "https://files.example/"), ".ogg")
	data, ok := m.files[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockTransport) sentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

func (m *mockTransport) typingCount(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.typing[chatID]
}

type mockRegistryRepo struct {
	mu      sync.Mutex
	records map[int64]*domain.ChatRecord
}

func newMockRegistryRepo() *mockRegistryRepo {
	return &mockRegistryRepo{records: make(map[int64]*domain.ChatRecord)}
}

func (m *mockRegistryRepo) Get(ctx context.Context, chatID int64) (*domain.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[chatID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
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
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (m *mockRegistryRepo) state(chatID int64) domain.ChatState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[chatID]; ok {
		return r.State
	}
	return domain.ChatStateUnregistered
}

type mockConfigRepo struct {
	owners []int64
}

func (m *mockConfigRepo) PersistOwner(ctx context.Context, chatID int64) error {
	m.owners = append(m.owners, chatID)
	return nil
}

type mockSessionRepo struct {
	mu       sync.Mutex
	triggers []domain.Source
	keys     []string
	submits  int
	err      error

	// pending is set between SendKeys and Submit; interleaved records a
	// SendKeys that arrived while another turn was still unsubmitted
	pending     bool
	interleaved bool
}

func (m *mockSessionRepo) MarkTrigger(ctx context.Context, source domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, source)
	return nil
}

func (m *mockSessionRepo) SendKeys(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.pending {
		m.interleaved = true
	}
	m.pending = true
	m.keys = append(m.keys, text)
	return nil
}

func (m *mockSessionRepo) Submit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits++
	m.pending = false
	return nil
}

func (m *mockSessionRepo) injected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

type mockJournalRepo struct {
	mu      sync.Mutex
	entries []*domain.JournalEntry
	cursor  int
}

func (m *mockJournalRepo) Record(ctx context.Context, e *domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockJournalRepo) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

func (m *mockJournalRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *mockJournalRepo) LoadCursor(ctx context.Context) (int, error) { return m.cursor, nil }

func (m *mockJournalRepo) SaveCursor(ctx context.Context, cursor int) error {
	m.cursor = cursor
	return nil
}

func (m *mockJournalRepo) Close() error { return nil }

type mockTranscriber struct {
	text  string
	err   error
	paths []string
}

func (m *mockTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	m.paths = append(m.paths, path)
	return m.text, m.err
}

type mockPeerRepo struct {
	posted []*domain.PeerInjection
	err    error
}

func (m *mockPeerRepo) Post(ctx context.Context, p *domain.PeerInjection) error {
	if m.err != nil {
		return m.err
	}
	m.posted = append(m.posted, p)
	return nil
}

func textUpdate(id int, chatID int64, sender, text string) domain.Update {
	return domain.Update{ID: id, ChatID: chatID, SenderName: sender, Text: text}
}
