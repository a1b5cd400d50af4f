package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// MockInjector implements Injector for testing
type MockInjector struct {
	injected []*domain.PeerInjection
	err      error
}

func (m *MockInjector) InjectPeer(ctx context.Context, p *domain.PeerInjection) error {
	if m.err != nil {
		return m.err
	}
	m.injected = append(m.injected, p)
	return nil
}

func doRequest(t *testing.T, s *Server, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleInject_OK(t *testing.T) {
	inj := &MockInjector{}
	s := NewServer(inj, "s3cret", "127.0.0.1:0", nil)

	w := doRequest(t, s, http.MethodPost, "/inject", "s3cret", `{"message":"ping","sender":"Laptop","timestamp":"2025-01-02 15:04"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	require.Len(t, inj.injected, 1)
	assert.Equal(t, "ping", inj.injected[0].Message)
	assert.Equal(t, "Laptop", inj.injected[0].Sender)
}

func TestHandleInject_WrongSecret(t *testing.T) {
	inj := &MockInjector{}
	s := NewServer(inj, "s3cret", "127.0.0.1:0", nil)

	for _, key := range []string{"", "wrong", "s3cret "} {
		w := doRequest(t, s, http.MethodPost, "/inject", key, `{"message":"ping"}`)
		assert.Equal(t, http.StatusForbidden, w.Code, "key %q", key)
	}
	assert.Empty(t, inj.injected)
}

func TestHandleInject_EmptySecretRejectsAll(t *testing.T) {
	inj := &MockInjector{}
	s := NewServer(inj, "", "127.0.0.1:0", nil)

	w := doRequest(t, s, http.MethodPost, "/inject", "", `{"message":"ping"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, inj.injected)
}

func TestHandleInject_BadRequests(t *testing.T) {
	inj := &MockInjector{}
	s := NewServer(inj, "k", "127.0.0.1:0", nil)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodPost, "/inject", "k", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodPost, "/inject", "k", `{"sender":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, http.MethodPost, "/inject", "k", `{"message":"   \n\t "}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, s, http.MethodGet, "/inject", "k", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, s, http.MethodPost, "/other", "k", `{"message":"x"}`).Code)
	assert.Empty(t, inj.injected)
}

func TestHandleInject_InjectFailure(t *testing.T) {
	inj := &MockInjector{err: errors.New("tmux gone")}
	s := NewServer(inj, "k", "127.0.0.1:0", nil)

	w := doRequest(t, s, http.MethodPost, "/inject", "k", `{"message":"ping"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "inject failed")
}

func TestHealth(t *testing.T) {
	s := NewServer(&MockInjector{}, "k", "127.0.0.1:0", nil)
	w := doRequest(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := NewServer(&MockInjector{}, "k", "127.0.0.1:0", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
