package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// APIKeyHeader carries the shared peer secret
const APIKeyHeader = "X-API-Key"

const maxBodyBytes = 1 << 20

// Injector delivers a peer message to the session
type Injector interface {
	InjectPeer(ctx context.Context, p *domain.PeerInjection) error
}

// Server is the peer bridge listener. It accepts injections from the paired
// relay over the private network.
type Server struct {
	injector Injector
	apiKey   string
	addr     string
	logger   *slog.Logger

	server *http.Server
}

// NewServer creates a new API server listening on addr
func NewServer(injector Injector, apiKey, addr string, logger *slog.Logger) *Server {
	return &Server{
		injector: injector,
		apiKey:   apiKey,
		addr:     addr,
		logger:   logging.Component(logger, logging.CompPeer),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/inject", s.handleInject)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("peer listener started", "addr", s.addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authorized(r) {
		s.logger.Warn("rejected peer request", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var p domain.PeerInjection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p.Message = strings.TrimSpace(p.Message)
	if p.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	if err := s.injector.InjectPeer(r.Context(), &p); err != nil {
		s.logger.Error("peer injection failed", "sender", p.Sender, "error", err)
		http.Error(w, "inject failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("peer message injected", "sender", p.Sender, "bytes", len(p.Message))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return false
	}
	got := r.Header.Get(APIKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) == 1
}
