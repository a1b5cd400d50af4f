package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
)

// APIKeyHeader carries the shared peer secret
const APIKeyHeader = "X-API-Key"

// peerRepo posts injections to a paired relay's /inject endpoint
type peerRepo struct {
	url    string
	apiKey string
	client *http.Client
}

// NewPeerRepo creates a client for the peer at baseURL
func NewPeerRepo(baseURL, apiKey string, timeout time.Duration) repo.PeerRepo {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &peerRepo{
		url:    strings.TrimRight(baseURL, "/") + "/inject",
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Post delivers one injection. Any non-200 answer is an error.
func (r *peerRepo) Post(ctx context.Context, p *domain.PeerInjection) error {
	if r.url == "/inject" {
		return fmt.Errorf("peer URL is not configured")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("peer unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("peer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
