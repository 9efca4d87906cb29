package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"campusbite/internal/config"
)

// HTTPPushSender delivers notifications through an external push
// transport over HTTP.
type HTTPPushSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPPushSender creates a push sender from configuration
func NewHTTPPushSender(cfg config.PushConfig) *HTTPPushSender {
	return &HTTPPushSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	Tokens []string `json:"tokens"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
}

// Send posts one multicast message to the push transport
func (s *HTTPPushSender) Send(ctx context.Context, tokens []string, title, body string) error {
	payload, err := json.Marshal(pushRequest{Tokens: tokens, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push transport unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push transport returned status %d", resp.StatusCode)
	}
	return nil
}
