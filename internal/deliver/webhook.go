package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

// WebhookSink POSTs each fragment as JSON to an HTTP endpoint.
type WebhookSink struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewWebhookSink(url, apiKey string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// webhookPayload is the body of each POST.
type webhookPayload struct {
	Index    int    `json:"index"`
	Markup   string `json:"markup"`
	Length   int    `json:"length"`
	Overflow bool   `json:"overflow,omitempty"`
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, f doctree.Fragment) error {
	body, err := json.Marshal(webhookPayload{Index: f.Index, Markup: f.Markup, Length: f.Length, Overflow: f.Overflow})
	if err != nil {
		return fmt.Errorf("marshal fragment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("post fragment: %w", err)
		}
		return &RetryableError{Err: fmt.Errorf("post fragment: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("post fragment #%d: status %d: %s", f.Index, resp.StatusCode, string(respBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &RetryableError{Err: err, RetryAfter: time.Duration(retryAfter) * time.Second}
	}
	return err
}

// Close releases idle connections.
func (s *WebhookSink) Close() {
	s.httpClient.CloseIdleConnections()
}
