package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// WebhookAppender posts rows to an Apps Script web app. The response is
// opaque: the body is drained but never inspected, so a dispatched request is
// all this appender can report.
type WebhookAppender struct {
	url        string
	httpClient *http.Client
}

func NewWebhookAppender(url string) *WebhookAppender {
	return &WebhookAppender{url: url, httpClient: &http.Client{}}
}

func (w *WebhookAppender) Name() string {
	return "webhook"
}

func (w *WebhookAppender) Append(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	slog.Debug("Webhook append dispatched", "status", resp.StatusCode)
	return nil
}
