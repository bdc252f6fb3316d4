package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/slekota/jobwatch/internal/model"
)

// Ensure Telegram implements model.Notifier.
var _ model.Notifier = (*Telegram)(nil)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram sends messages through the Telegram Bot API sendMessage endpoint.
type Telegram struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegram returns a notifier posting to the given bot and chat. The
// http.Client carries the notify timeout. baseURL overrides the Telegram API
// host for tests; empty means the real API.
func NewTelegram(token, chatID, baseURL string, httpClient *http.Client, logger *slog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &Telegram{
		token:      token,
		chatID:     chatID,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send performs one sendMessage POST. Any non-2xx response is a hard failure
// so the caller knows not to advance seen-state.
func (t *Telegram) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, snippet)
	}

	t.logger.Debug("telegram message sent", "chars", len(text))
	return nil
}

// SendTestMessage sends a dummy alert to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	l := model.Listing{
		Search:   "test",
		ID:       "test-001",
		Title:    "Test Notification — Integration Verified",
		Location: "Everywhere",
		URL:      "https://example.com/jobs",
	}
	return n.Send(ctx, FormatAlert("test", l))
}

// FormatAlert renders the notification body for a newly detected listing.
func FormatAlert(label string, l model.Listing) string {
	return fmt.Sprintf("🚨 New job detected for %s search:\n\n%s", label, l.DisplayText())
}

// FormatIDAlert renders the notification body for a newly seen identifier in
// set mode, where only the id and the search link are known.
func FormatIDAlert(label, id, link string) string {
	return fmt.Sprintf("🚨 New listing id for %s search: %s\n%s", label, id, link)
}
