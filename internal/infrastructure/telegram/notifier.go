package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

// Notifier sends urgent-mention alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Name identifies the channel in logs.
func (n *Notifier) Name() string { return "telegram" }

// Configured reports whether both bot token and chat id are present.
func (n *Notifier) Configured() bool {
	return n.botToken != "" && n.chatID != ""
}

// Notify posts a Markdown message describing the mention to Telegram.
func (n *Notifier) Notify(ctx context.Context, m domain.Mention) error {
	if !n.Configured() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatMessage(m))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatMessage(m domain.Mention) string {
	return fmt.Sprintf("📰 *%s*\nSource: %s · %s\nKeywords: %s\n%s",
		m.Title,
		m.Source,
		m.Published,
		strings.Join(m.Matched, ", "),
		m.Link,
	)
}
