// Package email sends urgent-mention alerts through a Resend-compatible
// transactional email API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"MentionScanner/internal/config"
	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

// Sender posts alert emails to the configured API endpoint.
type Sender struct {
	endpoint   string
	apiKey     string
	from       string
	to         []string
	httpClient *http.Client
}

var _ ports.Notifier = (*Sender)(nil)

// NewSender builds a sender from configuration.
func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		to:       cfg.To,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name identifies the channel in logs.
func (s *Sender) Name() string { return "email" }

// Configured reports whether credential, sender and recipients are all set.
func (s *Sender) Configured() bool {
	return s.apiKey != "" && s.endpoint != "" && s.from != "" && len(s.to) > 0
}

// Notify sends an [URGENT] email describing the mention.
func (s *Sender) Notify(ctx context.Context, m domain.Mention) error {
	if !s.Configured() {
		return fmt.Errorf("email sender misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"from":    s.from,
		"to":      s.to,
		"subject": fmt.Sprintf("[URGENT] %s", m.Title),
		"html":    formatBody(m),
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}

func formatBody(m domain.Mention) string {
	return fmt.Sprintf(
		"<p><b>%s</b></p>"+
			"<p>Source: %s · %s</p>"+
			"<p>Keywords: %s</p>"+
			"<p><a href=%q>Open article</a></p>",
		m.Title,
		m.Source,
		m.Published,
		strings.Join(m.Matched, ", "),
		m.Link,
	)
}
