// Package feed implements the feed source collaborator: it fetches a feed
// URL over HTTP, parses RSS/Atom with gofeed and yields mention candidates
// with plain-text summaries.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

// Source fetches and parses one feed per call.
type Source struct {
	client *http.Client
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.FeedSource = (*Source)(nil)

// NewSource wires an HTTP client; a nil client gets a 20 second timeout.
func NewSource(client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Source{
		client: client,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Fetch downloads and parses the feed at url. Entry summaries are reduced to
// plain text so keyword matching is not fooled by markup.
func (s *Source) Fetch(ctx context.Context, url string) (domain.FeedSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.FeedSnapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "MentionScanner/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.FeedSnapshot{}, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FeedSnapshot{}, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return domain.FeedSnapshot{}, fmt.Errorf("parse feed: %w", err)
	}

	snapshot := domain.FeedSnapshot{
		URL:     url,
		Title:   strings.TrimSpace(parsed.Title),
		Entries: make([]domain.MentionCandidate, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		snapshot.Entries = append(snapshot.Entries, toCandidate(item))
	}

	s.debug("fetched feed", "feed", url, "title", snapshot.Title, "entries", len(snapshot.Entries))

	return snapshot, nil
}

func toCandidate(item *gofeed.Item) domain.MentionCandidate {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}

	return domain.MentionCandidate{
		Title:        strings.TrimSpace(item.Title),
		Link:         strings.TrimSpace(item.Link),
		Summary:      stripHTML(summary),
		Published:    published,
		PublishedRaw: []string{item.Published, item.Updated},
	}
}

// stripHTML flattens markup in feed summaries to their text content.
// Input that does not parse is returned unchanged.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
