package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"MentionScanner/internal/config"
	"MentionScanner/internal/domain"
	"MentionScanner/internal/match"
	"MentionScanner/internal/ports"
)

// Summary reports what one collection pass did. It exists for
// observability; correctness never depends on the counters.
type Summary struct {
	Feeds   int `json:"feeds"`
	Found   int `json:"found"`
	Stored  int `json:"stored"`
	Emailed int `json:"emailed"`
}

// PipelineDeps wires all driven adapters into the collection pipeline.
type PipelineDeps struct {
	Source   ports.FeedSource
	Store    ports.MentionStore
	Alerts   ports.AlertSink
	Feeds    []string
	Keywords []string
	Urgent   []string
	Logger   *slog.Logger
	// Now substitutes for time.Now in tests.
	Now func() time.Time
}

// Pipeline implements the mention-collection workflow: match, identify,
// admit, store, and alert for every entry of every configured feed.
type Pipeline struct {
	source   ports.FeedSource
	store    ports.MentionStore
	alerts   ports.AlertSink
	feeds    []string
	keywords []string
	urgent   []string
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:   deps.Source,
		store:    deps.Store,
		alerts:   deps.Alerts,
		feeds:    deps.Feeds,
		keywords: deps.Keywords,
		urgent:   deps.Urgent,
		logger:   deps.Logger,
		now:      now,
	}
}

// Collect runs one pass over all configured feeds. A failing feed
// contributes nothing and the rest continue; a store failure aborts the
// pass because admitted state can no longer be trusted to persist. The
// returned summary reflects whatever completed before an error.
func (p *Pipeline) Collect(ctx context.Context) (Summary, error) {
	summary := Summary{Feeds: len(p.feeds)}

	if len(p.feeds) == 0 {
		return summary, config.ErrMissingFeeds
	}
	if len(p.keywords) == 0 {
		return summary, config.ErrMissingKeywords
	}

	for _, url := range p.feeds {
		snapshot, err := p.source.Fetch(ctx, url)
		if err != nil {
			p.warn("feed fetch failed", "feed", url, "error", err)
			continue
		}

		source := snapshot.SourceName()
		for _, entry := range snapshot.Entries {
			if err := p.processEntry(ctx, source, entry, &summary); err != nil {
				return summary, err
			}
		}
	}

	p.debug("collection pass finished",
		"feeds", summary.Feeds,
		"found", summary.Found,
		"stored", summary.Stored,
		"emailed", summary.Emailed,
	)

	return summary, nil
}

func (p *Pipeline) processEntry(ctx context.Context, source string, entry domain.MentionCandidate, summary *Summary) error {
	text := strings.Join([]string{entry.Title, entry.Summary, entry.Link}, "\n")
	matched := match.Match(text, p.keywords)
	if len(matched) == 0 {
		return nil
	}

	id := domain.MentionID(entry.Link, entry.Title, p.now())

	isNew, err := p.store.Admit(ctx, id)
	if err != nil {
		return fmt.Errorf("admit %s: %w", id, err)
	}
	if !isNew {
		return nil
	}

	publishedTS := p.resolvePublished(entry)
	mention := domain.NewMention(id, entry.Title, entry.Link, source, matched, publishedTS)

	if err := p.store.Store(ctx, mention); err != nil {
		// The id stays admitted; this mention will never be retried.
		return fmt.Errorf("store %s: %w", id, err)
	}

	summary.Found++
	summary.Stored++

	if match.IsUrgent(matched, p.urgent) {
		p.alerts.Dispatch(ctx, mention)
		summary.Emailed++
	}

	return nil
}

// resolvePublished picks the entry's publication epoch: the feed library's
// parsed date first, then a tolerant parse of raw date fields in priority
// order, then the current time. An unparsable date never fails the entry.
func (p *Pipeline) resolvePublished(entry domain.MentionCandidate) int64 {
	if entry.Published != nil {
		return entry.Published.Unix()
	}

	for _, raw := range entry.PublishedRaw {
		if t, ok := parseDate(raw); ok {
			return t.Unix()
		}
	}

	return p.now().Unix()
}

// dateLayouts covers the formats feeds actually emit, most common first.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
