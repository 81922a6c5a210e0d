package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// UntitledPlaceholder substitutes empty entry titles in persisted mentions.
const UntitledPlaceholder = "(untitled)"

// Read limits for the recency index; requests outside the band are clamped.
const (
	MinLatestLimit = 1
	MaxLatestLimit = 500
)

// Mention is the persisted record of one feed entry that matched a tracked
// keyword. JSON field names follow the wire format served to the front end.
type Mention struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Source      string   `json:"source"`
	Matched     []string `json:"matched"`
	PublishedTS int64    `json:"published_ts"`
	Published   string   `json:"published"`
}

// NewMention builds an immutable mention record. Published is derived from
// publishedTS, rendered in UTC with a Z suffix.
func NewMention(id, title, link, source string, matched []string, publishedTS int64) Mention {
	if title == "" {
		title = UntitledPlaceholder
	}
	return Mention{
		ID:          id,
		Title:       title,
		Link:        link,
		Source:      source,
		Matched:     matched,
		PublishedTS: publishedTS,
		Published:   time.Unix(publishedTS, 0).UTC().Format(time.RFC3339),
	}
}

// MentionID derives the stable identifier for a feed entry: the sha256 hex
// digest of the link. Entries without a link fall back to a digest of the
// title and the current time, which makes them only weakly deduplicated
// across runs.
func MentionID(link, title string, now time.Time) string {
	payload := link
	if payload == "" {
		payload = fmt.Sprintf("%s|%d", title, now.Unix())
	}
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ClampLatestLimit forces a requested read limit into the allowed band.
func ClampLatestLimit(limit int) int {
	if limit < MinLatestLimit {
		return MinLatestLimit
	}
	if limit > MaxLatestLimit {
		return MaxLatestLimit
	}
	return limit
}

// MentionCandidate is an ephemeral feed entry yielded by the feed source,
// before matching and identification.
type MentionCandidate struct {
	Title   string
	Link    string
	Summary string
	// Published holds the feed library's parsed date when it managed one.
	Published *time.Time
	// PublishedRaw carries the raw date strings in resolution priority
	// order (published, updated, pubDate) for tolerant re-parsing.
	PublishedRaw []string
}

// FeedSnapshot is the result of fetching one configured feed URL.
type FeedSnapshot struct {
	URL     string
	Title   string
	Entries []MentionCandidate
}

// SourceName returns the human-readable origin recorded on mentions:
// the feed title when present, otherwise the feed URL.
func (f FeedSnapshot) SourceName() string {
	if f.Title != "" {
		return f.Title
	}
	return f.URL
}
