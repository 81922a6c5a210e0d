package ports

import (
	"context"
	"time"

	"MentionScanner/internal/domain"
)

// FeedSource fetches and parses one feed URL into candidate entries.
// A failing feed returns an error for the whole feed; the pipeline logs it
// and moves on to the next feed.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (domain.FeedSnapshot, error)
}

// MentionStore is the durable state of the system: the permanent seen-set
// and the bounded recency index.
type MentionStore interface {
	// Admit atomically adds id to the seen-set and reports whether it was
	// newly added. The add must use the store's native atomic primitive;
	// under concurrent calls with the same id exactly one caller sees true.
	Admit(ctx context.Context, id string) (bool, error)

	// Store inserts the mention into the recency index keyed by its
	// publication epoch and trims the index to capacity in the same
	// transaction.
	Store(ctx context.Context, m domain.Mention) error

	// Latest returns up to limit mentions, most recent first. Rows that no
	// longer deserialize are skipped, never surfaced as errors.
	Latest(ctx context.Context, limit int) ([]domain.Mention, error)

	Close() error
}

// Notifier delivers an urgent-mention alert over one channel.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string
	// Configured reports whether the channel has complete destination
	// configuration; unconfigured notifiers are silently skipped.
	Configured() bool
	Notify(ctx context.Context, m domain.Mention) error
}

// AlertSink fans an urgent mention out to the configured channels.
// Dispatching is best-effort and never fails the caller.
type AlertSink interface {
	Dispatch(ctx context.Context, m domain.Mention)
}

// Scheduler controls when collection passes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
